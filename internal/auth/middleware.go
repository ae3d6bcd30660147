package auth

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const CtxUserIDKey = "user_id"

// JWTMiddleware rejects requests without a valid Bearer token and stores
// the caller's user id in the request locals.
func JWTMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization must be 'Bearer <token>'")
		}

		token, err := jwt.ParseWithClaims(parts[1], &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		claims, ok := token.Claims.(*JWTCustomClaims)
		if !ok || claims.UserID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "token carries no user")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		return c.Next()
	}
}

// OwnerID returns the id placed in the locals by JWTMiddleware, or "".
func OwnerID(c *fiber.Ctx) string {
	id, _ := c.Locals(CtxUserIDKey).(string)
	return id
}
