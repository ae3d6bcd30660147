package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"refractory-tracker/internal/models"
)

const tokenTTL = 24 * time.Hour

type JWTCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for user, valid for a day from now.
func GenerateToken(secret string, user *models.User, now time.Time) (string, error) {
	claims := &JWTCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
