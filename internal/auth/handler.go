package auth

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/loggo"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"refractory-tracker/internal/models"
)

var logger = loggo.GetLogger("auth")

const minPasswordLength = 8

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func userResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Handlers serves the identity endpoints over the users table.
type Handlers struct {
	db     *gorm.DB
	secret string
	clock  clock.Clock
}

func NewHandlers(db *gorm.DB, secret string, clk clock.Clock) *Handlers {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Handlers{db: db, secret: secret, clock: clk}
}

func (h *Handlers) Register() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if body.Email == "" || body.Password == "" || body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name, email and password are required")
		}
		if _, err := mail.ParseAddress(body.Email); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid email address")
		}
		if len(body.Password) < minPasswordLength {
			return fiber.NewError(fiber.StatusBadRequest, "password must be at least 8 characters")
		}

		var count int64
		if err := h.db.Model(&models.User{}).Where("email = ?", body.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "email already registered")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
		}

		user := models.User{
			ID:           uuid.NewString(),
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hash),
		}
		if err := h.db.Create(&user).Error; err != nil {
			logger.Errorf("creating user %q: %v", body.Email, err)
			return fiber.NewError(fiber.StatusInternalServerError, "could not create user")
		}
		logger.Infof("registered user %s", user.ID)

		return c.Status(fiber.StatusCreated).JSON(userResponse(&user))
	}
}

func (h *Handlers) Login() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := h.db.Where("email = ?", body.Email).First(&user).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			return fiber.NewError(fiber.StatusUnauthorized, "wrong email or password")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "wrong email or password")
		}

		token, err := GenerateToken(h.secret, &user, h.clock.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  userResponse(&user),
		})
	}
}

func (h *Handlers) Me() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var user models.User
		if err := h.db.Where("id = ?", OwnerID(c)).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "user no longer exists")
			}
			return err
		}
		return c.JSON(userResponse(&user))
	}
}
