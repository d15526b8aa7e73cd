package handlers

import (
	"errors"
	"strings"

	"paycore/internal/models"
	"paycore/internal/services/auth"
	"paycore/internal/utils"
	"paycore/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

type AuthHandler struct {
	authService auth.Service
	log         zerolog.Logger
}

func NewAuthHandler(authService auth.Service, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// LoginUser handles user authentication and returns an access token
func (h *AuthHandler) LoginUser(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		return response.BadRequest(c, "Email and password are required")
	}

	result, err := h.authService.Login(c.UserContext(), input.Email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return response.Error(c, fiber.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, auth.ErrAccountLocked):
			return response.Error(c, fiber.StatusLocked, "Too many failed attempts, try again later")
		default:
			h.log.Error().Err(err).Msg("login failed")
			return response.ServerError(c, "Authentication failed")
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"access_token": result.Token,
		"expires_at":   result.ExpiresAt,
		"user": fiber.Map{
			"id":          result.User.ID,
			"email":       result.User.Email,
			"role":        result.User.Role,
			"permissions": models.GetDefaultPermissions(result.User.Role),
		},
	})
}

// Me returns the caller's claims.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	return c.JSON(fiber.Map{
		"user_id":     claims.UserID,
		"email":       claims.Email,
		"role":        claims.Role,
		"permissions": claims.Permissions,
	})
}
