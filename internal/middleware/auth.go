// Package middleware provides HTTP middleware for the fiber API:
// bearer-token authentication and role/permission checks.
package middleware

import (
	"errors"
	"strings"

	"paycore/internal/models"
	"paycore/internal/services/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// AuthMiddleware validates bearer tokens and stores the user claims in the
// request context.
type AuthMiddleware struct {
	authService auth.Service
	log         zerolog.Logger
}

func NewAuthMiddleware(authService auth.Service, log zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		log:         log.With().Str("component", "auth_middleware").Logger(),
	}
}

// Handler rejects requests without a valid, current access token.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
	}

	claims, err := m.authService.Authenticate(c.UserContext(), strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		m.log.Debug().Err(err).Str("path", c.Path()).Msg("token rejected")
		if errors.Is(err, auth.ErrSessionExpired) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "session expired"})
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
	}

	c.Locals("claims", claims)
	c.Locals("userID", claims.UserID)
	return c.Next()
}

// AdminAuthMiddleware lets only admins through.
func AdminAuthMiddleware(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid claims"})
	}
	if claims.Role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "insufficient permissions"})
	}
	return c.Next()
}

// HasPermission returns a middleware that checks for a specific permission.
func HasPermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*models.UserClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		if claims.Role == models.RoleAdmin || claims.HasPermission(permission) {
			return c.Next()
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "insufficient permissions"})
	}
}
