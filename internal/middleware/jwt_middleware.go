package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/apperr"
	"storefront/internal/services"
)

const (
	localUserID   = "user_id"
	localUsername = "username"
	localRole     = "role"
)

func reject(c *fiber.Ctx, kind apperr.Kind, message string) error {
	return c.Status(apperr.HTTPStatus(kind)).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"kind":    kind,
			"message": message,
		},
	})
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return reject(c, apperr.KindUnauthorized, "Authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return reject(c, apperr.KindUnauthorized, "Authorization header format must be 'Bearer <token>'")
		}

		claims, err := authService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			Logger(c).WithError(err).Debug("JWT validation failed")
			return reject(c, apperr.KindUnauthorized, "Invalid or expired token")
		}

		c.Locals(localUserID, claims.UserID)
		c.Locals(localUsername, claims.Username)
		c.Locals(localRole, claims.Role)
		return c.Next()
	}
}

// RequireAdmin must run after AuthRequired.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CurrentActor(c).IsAdmin() {
			return reject(c, apperr.KindForbidden, "Admin access required")
		}
		return c.Next()
	}
}

// CurrentActor returns the authenticated caller stored by AuthRequired.
func CurrentActor(c *fiber.Ctx) services.Actor {
	id, _ := c.Locals(localUserID).(uint)
	role, _ := c.Locals(localRole).(string)
	return services.Actor{UserID: id, Role: role}
}
