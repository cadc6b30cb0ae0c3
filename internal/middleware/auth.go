package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mashora/mashora-backend/internal/services"
)

// RequireAuth validates the Bearer session token on protected routes and
// stores the claims in request locals.
func RequireAuth(tokens *services.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing bearer token",
			})
		}

		claims, err := tokens.ParseSessionToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("phone", claims.Subject)
		c.Locals("purpose", claims.Purpose)
		return c.Next()
	}
}
