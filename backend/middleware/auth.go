package middleware

import (
	"farmlink/backend/config"
	"farmlink/backend/services"
	"farmlink/backend/utils"

	"github.com/gofiber/fiber/v2"
)

func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, role, err := utils.ExtractIdentityFromToken(c, cfg)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals("user_id", userID)
		c.Locals("role", role)
		return c.Next()
	}
}

// ModeratorMiddleware admits experts and admins only. The role comes from the
// token; controllers still re-check against the user record before acting.
func ModeratorMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, role, err := utils.ExtractIdentityFromToken(c, cfg)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		if !services.CanModerate(role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden - Moderator access required",
			})
		}

		c.Locals("user_id", userID)
		c.Locals("role", role)
		return c.Next()
	}
}
