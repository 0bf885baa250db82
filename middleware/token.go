package middleware

import (
	"stall/utils"

	"github.com/gofiber/fiber/v2"
)

// SharedToken guards routes with a static bearer token. An empty token
// disables the guard.
func SharedToken(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}

		got, ok := utils.BearerToken(c.Get("Authorization"))
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing token"})
		}
		if !utils.TokensEqual(got, token) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		return c.Next()
	}
}
