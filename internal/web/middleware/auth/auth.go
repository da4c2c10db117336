// Package auth holds the admin API authentication middleware: one
// shared bearer token from the static configuration.
package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// New returns a middleware requiring `Authorization: Bearer <token>`.
// With no token configured every request is rejected, the API is never
// open by accident.
func New(token string) fiber.Handler {
	if token == "" {
		log.Warn().Msg("no admin token configured, admin api disabled")

		return func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusServiceUnavailable).
				JSON(fiber.Map{"error": "admin api disabled"})
		}
	}

	expected := []byte("Bearer " + token)

	return func(c *fiber.Ctx) error {
		header := []byte(c.Get(fiber.HeaderAuthorization))
		if subtle.ConstantTimeCompare(header, expected) != 1 {
			return c.Status(fiber.StatusUnauthorized).
				JSON(fiber.Map{"error": "unauthorized"})
		}

		return c.Next()
	}
}
