// Package authn is the credential check endpoint the host platform
// calls during its login flow.
package authn

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/vobridge/vobridge/internal/config"
	"github.com/vobridge/vobridge/internal/web/handler"
)

// Path is the path of the login verification endpoint.
const Path = handler.RootPath + "auth/login"

// Service is the login verification handler service.
type Service struct {
	backend handler.Backend
}

// Handler is the login verification handler.
var Handler = Service{}

// Init initializes the login verification handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, backend handler.Backend) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.backend = backend

	app.Post(Path, s.Post)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Post verifies one (username, password) pair. The response carries
// the canonical uid the platform must use for the session; a failed
// check is a plain ok=false with no further detail.
func (s *Service) Post(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil || req.Username == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "username and password required"})
	}

	canonical, ok, err := s.backend.Authenticate(c.Context(), req.Username, req.Password)
	if err != nil {
		log.Error().Err(err).Msg("login verification unavailable")

		return c.Status(fiber.StatusServiceUnavailable).
			JSON(fiber.Map{"error": "verification unavailable"})
	}

	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"ok": false})
	}

	return c.JSON(fiber.Map{"ok": true, "uid": canonical})
}
