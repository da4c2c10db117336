// Package dirconfig manages the directory configuration over the admin
// API: showing the resolved values with their provenance, storing
// operator-provided settings and testing the connection.
package dirconfig

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/vobridge/vobridge/internal/config"
	"github.com/vobridge/vobridge/internal/db/controller/dirsettings"
	"github.com/vobridge/vobridge/internal/directory"
	"github.com/vobridge/vobridge/internal/web/handler"
)

const (
	// Path is the path of the configuration endpoint.
	Path = handler.RootPath + "config"
	// TestPath is the path of the connection test endpoint.
	TestPath = handler.RootPath + "config/test"
)

// Service is the directory configuration handler service.
type Service struct {
	backend   handler.Backend
	validator *validator.Validate
}

// Handler is the directory configuration handler.
var Handler = Service{}

// Init initializes the directory configuration handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, backend handler.Backend) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.backend = backend
	s.validator = validator.New()

	app.Get(Path, s.Get)
	app.Post(Path, s.Post)
	app.Post(TestPath, s.Test)
}

// Get returns the resolved configuration. The password is masked, the
// provenance tells the operator which source supplied each credential
// field.
func (s *Service) Get(c *fiber.Ctx) error {
	resolved, provenance, err := s.backend.DirectoryConfig()
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve directory config")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "config unavailable"})
	}

	return c.JSON(fiber.Map{
		"apiUrl":      resolved.URL,
		"apiUsername": resolved.Username,
		"apiPassword": config.MaskSecret(resolved.Password),
		"syncEmail":   resolved.SyncEmail,
		"syncPhoto":   resolved.SyncPhoto,
		"complete":    resolved.Complete(),
		"provenance": fiber.Map{
			"apiUrl":      provenance.URL,
			"apiUsername": provenance.Username,
			"apiPassword": provenance.Password,
		},
	})
}

// Post stores operator-provided directory settings. Statically
// configured fields still win on resolution; this only writes the
// stored layer.
func (s *Service) Post(c *fiber.Ctx) error {
	var settings dirsettings.Settings
	if err := c.BodyParser(&settings); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "invalid settings payload"})
	}

	if err := s.validator.Struct(&settings); err != nil {
		var validationErrors validator.ValidationErrors
		errors.As(err, &validationErrors)

		messages := make([]string, len(validationErrors))
		for i, ve := range validationErrors {
			messages[i] = "field '" + ve.Field() + "' failed validation tag '" + ve.Tag() + "'"
		}

		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": messages})
	}

	if err := s.backend.SaveDirectorySettings(settings); err != nil {
		log.Error().Err(err).Msg("failed to save directory settings")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "save failed"})
	}

	log.Info().Str("api_url", settings.APIURL).Msg("directory settings saved")

	return c.JSON(fiber.Map{"saved": true})
}

// Test probes the directory with the currently resolved configuration.
func (s *Service) Test(c *fiber.Ctx) error {
	err := s.backend.TestDirectory(c.Context())
	if err == nil {
		return c.JSON(fiber.Map{"ok": true})
	}

	if errors.Is(err, directory.ErrAccessDenied) {
		return c.Status(fiber.StatusUnauthorized).
			JSON(fiber.Map{"ok": false, "error": "directory rejected the credentials"})
	}

	if errors.Is(err, config.ErrDirectoryIncomplete) {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"ok": false, "error": "directory configuration incomplete"})
	}

	log.Warn().Err(err).Msg("directory connection test failed")

	return c.Status(fiber.StatusBadGateway).
		JSON(fiber.Map{"ok": false, "error": err.Error()})
}
