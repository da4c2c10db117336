// Package scanreport exposes the duplicate scan and the expose/hide
// operations as JSON endpoints.
package scanreport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/vobridge/vobridge/internal/config"
	"github.com/vobridge/vobridge/internal/scan"
	"github.com/vobridge/vobridge/internal/web/handler"
)

const (
	// Path is the path of the scan report endpoint.
	Path = handler.RootPath + "scan"
	// ExposePath is the path of the expose endpoint.
	ExposePath = handler.RootPath + "users/expose"
	// HidePath is the path of the hide endpoint.
	HidePath = handler.RootPath + "users/hide"
)

// Service is the scan report handler service.
type Service struct {
	backend handler.Backend
}

// Handler is the scan report handler.
var Handler = Service{}

// Init initializes the scan report handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, backend handler.Backend) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.backend = backend

	app.Get(Path, s.Get)
	app.Post(ExposePath, s.Expose)
	app.Post(HidePath, s.Hide)
}

// Get handles the duplicate scan report.
func (s *Service) Get(c *fiber.Ctx) error {
	report, err := s.backend.Scan()
	if err != nil {
		log.Error().Err(err).Msg("duplicate scan failed")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "scan failed"})
	}

	return c.JSON(report)
}

type userRequest struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
}

// Expose handles exposing a duplicate account.
func (s *Service) Expose(c *fiber.Ctx) error {
	var req userRequest
	if err := c.BodyParser(&req); err != nil || req.UID == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "uid required"})
	}

	if err := s.backend.Expose(req.UID, req.DisplayName); err != nil {
		log.Error().Err(err).Str("uid", req.UID).Msg("expose failed")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "expose failed"})
	}

	log.Info().Str("uid", req.UID).Msg("duplicate exposed")

	return c.JSON(fiber.Map{"uid": req.UID, "exposed": true})
}

// Hide handles hiding a duplicate account.
func (s *Service) Hide(c *fiber.Ctx) error {
	var req userRequest
	if err := c.BodyParser(&req); err != nil || req.UID == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "uid required"})
	}

	err := s.backend.Hide(req.UID)
	if errors.Is(err, scan.ErrCanonicalMember) {
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "canonical member cannot be hidden"})
	}

	if err != nil {
		log.Error().Err(err).Str("uid", req.UID).Msg("hide failed")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "hide failed"})
	}

	log.Info().Str("uid", req.UID).Msg("duplicate hidden")

	return c.JSON(fiber.Map{"uid": req.UID, "exposed": false})
}
