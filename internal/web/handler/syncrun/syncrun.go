// Package syncrun triggers bulk sync runs and reports their status.
package syncrun

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/vobridge/vobridge/internal/config"
	"github.com/vobridge/vobridge/internal/syncer"
	"github.com/vobridge/vobridge/internal/web/handler"
)

const (
	// Path is the path of the sync trigger endpoint.
	Path = handler.RootPath + "sync"
	// StatusPath is the path of the sync status endpoint.
	StatusPath = handler.RootPath + "sync/status"
)

// Service is the sync run handler service.
type Service struct {
	backend handler.Backend
}

// Handler is the sync run handler.
var Handler = Service{}

// Init initializes the sync run handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, backend handler.Backend) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.backend = backend

	app.Post(Path, s.Post)
	app.Get(StatusPath, s.Status)
}

// Post runs a bulk sync and returns its summary. The run is
// synchronous; operators poll the status endpoint for long runs
// triggered elsewhere.
func (s *Service) Post(c *fiber.Ctx) error {
	summary, err := s.backend.SyncAll(c.Context())
	if errors.Is(err, syncer.ErrRunInProgress) {
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "sync already running"})
	}

	if err != nil {
		log.Error().Err(err).Msg("bulk sync failed")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "sync failed"})
	}

	return c.JSON(summary)
}

// Status reports the last persisted run and whether one is in flight.
func (s *Service) Status(c *fiber.Ctx) error {
	status, running, err := s.backend.SyncStatus()
	if err != nil {
		log.Error().Err(err).Msg("failed to load sync status")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "status unavailable"})
	}

	return c.JSON(fiber.Map{"running": running, "last": status})
}
