package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/vobridge/vobridge/internal/config"
	"github.com/vobridge/vobridge/internal/db/controller/dirsettings"
	"github.com/vobridge/vobridge/internal/scan"
	"github.com/vobridge/vobridge/internal/syncer"
)

// Backend is the application core the handlers call into. The daemon
// implements it; handlers stay free of wiring concerns.
type Backend interface {
	// Authenticate verifies credentials against the directory and
	// returns the canonical uid. ok=false covers bad credentials and
	// directory outages alike; err is reserved for configuration
	// problems.
	Authenticate(ctx context.Context, uid, password string) (canonical string, ok bool, err error)

	// Scan builds the duplicate report.
	Scan() (*scan.Report, error)
	// Expose makes a duplicate account loginable again.
	Expose(uid, displayName string) error
	// Hide removes a duplicate's exposure. Returns
	// scan.ErrCanonicalMember for the canonical member.
	Hide(uid string) error

	// SyncAll runs a bulk sync. Returns syncer.ErrRunInProgress when
	// one is already in flight.
	SyncAll(ctx context.Context) (*syncer.Summary, error)
	// SyncStatus returns the last persisted run status and whether a
	// run is currently in flight.
	SyncStatus() (dirsettings.SyncStatus, bool, error)

	// DirectoryConfig returns the resolved directory configuration and
	// its per-field provenance.
	DirectoryConfig() (config.Resolved, config.Provenance, error)
	// SaveDirectorySettings stores operator-provided settings.
	SaveDirectorySettings(settings dirsettings.Settings) error
	// TestDirectory probes the directory with the resolved
	// configuration. Returns directory.ErrAccessDenied on rejected
	// credentials.
	TestDirectory(ctx context.Context) error
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, db *gorm.DB, backend Backend)
}
