// Package daemon wires the application together: database, directory
// client, sync engine, scan service, web API and the nightly sync
// ticker. It implements the web handlers' Backend interface.
package daemon

import (
	"fmt"

	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/vobridge/vobridge/internal/config"
	identitystore "github.com/vobridge/vobridge/internal/db/controller/identity"
	"github.com/vobridge/vobridge/internal/db/dsn"
	"github.com/vobridge/vobridge/internal/db/models"
	"github.com/vobridge/vobridge/internal/platform"
	"github.com/vobridge/vobridge/internal/scan"
	"github.com/vobridge/vobridge/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	identities *identitystore.Store
	accounts   *platform.AccountStore
	scan       *scan.Service
	sync       *syncControl
	webService *web.Service
	nightly    *nightly
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	db, err := gorm.Open(gormmysql.Open(dsn.Create(cfg)), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	return NewWithDB(cfg, db)
}

// NewWithDB wires a daemon on an already opened database connection.
func NewWithDB(cfg *config.Config, db *gorm.DB) (*Daemon, error) {
	if err := db.AutoMigrate(
		&models.Identity{},
		&models.Account{},
		&models.Setting{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	d := &Daemon{
		cfg:        cfg,
		db:         db,
		identities: identitystore.NewStore(db),
		accounts:   platform.NewAccountStore(db),
	}
	d.scan = scan.NewService(d.identities, d.accounts, platform.NoGroups{})
	d.sync = &syncControl{d: d}
	d.webService = web.New(cfg, db, d)
	d.nightly = newNightly(d)

	return d, nil
}

// DB exposes the database connection for one-shot commands.
func (d *Daemon) DB() *gorm.DB {
	return d.db
}

// Start runs the nightly ticker and the web service, then blocks until
// the web service stops.
func (d *Daemon) Start() error {
	d.nightly.start()
	defer d.nightly.stopAndWait()

	addr := fmt.Sprintf(":%d", d.cfg.Webserver.Port)
	log.Info().Str("addr", addr).Msg("starting web service")

	go d.webService.WaitShutdown()

	return d.webService.Start(addr)
}
