package config

import (
	"github.com/vobridge/vobridge/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Directory Directory
}

// Webserver implement webserver settings.
type Webserver struct {
	Port         int    // listening port for the webserver
	ShutDownTime int    // wait time for shutdown
	URL          string // base url for the webserver
	AdminToken   string // shared secret for the admin JSON API
}

// Directory holds the statically provisioned VereinOnline API settings.
// Empty fields fall back to the stored settings, field by field (see
// Resolve). SyncEmail and SyncPhoto gate which profile fields the sync
// engine applies.
type Directory struct {
	URL         string `validate:"omitempty,url"`
	Username    string
	Password    string
	SyncEmail   bool
	SyncPhoto   bool
	NightlySync bool
	AvatarDir   string // where synced member photos are stored
}
