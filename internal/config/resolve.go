package config

import (
	"strings"
)

// Source identifies where a resolved directory configuration value
// came from.
type Source string

const (
	// SourceConfigFile means the value came from the static TOML config.
	SourceConfigFile Source = "config_file"
	// SourceSettings means the value came from the stored settings.
	SourceSettings Source = "settings"
	// SourceUnset means neither source provided the value.
	SourceUnset Source = "unset"
)

// Stored carries the directory settings persisted in the settings
// table, as loaded by the caller.
type Stored struct {
	URL       string
	Username  string
	Password  string
	SyncEmail bool
	SyncPhoto bool
}

// Resolved is a fully merged directory configuration.
type Resolved struct {
	URL       string
	Username  string
	Password  string
	SyncEmail bool
	SyncPhoto bool
}

// Provenance records per field which source supplied the value.
type Provenance struct {
	URL      Source
	Username Source
	Password Source
}

// Complete reports whether all fields needed to call the directory API
// are present.
func (r Resolved) Complete() bool {
	return r.URL != "" && r.Username != "" && r.Password != ""
}

// ResolveDirectory merges the statically provisioned directory settings
// with the stored ones, field by field, static taking precedence. It is
// a pure function; every consumer of directory credentials goes through
// it so the precedence rule lives in exactly one place.
func ResolveDirectory(static Directory, stored Stored) (Resolved, Provenance) {
	// Plain bools cannot express "unset", so the feature toggles merge
	// with OR: enabling in either source enables the feature, and the
	// static file cannot force a stored true back to false.
	r := Resolved{
		SyncEmail: static.SyncEmail || stored.SyncEmail,
		SyncPhoto: static.SyncPhoto || stored.SyncPhoto,
	}
	p := Provenance{URL: SourceUnset, Username: SourceUnset, Password: SourceUnset}

	r.URL, p.URL = pick(static.URL, stored.URL)
	r.Username, p.Username = pick(static.Username, stored.Username)
	r.Password, p.Password = pick(static.Password, stored.Password)

	r.URL = strings.TrimRight(r.URL, "/")

	return r, p
}

func pick(static, stored string) (string, Source) {
	switch {
	case static != "":
		return static, SourceConfigFile
	case stored != "":
		return stored, SourceSettings
	default:
		return "", SourceUnset
	}
}

// MaskSecret masks a secret for display surfaces, preserving length.
func MaskSecret(secret string) string {
	return strings.Repeat("*", len(secret))
}
