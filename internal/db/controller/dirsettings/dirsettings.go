// Package dirsettings stores the operator-provided directory
// configuration and the bulk sync run status in the settings table.
package dirsettings

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/vobridge/vobridge/internal/config"
	"github.com/vobridge/vobridge/internal/db/controller/setting"
)

const (
	// SettingKeyDirectory is the key for the stored directory settings.
	SettingKeyDirectory = "directory"
	// SettingKeySyncStatus is the key for the last bulk sync run status.
	SettingKeySyncStatus = "sync_status"
)

type (
	// Settings represents the stored directory configuration, the
	// dynamically provisioned counterpart to config.Directory.
	Settings struct {
		APIURL            string `form:"api_url"      json:"apiUrl"      validate:"omitempty,url"`
		APIUsername       string `form:"api_username" json:"apiUsername"`
		APIPassword       string `form:"api_password" json:"apiPassword"`
		SyncEmail         bool   `form:"sync_email"   json:"syncEmail"`
		SyncPhoto         bool   `form:"sync_photo"   json:"syncPhoto"`
		EnableNightlySync bool   `form:"enable_nightly_sync" json:"enableNightlySync"`
	}

	// SyncStatus records the outcome of the last bulk sync run.
	SyncStatus struct {
		LastRun time.Time `json:"lastRun"`
		Status  string    `json:"status"`
		Error   string    `json:"error"`
		Total   int       `json:"total"`
		Synced  int       `json:"synced"`
		Failed  int       `json:"failed"`
		Skipped int       `json:"skipped"`
	}
)

// Load loads the stored directory settings from the database. A missing
// row is not an error: it yields the zero value, meaning nothing has
// been provisioned dynamically yet.
func (s *Settings) Load(db *gorm.DB) error {
	row, err := setting.Get(db, SettingKeyDirectory)
	if errors.Is(err, setting.ErrSettingNotFound) {
		*s = Settings{}
		return nil
	}

	if err != nil {
		return err
	}

	return json.Unmarshal(row.Value, s)
}

// Save saves the stored directory settings. An empty password keeps the
// previously stored one so operators can update the URL or username
// without re-entering the secret.
func (s *Settings) Save(db *gorm.DB) error {
	if s.APIPassword == "" {
		var existing Settings
		if err := existing.Load(db); err == nil {
			s.APIPassword = existing.APIPassword
		}
	}

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	_, err = setting.Set(db, SettingKeyDirectory, data)

	return err
}

// Clear removes the stored directory settings.
func Clear(db *gorm.DB) error {
	err := setting.DeleteByName(db, SettingKeyDirectory)
	if errors.Is(err, setting.ErrSettingNotFound) {
		return nil
	}

	return err
}

// Stored converts the settings into the shape consumed by
// config.ResolveDirectory.
func (s Settings) Stored() config.Stored {
	return config.Stored{
		URL:       s.APIURL,
		Username:  s.APIUsername,
		Password:  s.APIPassword,
		SyncEmail: s.SyncEmail,
		SyncPhoto: s.SyncPhoto,
	}
}

// Load loads the last sync run status. A missing row yields the zero
// value.
func (s *SyncStatus) Load(db *gorm.DB) error {
	row, err := setting.Get(db, SettingKeySyncStatus)
	if errors.Is(err, setting.ErrSettingNotFound) {
		*s = SyncStatus{}
		return nil
	}

	if err != nil {
		return err
	}

	return json.Unmarshal(row.Value, s)
}

// Save persists the sync run status.
func (s *SyncStatus) Save(db *gorm.DB) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	_, err = setting.Set(db, SettingKeySyncStatus, data)

	return err
}
