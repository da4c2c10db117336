package dirsettings

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vobridge/vobridge/internal/config"
	"github.com/vobridge/vobridge/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.Setting{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func TestSettingsLoadMissing(t *testing.T) {
	db := setupTestDB(t)

	var s Settings
	require.NoError(t, s.Load(db))
	assert.Equal(t, Settings{}, s)
}

func TestSettingsSaveLoad(t *testing.T) {
	db := setupTestDB(t)

	in := Settings{
		APIURL:      "https://vo.example.org",
		APIUsername: "admin",
		APIPassword: "secret",
		SyncEmail:   true,
	}
	require.NoError(t, in.Save(db))

	var out Settings
	require.NoError(t, out.Load(db))
	assert.Equal(t, in, out)
}

func TestSettingsSaveKeepsPassword(t *testing.T) {
	db := setupTestDB(t)

	first := Settings{APIURL: "https://vo.example.org", APIUsername: "admin", APIPassword: "secret"}
	require.NoError(t, first.Save(db))

	// Update without password: the stored one must survive.
	update := Settings{APIURL: "https://vo.example.org/v2", APIUsername: "admin2"}
	require.NoError(t, update.Save(db))

	var out Settings
	require.NoError(t, out.Load(db))
	assert.Equal(t, "secret", out.APIPassword)
	assert.Equal(t, "https://vo.example.org/v2", out.APIURL)
	assert.Equal(t, "admin2", out.APIUsername)
}

func TestClear(t *testing.T) {
	db := setupTestDB(t)

	// Clearing an empty store is fine.
	require.NoError(t, Clear(db))

	s := Settings{APIURL: "https://vo.example.org"}
	require.NoError(t, s.Save(db))
	require.NoError(t, Clear(db))

	var out Settings
	require.NoError(t, out.Load(db))
	assert.Equal(t, Settings{}, out)
}

func TestStored(t *testing.T) {
	s := Settings{
		APIURL:      "https://vo.example.org",
		APIUsername: "u",
		APIPassword: "p",
		SyncPhoto:   true,
	}

	assert.Equal(t, config.Stored{
		URL:       "https://vo.example.org",
		Username:  "u",
		Password:  "p",
		SyncPhoto: true,
	}, s.Stored())
}

func TestSyncStatusRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	var empty SyncStatus
	require.NoError(t, empty.Load(db))
	assert.True(t, empty.LastRun.IsZero())

	in := SyncStatus{
		LastRun: time.Date(2025, 10, 5, 3, 0, 0, 0, time.UTC),
		Status:  "success",
		Total:   10,
		Synced:  8,
		Skipped: 2,
	}
	require.NoError(t, in.Save(db))

	var out SyncStatus
	require.NoError(t, out.Load(db))
	assert.Equal(t, in.Status, out.Status)
	assert.Equal(t, in.Total, out.Total)
	assert.True(t, in.LastRun.Equal(out.LastRun))
}
