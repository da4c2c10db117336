package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vobridge/vobridge/internal/config"
	"github.com/vobridge/vobridge/internal/db/controller/dirsettings"
	"github.com/vobridge/vobridge/internal/scan"
	"github.com/vobridge/vobridge/internal/syncer"
)

type fakeBackend struct {
	report     *scan.Report
	hideErr    error
	syncErr    error
	summary    *syncer.Summary
	saved      []dirsettings.Settings
	testErr    error
	authErr    error
	resolved   config.Resolved
	provenance config.Provenance
}

func (f *fakeBackend) Authenticate(_ context.Context, uid, password string) (string, bool, error) {
	if f.authErr != nil {
		return "", false, f.authErr
	}

	if password == "pw" {
		return strings.ToLower(uid), true, nil
	}

	return "", false, nil
}

func (f *fakeBackend) Scan() (*scan.Report, error) {
	return f.report, nil
}

func (f *fakeBackend) Expose(string, string) error {
	return nil
}

func (f *fakeBackend) Hide(string) error {
	return f.hideErr
}

func (f *fakeBackend) SyncAll(context.Context) (*syncer.Summary, error) {
	if f.syncErr != nil {
		return nil, f.syncErr
	}

	return f.summary, nil
}

func (f *fakeBackend) SyncStatus() (dirsettings.SyncStatus, bool, error) {
	return dirsettings.SyncStatus{Status: "success"}, false, nil
}

func (f *fakeBackend) DirectoryConfig() (config.Resolved, config.Provenance, error) {
	return f.resolved, f.provenance, nil
}

func (f *fakeBackend) SaveDirectorySettings(settings dirsettings.Settings) error {
	f.saved = append(f.saved, settings)

	return nil
}

func (f *fakeBackend) TestDirectory(context.Context) error {
	return f.testErr
}

func setupService(t *testing.T, backend *fakeBackend) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	cfg := &config.Config{}
	cfg.Webserver.AdminToken = "t0ken"

	return New(cfg, db, backend)
}

func doRequest(t *testing.T, svc *Service, method, path, token, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := svc.App.Test(req, -1)
	require.NoError(t, err)

	return resp
}

func TestHealth(t *testing.T) {
	svc := setupService(t, &fakeBackend{})

	resp := doRequest(t, svc, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	svc := setupService(t, &fakeBackend{})

	resp := doRequest(t, svc, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIRequiresToken(t *testing.T) {
	svc := setupService(t, &fakeBackend{report: &scan.Report{}})

	resp := doRequest(t, svc, http.MethodGet, "/api/scan", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, svc, http.MethodGet, "/api/scan", "wrong", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, svc, http.MethodGet, "/api/scan", "t0ken", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIDisabledWithoutToken(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	svc := New(&config.Config{}, db, &fakeBackend{})

	resp := doRequest(t, svc, http.MethodGet, "/api/scan", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestScanReport(t *testing.T) {
	backend := &fakeBackend{report: &scan.Report{
		AllManagedUsers: []scan.Member{{UID: "alice", IsCanonical: true}},
	}}
	svc := setupService(t, backend)

	resp := doRequest(t, svc, http.MethodGet, "/api/scan", "t0ken", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report scan.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	require.Len(t, report.AllManagedUsers, 1)
	assert.Equal(t, "alice", report.AllManagedUsers[0].UID)
}

func TestHideCanonicalConflict(t *testing.T) {
	svc := setupService(t, &fakeBackend{hideErr: scan.ErrCanonicalMember})

	resp := doRequest(t, svc, http.MethodPost, "/api/users/hide", "t0ken", `{"uid":"alice"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHideRequiresUID(t *testing.T) {
	svc := setupService(t, &fakeBackend{})

	resp := doRequest(t, svc, http.MethodPost, "/api/users/hide", "t0ken", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSyncConflict(t *testing.T) {
	svc := setupService(t, &fakeBackend{syncErr: syncer.ErrRunInProgress})

	resp := doRequest(t, svc, http.MethodPost, "/api/sync", "t0ken", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSyncReturnsSummary(t *testing.T) {
	svc := setupService(t, &fakeBackend{summary: &syncer.Summary{RunID: "r1", Total: 3, Synced: 3}})

	resp := doRequest(t, svc, http.MethodPost, "/api/sync", "t0ken", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary syncer.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, "r1", summary.RunID)
	assert.Equal(t, 3, summary.Synced)
}

func TestConfigMasksPassword(t *testing.T) {
	backend := &fakeBackend{
		resolved: config.Resolved{
			URL:      "https://vo.example.org",
			Username: "admin",
			Password: "secret",
		},
		provenance: config.Provenance{
			URL:      config.SourceConfigFile,
			Username: config.SourceSettings,
			Password: config.SourceSettings,
		},
	}
	svc := setupService(t, backend)

	resp := doRequest(t, svc, http.MethodGet, "/api/config", "t0ken", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "******", payload["apiPassword"])
	assert.Equal(t, true, payload["complete"])

	provenance, ok := payload["provenance"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "config_file", provenance["apiUrl"])
}

func TestConfigSave(t *testing.T) {
	backend := &fakeBackend{}
	svc := setupService(t, backend)

	resp := doRequest(t, svc, http.MethodPost, "/api/config", "t0ken",
		`{"apiUrl":"https://vo.example.org","apiUsername":"admin","apiPassword":"pw"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, backend.saved, 1)
	assert.Equal(t, "https://vo.example.org", backend.saved[0].APIURL)
}

func TestConfigSaveRejectsBadURL(t *testing.T) {
	svc := setupService(t, &fakeBackend{})

	resp := doRequest(t, svc, http.MethodPost, "/api/config", "t0ken",
		`{"apiUrl":"not a url"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	svc := setupService(t, &fakeBackend{})

	resp := doRequest(t, svc, http.MethodPost, "/api/auth/login", "t0ken",
		`{"username":"Alice","password":"pw"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, true, payload["ok"])
	assert.Equal(t, "alice", payload["uid"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc := setupService(t, &fakeBackend{})

	resp := doRequest(t, svc, http.MethodPost, "/api/auth/login", "t0ken",
		`{"username":"Alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginUnavailable(t *testing.T) {
	svc := setupService(t, &fakeBackend{authErr: config.ErrDirectoryIncomplete})

	resp := doRequest(t, svc, http.MethodPost, "/api/auth/login", "t0ken",
		`{"username":"Alice","password":"pw"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestConfigTest(t *testing.T) {
	svc := setupService(t, &fakeBackend{})

	resp := doRequest(t, svc, http.MethodPost, "/api/config/test", "t0ken", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
