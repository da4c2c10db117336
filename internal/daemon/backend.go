package daemon

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vobridge/vobridge/internal/config"
	"github.com/vobridge/vobridge/internal/db/controller/dirsettings"
	"github.com/vobridge/vobridge/internal/directory"
	"github.com/vobridge/vobridge/internal/login"
	"github.com/vobridge/vobridge/internal/platform"
	"github.com/vobridge/vobridge/internal/scan"
	"github.com/vobridge/vobridge/internal/syncer"
)

// resolveDirectory merges the static config with the stored settings.
func (d *Daemon) resolveDirectory() (config.Resolved, config.Provenance, error) {
	var stored dirsettings.Settings
	if err := stored.Load(d.db); err != nil {
		return config.Resolved{}, config.Provenance{}, err
	}

	resolved, provenance := config.ResolveDirectory(d.cfg.Directory, stored.Stored())

	return resolved, provenance, nil
}

// client builds a directory client from the currently resolved
// configuration. Rebuilt on every use so settings changes take effect
// without a restart.
func (d *Daemon) client() (*directory.Client, config.Resolved, error) {
	resolved, _, err := d.resolveDirectory()
	if err != nil {
		return nil, resolved, err
	}

	if !resolved.Complete() {
		return nil, resolved, config.ErrDirectoryIncomplete
	}

	return directory.NewClient(resolved.URL, resolved.Username, resolved.Password), resolved, nil
}

// engine builds a sync engine on the given client.
func (d *Daemon) engine(client *directory.Client, resolved config.Resolved) *syncer.Engine {
	var avatars platform.AvatarSink
	if dir := d.cfg.Directory.AvatarDir; dir != "" {
		avatars = platform.NewDirAvatarSink(dir)
	}

	return syncer.NewEngine(client, d.identities, d.accounts, avatars, syncer.Options{
		SyncEmail: resolved.SyncEmail,
		SyncPhoto: resolved.SyncPhoto,
	})
}

// Authenticate implements handler.Backend.
func (d *Daemon) Authenticate(ctx context.Context, uid, password string) (string, bool, error) {
	client, resolved, err := d.client()
	if err != nil {
		return "", false, err
	}

	flow := login.NewFlow(d.identities, client, d.engine(client, resolved))

	canonical, ok := flow.Authenticate(ctx, uid, password)
	if !ok {
		return "", false, nil
	}

	// Mirror the platform account so scan and profile sync see it.
	if err := d.accounts.Ensure(canonical); err != nil {
		log.Warn().Err(err).Str("uid", canonical).Msg("failed to mirror account")
	}

	return canonical, true, nil
}

// Scan implements handler.Backend.
func (d *Daemon) Scan() (*scan.Report, error) {
	return d.scan.Scan()
}

// Expose implements handler.Backend.
func (d *Daemon) Expose(uid, displayName string) error {
	return d.scan.Expose(uid, displayName)
}

// Hide implements handler.Backend.
func (d *Daemon) Hide(uid string) error {
	return d.scan.Hide(uid)
}

// SyncAll implements handler.Backend. Web trigger, nightly ticker and
// the one-shot CLI command all funnel through here, sharing one
// in-flight guard while still picking up configuration changes per
// run.
func (d *Daemon) SyncAll(ctx context.Context) (*syncer.Summary, error) {
	return d.sync.run(ctx)
}

// SyncStatus implements handler.Backend.
func (d *Daemon) SyncStatus() (dirsettings.SyncStatus, bool, error) {
	var status dirsettings.SyncStatus
	if err := status.Load(d.db); err != nil {
		return status, false, err
	}

	return status, d.sync.running(), nil
}

// DirectoryConfig implements handler.Backend.
func (d *Daemon) DirectoryConfig() (config.Resolved, config.Provenance, error) {
	return d.resolveDirectory()
}

// SaveDirectorySettings implements handler.Backend.
func (d *Daemon) SaveDirectorySettings(settings dirsettings.Settings) error {
	return settings.Save(d.db)
}

// TestDirectory implements handler.Backend.
func (d *Daemon) TestDirectory(ctx context.Context) error {
	client, _, err := d.client()
	if err != nil {
		return err
	}

	return client.Check(ctx)
}

// DiscoverExternalIDs backfills directory ids for every unmarked
// identity row that has none yet.
func (d *Daemon) DiscoverExternalIDs(ctx context.Context) (map[string]string, error) {
	client, resolved, err := d.client()
	if err != nil {
		return nil, err
	}

	rows, err := d.identities.All()
	if err != nil {
		return nil, err
	}

	var usernames []string
	for _, row := range rows {
		if !row.IsMarked() && row.VOUserID == "" {
			usernames = append(usernames, row.UID)
		}
	}

	bulk := syncer.NewBulk(d.engine(client, resolved), d.identities, client, nil)

	return bulk.DiscoverExternalIDs(ctx, usernames)
}

// syncControl serializes bulk runs across all triggers.
type syncControl struct {
	d        *Daemon
	inFlight atomic.Bool
}

func (s *syncControl) running() bool {
	return s.inFlight.Load()
}

func (s *syncControl) run(ctx context.Context) (*syncer.Summary, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, syncer.ErrRunInProgress
	}
	defer s.inFlight.Store(false)

	client, resolved, err := s.d.client()
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	bulk := syncer.NewBulk(
		s.d.engine(client, resolved),
		s.d.identities,
		client,
		&statusRecorder{d: s.d},
	)

	summary, err := bulk.SyncAll(ctx)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	return summary, nil
}

func (s *syncControl) recordFailure(err error) {
	status := dirsettings.SyncStatus{
		LastRun: time.Now(),
		Status:  "error",
		Error:   err.Error(),
	}
	if saveErr := status.Save(s.d.db); saveErr != nil {
		log.Warn().Err(saveErr).Msg("failed to persist run status")
	}
}

// statusRecorder persists bulk run summaries to the settings table.
type statusRecorder struct {
	d *Daemon
}

func (r *statusRecorder) Record(summary syncer.Summary) error {
	status := dirsettings.SyncStatus{
		LastRun: summary.FinishedAt,
		Status:  "success",
		Total:   summary.Total,
		Synced:  summary.Synced,
		Failed:  summary.Failed,
		Skipped: summary.Skipped,
	}
	if summary.Failed > 0 {
		status.Status = "partial"
	}

	return status.Save(r.d.db)
}
