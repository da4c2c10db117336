// Package syncer refreshes local identities from the directory: one
// user at a time through Engine, all users through Bulk.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vobridge/vobridge/internal/directory"
	"github.com/vobridge/vobridge/internal/platform"
)

// Outcome classifies one sync attempt.
type Outcome int

const (
	// Success means profile data was refreshed.
	Success Outcome = iota
	// SyncedDeleted means the directory flags the member deleted. The
	// available fields are applied anyway; removing the local row is
	// an explicit admin action, never automatic.
	SyncedDeleted
	// SkippedNoLogin means the member has no directory login name and
	// is not a directory-backed user.
	SkippedNoLogin
	// FailedAPI means the member payload could not be fetched.
	FailedAPI
	// FailedLocalUserMissing means no local identity row exists for
	// the uid.
	FailedLocalUserMissing
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case SyncedDeleted:
		return "synced_deleted"
	case SkippedNoLogin:
		return "skipped_no_login"
	case FailedAPI:
		return "failed_api"
	case FailedLocalUserMissing:
		return "failed_local_user_missing"
	default:
		return "unknown"
	}
}

// Failed reports whether the outcome counts as a failure.
func (o Outcome) Failed() bool {
	return o == FailedAPI || o == FailedLocalUserMissing
}

// Result is the per-user sync outcome.
type Result struct {
	UID     string  `json:"uid"`
	Outcome Outcome `json:"outcome"`
	Err     error   `json:"-"`
}

// Directory is the slice of the directory client the engine needs.
type Directory interface {
	GetMember(ctx context.Context, externalID string) (*directory.Member, error)
	PhotoURL(photo string) (string, error)
	FetchPhoto(ctx context.Context, photoURL string) ([]byte, error)
}

// Identities is the slice of the identity store the engine needs.
type Identities interface {
	ExistsExact(uid string) (bool, error)
	SetDisplayName(uid, displayName string) error
	UpsertSyncMetadata(uid, voUserID, voUsername, voGroupIDs string, syncedAt time.Time) error
}

// Options toggle the optional profile fields.
type Options struct {
	SyncEmail bool
	SyncPhoto bool
}

// Engine refreshes one identity from the directory.
type Engine struct {
	dir     Directory
	store   Identities
	profile platform.ProfileSink
	avatars platform.AvatarSink
	opts    Options
	now     func() time.Time
}

// NewEngine creates a sync engine. profile and avatars may be nil when
// the deployment has no matching sink.
func NewEngine(dir Directory, store Identities, profile platform.ProfileSink, avatars platform.AvatarSink, opts Options) *Engine {
	return &Engine{
		dir:     dir,
		store:   store,
		profile: profile,
		avatars: avatars,
		opts:    opts,
		now:     time.Now,
	}
}

// SyncOne refreshes the identity's profile data from the directory.
// Field-level write failures are logged and do not change the outcome;
// the sync metadata is persisted whenever the fetch itself succeeded.
func (e *Engine) SyncOne(ctx context.Context, uid, externalID string) Result {
	exists, err := e.store.ExistsExact(uid)
	if err != nil {
		return Result{UID: uid, Outcome: FailedAPI, Err: fmt.Errorf("identity lookup: %w", err)}
	}

	if !exists {
		return Result{UID: uid, Outcome: FailedLocalUserMissing}
	}

	member, err := e.dir.GetMember(ctx, externalID)
	if err != nil {
		return Result{UID: uid, Outcome: FailedAPI, Err: err}
	}

	if member.Login == "" {
		return Result{UID: uid, Outcome: SkippedNoLogin}
	}

	e.applyProfile(ctx, uid, member)

	err = e.store.UpsertSyncMetadata(uid, externalID, member.Login, member.GroupIDs, e.now())
	if err != nil {
		// Local write, not a directory problem; the wrap keeps the
		// failure class visible in the bulk report.
		return Result{UID: uid, Outcome: FailedAPI, Err: fmt.Errorf("persist sync metadata: %w", err)}
	}

	if member.IsDeleted() {
		return Result{UID: uid, Outcome: SyncedDeleted}
	}

	return Result{UID: uid, Outcome: Success}
}

func (e *Engine) applyProfile(ctx context.Context, uid string, member *directory.Member) {
	if name := member.DisplayName(); name != "" {
		if err := e.store.SetDisplayName(uid, name); err != nil {
			log.Warn().Err(err).Str("uid", uid).Msg("failed to store display name")
		}

		if e.profile != nil {
			if err := e.profile.SetDisplayName(uid, name); err != nil {
				log.Warn().Err(err).Str("uid", uid).Msg("failed to set platform display name")
			}
		}
	}

	if e.opts.SyncEmail && member.Email != "" && e.profile != nil {
		if err := e.profile.SetEmail(uid, member.Email); err != nil {
			log.Warn().Err(err).Str("uid", uid).Msg("failed to set email")
		}
	}

	if e.opts.SyncPhoto && e.avatars != nil {
		if err := e.syncPhoto(ctx, uid, member.Photo); err != nil {
			log.Warn().Err(err).Str("uid", uid).Msg("photo not synced")
		}
	}
}

// syncPhoto downloads, validates and stores the member photo. Every
// rejection is soft, the enclosing sync outcome is unaffected.
func (e *Engine) syncPhoto(ctx context.Context, uid, photo string) error {
	if isPlaceholder(photo) {
		return nil
	}

	photoURL, err := e.dir.PhotoURL(photo)
	if err != nil {
		return err
	}

	data, err := e.dir.FetchPhoto(ctx, photoURL)
	if err != nil {
		return err
	}

	// Content sniffing, never trust the filename.
	img, err := decodeImage(data)
	if err != nil {
		return err
	}

	return e.avatars.SetAvatar(uid, normalizeAvatar(img))
}
