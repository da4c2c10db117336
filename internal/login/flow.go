// Package login runs the credential check against the directory and
// keeps the local identity mirror in step with it.
package login

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/vobridge/vobridge/internal/identity"
	"github.com/vobridge/vobridge/internal/syncer"
)

// Verifier checks credentials against the directory.
type Verifier interface {
	VerifyLogin(ctx context.Context, user, password string) (string, error)
}

// Store is the slice of the identity store the flow needs.
type Store interface {
	identity.Lookup
	EnsureCreated(uid string) error
}

// Syncer refreshes one identity after a successful login.
type Syncer interface {
	SyncOne(ctx context.Context, uid, externalID string) syncer.Result
}

// Flow answers "is this (uid, password) valid, and which canonical uid
// should the platform use".
type Flow struct {
	store    Store
	verifier Verifier
	syncer   Syncer
}

// NewFlow creates a login flow. syncer may be nil to skip the
// post-login refresh.
func NewFlow(store Store, verifier Verifier, syncer Syncer) *Flow {
	return &Flow{store: store, verifier: verifier, syncer: syncer}
}

// Authenticate resolves the submitted uid, verifies the password
// against the directory and returns the canonical uid on success.
//
// Every failure collapses to ok=false: the platform must not learn
// whether the credentials were wrong or the directory was down. A
// failing post-login sync is logged and never fails the login.
func (f *Flow) Authenticate(ctx context.Context, uid, password string) (string, bool) {
	target, err := identity.ResolveForLogin(f.store, uid)
	if err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("login resolution failed")
		return "", false
	}

	externalID, err := f.verifier.VerifyLogin(ctx, target.UID, password)
	if err != nil {
		log.Warn().Err(err).Str("uid", target.UID).Msg("directory verification failed")
		return "", false
	}

	if externalID == "" {
		log.Debug().Str("uid", target.UID).Msg("invalid credentials")
		return "", false
	}

	if err := f.store.EnsureCreated(target.UID); err != nil {
		log.Error().Err(err).Str("uid", target.UID).Msg("failed to create identity")
		return "", false
	}

	if f.syncer != nil {
		result := f.syncer.SyncOne(ctx, target.UID, externalID)
		if result.Outcome.Failed() {
			log.Warn().
				Err(result.Err).
				Str("uid", target.UID).
				Str("outcome", result.Outcome.String()).
				Msg("post-login sync failed")
		}
	}

	log.Info().
		Str("uid", target.UID).
		Str("resolution", target.Kind.String()).
		Msg("login verified")

	return target.UID, true
}
