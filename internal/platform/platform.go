// Package platform defines the collaborator interfaces through which
// the sync and scan logic touches the host platform, plus standalone
// implementations used by the daemon. Everything is injected at
// construction, no component reaches for ambient registries.
package platform

import (
	"image"

	"github.com/vobridge/vobridge/internal/db/models"
)

// ProfileSink receives profile field updates for a platform account.
type ProfileSink interface {
	SetDisplayName(uid, displayName string) error
	SetEmail(uid, email string) error
}

// AvatarSink stores a user's avatar image.
type AvatarSink interface {
	SetAvatar(uid string, img image.Image) error
}

// Accounts exposes the platform's account registry.
type Accounts interface {
	// List returns all platform accounts.
	List() ([]models.Account, error)
	// Ensure creates the account if it does not exist yet.
	Ensure(uid string) error
}

// GroupLookup resolves a platform account's group memberships.
type GroupLookup interface {
	Groups(uid string) ([]string, error)
}

// NoGroups is a GroupLookup for deployments without a group system.
type NoGroups struct{}

// Groups always returns no memberships.
func (NoGroups) Groups(string) ([]string, error) {
	return nil, nil
}
