// Package identity contains the pure uid resolution logic: case
// folding, the duplicate marker convention, and the three-way login
// resolution that keeps one canonical account per person regardless of
// the casing they type.
package identity

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vobridge/vobridge/internal/db/models"
)

// DisplayPrefix marks exposed duplicate accounts in user-facing names.
const DisplayPrefix = "(D) "

// TargetKind classifies the outcome of a login resolution.
type TargetKind int

const (
	// ExactMatch means a row with this exact casing exists, canonical
	// or marked. Authenticate against it directly.
	ExactMatch TargetKind = iota
	// CanonicalMatch means no exact-case row exists but a canonical
	// row does for the folded uid. Authenticate against that one.
	CanonicalMatch
	// NewUser means nothing is stored yet. The caller creates the
	// identity under the all-lowercase uid.
	NewUser
)

func (k TargetKind) String() string {
	switch k {
	case ExactMatch:
		return "exact"
	case CanonicalMatch:
		return "canonical"
	case NewUser:
		return "new"
	default:
		return "unknown"
	}
}

// Target is the resolved login identity.
type Target struct {
	Kind TargetKind
	// UID is the uid to authenticate and persist under: the submitted
	// casing for ExactMatch, the stored casing for CanonicalMatch, the
	// lowercase form for NewUser.
	UID string
}

// Lookup is the slice of the identity store the resolver needs.
type Lookup interface {
	// ExistsExact reports whether a row exists for the exact uid or
	// its marked counterpart.
	ExistsExact(uid string) (bool, error)
	// CanonicalFor returns the uid of the unmarked row whose folded
	// uid equals normalizedUID, or "" if none exists.
	CanonicalFor(normalizedUID string) (string, error)
}

// Normalize case-folds a uid. Marker stripping is deliberately a
// separate step, callers combine the two as needed.
func Normalize(uid string) string {
	return strings.ToLower(uid)
}

// StripMarker removes the duplicate marker suffix if present and
// reports whether it was there.
func StripMarker(uid string) (string, bool) {
	if strings.HasSuffix(uid, models.DuplicateMarker) {
		return strings.TrimSuffix(uid, models.DuplicateMarker), true
	}

	return uid, false
}

// ResolveForLogin maps a submitted login uid to the identity to
// authenticate against. Priority: exact casing, then the canonical row
// for the folded uid, then a brand-new lowercase identity. This order
// is what prevents a different login casing from forking a second
// account for an existing person.
//
// A marker submitted at login time can only originate from our own
// tables leaking into a login form. That is a defect, not a user
// error: log it and resolve the base uid instead.
func ResolveForLogin(store Lookup, uid string) (Target, error) {
	base, marked := StripMarker(uid)
	if marked {
		log.Error().
			Str("uid", uid).
			Msg("duplicate marker submitted at login, stripping")
	}

	exists, err := store.ExistsExact(base)
	if err != nil {
		return Target{}, err
	}

	if exists {
		return Target{Kind: ExactMatch, UID: base}, nil
	}

	canonical, err := store.CanonicalFor(Normalize(base))
	if err != nil {
		return Target{}, err
	}

	if canonical != "" {
		return Target{Kind: CanonicalMatch, UID: canonical}, nil
	}

	return Target{Kind: NewUser, UID: Normalize(base)}, nil
}

// FormatDisplayName builds the platform-visible name for a stored row:
// the stored display name when present, the base uid otherwise, with
// the duplicate prefix when the row is marked.
func FormatDisplayName(storedUID, storedDisplayName string) string {
	base, marked := StripMarker(storedUID)

	name := storedDisplayName
	if name == "" {
		name = base
	}

	if marked {
		return DisplayPrefix + name
	}

	return name
}

// StripDisplayPrefix removes the duplicate prefix. The platform may
// echo a formatted name back on profile writes; strip it before
// persisting so the prefix never compounds.
func StripDisplayPrefix(name string) string {
	return strings.TrimPrefix(name, DisplayPrefix)
}
