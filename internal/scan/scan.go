// Package scan builds the duplicate report over the platform accounts
// managed by the directory backend, and carries the two operator
// writes that go with it: exposing and hiding a duplicate.
package scan

import (
	"errors"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vobridge/vobridge/internal/db/models"
	"github.com/vobridge/vobridge/internal/identity"
	"github.com/vobridge/vobridge/internal/platform"
)

// ErrCanonicalMember is returned when an operator tries to hide the
// canonical member of a duplicate set.
var ErrCanonicalMember = errors.New("canonical member cannot be hidden")

// Identities is the slice of the identity store the service needs.
type Identities interface {
	All() ([]models.Identity, error)
	Insert(uid, displayName string) error
	DeleteExact(uid string) error
	CanonicalFor(normalizedUID string) (string, error)
}

// Member is one platform account inside a duplicate group.
type Member struct {
	UID               string   `json:"uid"`
	DisplayName       string   `json:"displayName"`
	Groups            []string `json:"groups,omitempty"`
	IsCanonical       bool     `json:"isCanonical"`
	IsExposed         bool     `json:"isExposed"`
	IsMarkedDuplicate bool     `json:"isMarkedDuplicate"`
}

// Set is a group of platform accounts sharing one normalized uid.
type Set struct {
	NormalizedUID string   `json:"normalizedUid"`
	Members       []Member `json:"members"`
}

// Report is the duplicate scan result. Read-only, scanning never
// mutates anything.
type Report struct {
	DuplicateSets   []Set    `json:"duplicateSets"`
	AllManagedUsers []Member `json:"allManagedUsers"`
}

// Service builds duplicate reports and applies expose/hide.
type Service struct {
	store    Identities
	accounts platform.Accounts
	groups   platform.GroupLookup
}

// NewService creates a scan service. groups may be nil when the
// platform has no group system.
func NewService(store Identities, accounts platform.Accounts, groups platform.GroupLookup) *Service {
	if groups == nil {
		groups = platform.NoGroups{}
	}

	return &Service{store: store, accounts: accounts, groups: groups}
}

// Scan groups all managed platform accounts by normalized uid. An
// account is managed when some identity row matches its uid case
// insensitively, marker ignored. Groups with more than one member are
// the duplicate sets.
func (s *Service) Scan() (*Report, error) {
	rows, err := s.store.All()
	if err != nil {
		return nil, err
	}

	accounts, err := s.accounts.List()
	if err != nil {
		return nil, err
	}

	// Identity rows by the exact base uid, and the canonical row per
	// normalized uid.
	byBase := make(map[string]models.Identity, len(rows))
	canonical := make(map[string]string)
	managed := make(map[string]bool)

	for _, row := range rows {
		base, marked := identity.StripMarker(row.UID)
		// When both "alice" and "alice!duplicate" exist the unmarked row
		// describes the account.
		if existing, ok := byBase[base]; !ok || (existing.IsMarked() && !marked) {
			byBase[base] = row
		}
		managed[identity.Normalize(base)] = true
		if !marked {
			canonical[identity.Normalize(base)] = base
		}
	}

	groups := make(map[string][]Member)

	for _, account := range accounts {
		norm := identity.Normalize(account.UID)
		if !managed[norm] {
			continue
		}

		member := Member{
			UID:         account.UID,
			DisplayName: account.DisplayName,
			IsCanonical: canonical[norm] == account.UID,
		}

		if row, ok := byBase[account.UID]; ok {
			member.IsExposed = true
			member.IsMarkedDuplicate = row.IsMarked()
			member.DisplayName = identity.FormatDisplayName(row.UID, row.DisplayName)
		}

		memberGroups, err := s.groups.Groups(account.UID)
		if err != nil {
			log.Warn().Err(err).Str("uid", account.UID).Msg("group lookup failed")
		} else {
			member.Groups = memberGroups
		}

		groups[norm] = append(groups[norm], member)
	}

	report := &Report{}

	for norm, members := range groups {
		sort.Slice(members, func(i, j int) bool { return members[i].UID < members[j].UID })

		if len(members) > 1 {
			report.DuplicateSets = append(report.DuplicateSets, Set{
				NormalizedUID: norm,
				Members:       members,
			})
		}

		report.AllManagedUsers = append(report.AllManagedUsers, members...)
	}

	sort.Slice(report.DuplicateSets, func(i, j int) bool {
		return report.DuplicateSets[i].NormalizedUID < report.DuplicateSets[j].NormalizedUID
	})
	sort.Slice(report.AllManagedUsers, func(i, j int) bool {
		return report.AllManagedUsers[i].UID < report.AllManagedUsers[j].UID
	})

	return report, nil
}

// Expose makes a historical duplicate account loginable again by
// inserting its marked identity row. Idempotent.
func (s *Service) Expose(uid, displayName string) error {
	if uid == "" {
		return errors.New("uid cannot be empty")
	}

	uid = strings.TrimSuffix(uid, models.DuplicateMarker)

	return s.store.Insert(uid+models.DuplicateMarker, displayName)
}

// Hide removes a duplicate's marked identity row. The canonical member
// of the set can never be hidden; other members' exposure is
// unaffected.
func (s *Service) Hide(uid string) error {
	if uid == "" {
		return errors.New("uid cannot be empty")
	}

	uid = strings.TrimSuffix(uid, models.DuplicateMarker)

	canonicalUID, err := s.store.CanonicalFor(identity.Normalize(uid))
	if err != nil {
		return err
	}

	if canonicalUID == uid {
		return ErrCanonicalMember
	}

	return s.store.DeleteExact(uid + models.DuplicateMarker)
}
