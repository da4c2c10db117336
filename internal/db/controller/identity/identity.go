// Package identity provides persistence for the local identity mirror.
// All lookups are scoped to the VereinOnline backend and understand the
// duplicate marker convention: a uid may exist in exact form or with
// the reserved "!duplicate" suffix, and the unmarked row for a
// case-folded uid is the canonical identity.
package identity

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vobridge/vobridge/internal/db/models"
)

var (
	// ErrIdentityNotFound is returned when no identity row matches.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrUIDEmpty is returned when an operation receives an empty uid.
	ErrUIDEmpty = errors.New("uid cannot be empty")
)

// Store persists identity rows for the backend.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new identity store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the row matching the exact uid, or its marked
// counterpart. The platform never hands us marked uids, so looking up
// "alice" must also find a stored "alice!duplicate" row.
func (s *Store) Get(uid string) (*models.Identity, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}
	if uid == "" {
		return nil, ErrUIDEmpty
	}

	var row models.Identity
	err := s.db.
		Where("backend = ?", models.Backend).
		Where("uid = ? OR uid = ?", uid, uid+models.DuplicateMarker).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIdentityNotFound
	}
	if err != nil {
		return nil, err
	}

	return &row, nil
}

// ExistsExact reports whether a row exists for the exact uid or its
// marked counterpart.
func (s *Store) ExistsExact(uid string) (bool, error) {
	_, err := s.Get(uid)
	if errors.Is(err, ErrIdentityNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// CanonicalFor returns the uid of the canonical (unmarked) row whose
// case-folded uid equals normalizedUID, or "" if none exists.
func (s *Store) CanonicalFor(normalizedUID string) (string, error) {
	if s.db == nil {
		return "", ErrDBNil
	}

	var row models.Identity
	err := s.db.
		Where("backend = ?", models.Backend).
		Where("uid NOT LIKE ?", "%"+models.DuplicateMarker).
		Where("LOWER(uid) = ?", strings.ToLower(normalizedUID)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return row.UID, nil
}

// EnsureCreated inserts the identity row if it does not exist yet.
// The marked counterpart counts as existing: inserting the unmarked
// uid next to an exposed duplicate would mint a second unmarked row
// for the same case-folded uid. Concurrent callers for the same exact
// uid cannot race an existence check against the insert.
func (s *Store) EnsureCreated(uid string) error {
	if s.db == nil {
		return ErrDBNil
	}
	if uid == "" {
		return ErrUIDEmpty
	}

	var marked int64
	err := s.db.Model(&models.Identity{}).
		Where("backend = ?", models.Backend).
		Where("uid = ?", uid+models.DuplicateMarker).
		Count(&marked).Error
	if err != nil {
		return err
	}

	if marked > 0 {
		return nil
	}

	row := models.Identity{
		Backend: models.Backend,
		UID:     uid,
	}

	return s.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "backend"}, {Name: "uid"}},
			DoNothing: true,
		}).
		Create(&row).Error
}

// Insert creates a row with the given uid and display name. Used by the
// expose operation for marked duplicate rows.
func (s *Store) Insert(uid, displayName string) error {
	if s.db == nil {
		return ErrDBNil
	}
	if uid == "" {
		return ErrUIDEmpty
	}

	row := models.Identity{
		Backend:     models.Backend,
		UID:         uid,
		DisplayName: displayName,
	}

	return s.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "backend"}, {Name: "uid"}},
			DoNothing: true,
		}).
		Create(&row).Error
}

// UpsertSyncMetadata records the directory ids and sync timestamp. The
// write lands on whichever row carries the uid, exact or marked; a new
// row is created only when neither exists.
func (s *Store) UpsertSyncMetadata(uid, voUserID, voUsername, voGroupIDs string, syncedAt time.Time) error {
	if s.db == nil {
		return ErrDBNil
	}
	if uid == "" {
		return ErrUIDEmpty
	}

	target := uid

	var exact int64
	err := s.db.Model(&models.Identity{}).
		Where("backend = ?", models.Backend).
		Where("uid = ?", uid).
		Count(&exact).Error
	if err != nil {
		return err
	}

	if exact == 0 {
		var marked int64
		err := s.db.Model(&models.Identity{}).
			Where("backend = ?", models.Backend).
			Where("uid = ?", uid+models.DuplicateMarker).
			Count(&marked).Error
		if err != nil {
			return err
		}

		if marked > 0 {
			target = uid + models.DuplicateMarker
		}
	}

	row := models.Identity{
		Backend:    models.Backend,
		UID:        target,
		VOUserID:   voUserID,
		VOUsername: voUsername,
		VOGroupIDs: voGroupIDs,
		LastSynced: &syncedAt,
	}

	return s.db.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "backend"}, {Name: "uid"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"vo_user_id", "vo_username", "vo_group_ids", "last_synced",
			}),
		}).
		Create(&row).Error
}

// SetDisplayName updates the display name on the exact uid and its
// marked counterpart.
func (s *Store) SetDisplayName(uid, displayName string) error {
	if s.db == nil {
		return ErrDBNil
	}
	if uid == "" {
		return ErrUIDEmpty
	}

	return s.db.Model(&models.Identity{}).
		Where("backend = ?", models.Backend).
		Where("uid = ? OR uid = ?", uid, uid+models.DuplicateMarker).
		Update("displayname", displayName).Error
}

// Delete removes the exact uid and its marked counterpart.
func (s *Store) Delete(uid string) error {
	if s.db == nil {
		return ErrDBNil
	}
	if uid == "" {
		return ErrUIDEmpty
	}

	return s.db.
		Where("backend = ?", models.Backend).
		Where("uid = ? OR uid = ?", uid, uid+models.DuplicateMarker).
		Delete(&models.Identity{}).Error
}

// DeleteExact removes only the row with exactly this uid. Used by the
// hide operation, which must never touch the canonical row.
func (s *Store) DeleteExact(uid string) error {
	if s.db == nil {
		return ErrDBNil
	}
	if uid == "" {
		return ErrUIDEmpty
	}

	return s.db.
		Where("backend = ?", models.Backend).
		Where("uid = ?", uid).
		Delete(&models.Identity{}).Error
}

// All returns every row for the backend ordered by uid, markers
// included.
func (s *Store) All() ([]models.Identity, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var rows []models.Identity
	err := s.db.
		Where("backend = ?", models.Backend).
		Order("uid ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// Users returns all stored uids with markers stripped, optionally
// filtered by a case-insensitive uid prefix.
func (s *Store) Users(search string, limit, offset int) ([]string, error) {
	rows, err := s.search(search, limit, offset, false)
	if err != nil {
		return nil, err
	}

	users := make([]string, len(rows))
	for i, row := range rows {
		users[i] = strings.TrimSuffix(row.UID, models.DuplicateMarker)
	}

	return users, nil
}

// DisplayNames returns stored uid → display name with markers stripped
// from the keys, optionally filtered by a case-insensitive substring
// match on uid or display name.
func (s *Store) DisplayNames(search string, limit, offset int) (map[string]string, error) {
	rows, err := s.search(search, limit, offset, true)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(rows))
	for _, row := range rows {
		names[strings.TrimSuffix(row.UID, models.DuplicateMarker)] = row.DisplayName
	}

	return names, nil
}

func (s *Store) search(search string, limit, offset int, matchDisplayName bool) ([]models.Identity, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	query := s.db.
		Where("backend = ?", models.Backend).
		Order("uid ASC")

	if search != "" {
		pattern := "%" + escapeLike(search) + "%"
		if matchDisplayName {
			query = query.Where("LOWER(uid) LIKE ? ESCAPE '#' OR LOWER(displayname) LIKE ? ESCAPE '#'",
				strings.ToLower(pattern), strings.ToLower(pattern))
		} else {
			query = query.Where("LOWER(uid) LIKE ? ESCAPE '#'", strings.ToLower(escapeLike(search))+"%")
		}
	}

	if limit > 0 {
		query = query.Limit(limit)
	}

	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []models.Identity
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

// Count returns the number of rows for the backend.
func (s *Store) Count() (int64, error) {
	if s.db == nil {
		return 0, ErrDBNil
	}

	var count int64
	err := s.db.Model(&models.Identity{}).
		Where("backend = ?", models.Backend).
		Count(&count).Error

	return count, err
}

// escapeLike neutralizes LIKE wildcards in a search term. '#' is the
// escape character because a literal backslash in the ESCAPE clause is
// spelled differently in MySQL and SQLite.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "#", "##")
	s = strings.ReplaceAll(s, "%", "#%")

	return strings.ReplaceAll(s, "_", "#_")
}
