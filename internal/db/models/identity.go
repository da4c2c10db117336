// Package models contains database model definitions.
package models

import (
	"time"
)

// Backend is the identifier of the VereinOnline authentication backend.
// It is constant for this system and part of the identity primary key so
// the table layout stays compatible with installations that hosted
// several external backends in one table.
const Backend = "user_vo"

// DuplicateMarker is the reserved uid suffix marking a row as a
// manually re-exposed historical duplicate. A marked row exists only to
// make an old duplicate account visible and loginable again; it is
// never created for a brand-new login.
const DuplicateMarker = "!duplicate"

// Identity represents one locally mirrored directory user.
// Rows are created on first successful login (unmarked, lowercase uid)
// or by an operator exposing a duplicate (marked uid). The composite
// primary key (backend, uid) is unique; for a given case-folded uid at
// most one row may lack the duplicate marker, and that row is the
// canonical identity.
type Identity struct {
	// Backend is the authentication source identifier (see Backend).
	Backend string `gorm:"primaryKey;size:64"`
	// UID is the stored username. May carry the duplicate marker suffix.
	UID string `gorm:"primaryKey;size:255;column:uid"`
	// DisplayName is the name shown to the platform, if set.
	DisplayName string `gorm:"column:displayname;size:255"`
	// VOUserID is the directory's own member id. Empty until the first
	// successful login under the sync scheme.
	VOUserID string `gorm:"column:vo_user_id;size:64;index"`
	// VOUsername is the last-seen directory login name, case preserved.
	VOUsername string `gorm:"column:vo_username;size:255"`
	// VOGroupIDs is a comma-separated list of directory group ids.
	// It is an opaque cache and not interpreted further.
	VOGroupIDs string `gorm:"column:vo_group_ids;type:text"`
	// LastSynced is the time of the last successful profile sync.
	LastSynced *time.Time `gorm:"column:last_synced"`
}

// TableName keeps the table name wire-compatible with existing
// installations of the original backend.
func (Identity) TableName() string {
	return "user_vo"
}

// IsMarked reports whether the stored uid carries the duplicate marker.
func (i Identity) IsMarked() bool {
	return len(i.UID) > len(DuplicateMarker) &&
		i.UID[len(i.UID)-len(DuplicateMarker):] == DuplicateMarker
}
