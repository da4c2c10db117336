package models

import "time"

// Account represents a host-platform account. The platform owns these
// rows; this system only reads them for duplicate scanning and updates
// profile fields (display name, email) during sync.
type Account struct {
	// UID is the platform account name.
	UID string `gorm:"primaryKey;size:255;column:uid"`
	// DisplayName is the platform-visible display name.
	DisplayName string `gorm:"column:displayname;size:255"`
	// Email is the account's email address.
	Email string `gorm:"size:255"`
	// CreatedAt is the account creation timestamp (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the last modification timestamp (managed by GORM).
	UpdatedAt time.Time
}

// TableName matches the platform's account table.
func (Account) TableName() string {
	return "accounts"
}
