package platform

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vobridge/vobridge/internal/db/models"
)

var (
	// ErrAccountNotFound is returned when no account row matches.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// AccountStore is the daemon's own account registry backed by the
// accounts table. It implements both Accounts and ProfileSink.
type AccountStore struct {
	db *gorm.DB
}

// NewAccountStore creates a new account store.
func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

// List returns all accounts ordered by uid.
func (s *AccountStore) List() ([]models.Account, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var rows []models.Account
	if err := s.db.Order("uid ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

// Get returns one account by uid.
func (s *AccountStore) Get(uid string) (*models.Account, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var row models.Account
	err := s.db.Where("uid = ?", uid).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	return &row, nil
}

// Ensure creates the account if it does not exist yet. Idempotent
// single-row upsert.
func (s *AccountStore) Ensure(uid string) error {
	if s.db == nil {
		return ErrDBNil
	}

	return s.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}},
			DoNothing: true,
		}).
		Create(&models.Account{UID: uid}).Error
}

// SetDisplayName updates the account's display name.
func (s *AccountStore) SetDisplayName(uid, displayName string) error {
	return s.update(uid, "displayname", displayName)
}

// SetEmail updates the account's email address.
func (s *AccountStore) SetEmail(uid, email string) error {
	return s.update(uid, "email", email)
}

func (s *AccountStore) update(uid, column string, value string) error {
	if s.db == nil {
		return ErrDBNil
	}

	res := s.db.Model(&models.Account{}).
		Where("uid = ?", uid).
		Update(column, value)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}
