package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Account is the point balance for one device. The balance never goes
// negative: every debit is guarded in SQL.
type Account struct {
	DeviceID      string `gorm:"primaryKey;type:text"`
	Balance       int64  `gorm:"not null;default:0"`
	TotalConsumed int64  `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

var ErrNotFound = errors.New("account_not_found")

type Service interface {
	// Get returns the account for a device or ErrNotFound.
	Get(ctx context.Context, deviceID string) (*Account, error)
}

// Repository is plain data access; the db handle is passed per call so
// the redemption and consumption engines can reuse their transactions.
type Repository interface {
	FindByDeviceID(ctx context.Context, db *gorm.DB, deviceID string) (*Account, error)
	Insert(ctx context.Context, db *gorm.DB, account *Account) error

	// Credit adds amount to the balance unconditionally.
	Credit(ctx context.Context, db *gorm.DB, deviceID string, amount int64, now time.Time) error

	// DebitIfSufficient subtracts amount only while the balance covers it,
	// in a single guarded update. Returns false when the guard failed.
	DebitIfSufficient(ctx context.Context, db *gorm.DB, deviceID string, amount int64, now time.Time) (bool, error)
}
