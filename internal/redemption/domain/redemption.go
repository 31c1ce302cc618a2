package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Redemption is one ledger row recording that a device consumed one
// slot of a code. The (code, device_id) pair is unique: a device can
// redeem a given code at most once, and replays are answered from this
// table.
type Redemption struct {
	ID         int64  `gorm:"primaryKey"`
	Code       string `gorm:"type:text;not null;uniqueIndex:ux_redemptions_code_device"`
	DeviceID   string `gorm:"type:text;not null;uniqueIndex:ux_redemptions_code_device"`
	Points     int64  `gorm:"not null"`
	RedeemedAt time.Time
}

// TableName sets the database table name.
func (Redemption) TableName() string { return "redemptions" }

// Result is the outcome of a redemption, replayed or fresh.
type Result struct {
	DeviceID string `json:"device_id"`
	Balance  int64  `json:"balance"`
	Token    string `json:"token"`
	Replayed bool   `json:"replayed"`
}

var (
	ErrCodeNotFound      = errors.New("code_not_found")
	ErrCodeExhausted     = errors.New("code_exhausted")
	ErrAccountRequired   = errors.New("account_required")
	ErrInconsistentState = errors.New("inconsistent_state")
	ErrDeviceRequired    = errors.New("device_required")
)

type Service interface {
	// Redeem applies a code for a device. Calling it again with the same
	// pair replays the original outcome instead of failing.
	Redeem(ctx context.Context, rawCode, deviceID string) (*Result, error)
}

type Repository interface {
	FindByCodeAndDevice(ctx context.Context, db *gorm.DB, code, deviceID string) (*Redemption, error)
	Insert(ctx context.Context, db *gorm.DB, row *Redemption) error
	CountByCode(ctx context.Context, db *gorm.DB, code string) (int64, error)
}
