package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UsageLog is an append-only record of one billable action. Failed
// downstream work is logged too, with Outcome "failed" and whatever was
// debited for it left in place.
type UsageLog struct {
	ID        int64             `gorm:"primaryKey"`
	DeviceID  string            `gorm:"type:text;not null;index"`
	Action    string            `gorm:"type:text;not null"`
	Cost      int64             `gorm:"not null"`
	Outcome   string            `gorm:"type:text;not null"`
	Context   datatypes.JSONMap `gorm:"type:json"`
	CreatedAt time.Time
}

// TableName sets the database table name.
func (UsageLog) TableName() string { return "usage_logs" }

const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

var (
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrAccountNotFound     = errors.New("account_not_found")
	ErrInvalidCost         = errors.New("invalid_cost")
)

type ConsumeRequest struct {
	DeviceID string
	Action   string
	Cost     int64
	Context  map[string]interface{}
}

type ConsumeResult struct {
	Balance int64 `json:"balance"`
	Debited int64 `json:"debited"`
}

type Service interface {
	// Consume debits the account and appends a success log, atomically.
	// The balance guard makes concurrent over-spends lose cleanly.
	Consume(ctx context.Context, req ConsumeRequest) (*ConsumeResult, error)

	// RecordFailure appends a failed log without touching the balance.
	// Debited points stay debited when downstream work fails.
	RecordFailure(ctx context.Context, deviceID, action string, cost int64, extra map[string]interface{}) error

	// EnsureBalance is the pre-flight check before expensive work starts.
	EnsureBalance(ctx context.Context, deviceID string, amount int64) error

	// History returns the device's most recent usage, newest first.
	History(ctx context.Context, deviceID string, limit int) ([]UsageLog, error)
}

type Repository interface {
	InsertLog(ctx context.Context, db *gorm.DB, row *UsageLog) error
	ListByDevice(ctx context.Context, db *gorm.DB, deviceID string, limit int) ([]UsageLog, error)
}
