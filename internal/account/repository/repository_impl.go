package repository

import (
	"context"
	"time"

	accountdomain "github.com/glowface/pointgate/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() accountdomain.Repository {
	return &repo{}
}

func (r *repo) FindByDeviceID(ctx context.Context, db *gorm.DB, deviceID string) (*accountdomain.Account, error) {
	var row accountdomain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT device_id, balance, total_consumed, created_at, updated_at
		 FROM accounts WHERE device_id = ?`,
		deviceID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.DeviceID == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *accountdomain.Account) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO accounts (device_id, balance, total_consumed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		account.DeviceID,
		account.Balance,
		account.TotalConsumed,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
}

func (r *repo) Credit(ctx context.Context, db *gorm.DB, deviceID string, amount int64, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE accounts SET balance = balance + ?, updated_at = ? WHERE device_id = ?`,
		amount,
		now,
		deviceID,
	).Error
}

func (r *repo) DebitIfSufficient(ctx context.Context, db *gorm.DB, deviceID string, amount int64, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE accounts
		 SET balance = balance - ?, total_consumed = total_consumed + ?, updated_at = ?
		 WHERE device_id = ? AND balance >= ?`,
		amount,
		amount,
		now,
		deviceID,
		amount,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
