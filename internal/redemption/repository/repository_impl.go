package repository

import (
	"context"

	redemptiondomain "github.com/glowface/pointgate/internal/redemption/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() redemptiondomain.Repository {
	return &repo{}
}

func (r *repo) FindByCodeAndDevice(ctx context.Context, db *gorm.DB, code, deviceID string) (*redemptiondomain.Redemption, error) {
	var row redemptiondomain.Redemption
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, device_id, points, redeemed_at
		 FROM redemptions WHERE code = ? AND device_id = ?`,
		code,
		deviceID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, row *redemptiondomain.Redemption) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO redemptions (id, code, device_id, points, redeemed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		row.ID,
		row.Code,
		row.DeviceID,
		row.Points,
		row.RedeemedAt,
	).Error
}

func (r *repo) CountByCode(ctx context.Context, db *gorm.DB, code string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM redemptions WHERE code = ?`,
		code,
	).Scan(&count).Error
	return count, err
}
