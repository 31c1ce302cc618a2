package repository

import (
	"context"

	consumptiondomain "github.com/glowface/pointgate/internal/consumption/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() consumptiondomain.Repository {
	return &repo{}
}

func (r *repo) InsertLog(ctx context.Context, db *gorm.DB, row *consumptiondomain.UsageLog) error {
	return db.WithContext(ctx).Create(row).Error
}

func (r *repo) ListByDevice(ctx context.Context, db *gorm.DB, deviceID string, limit int) ([]consumptiondomain.UsageLog, error) {
	var rows []consumptiondomain.UsageLog
	err := db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
