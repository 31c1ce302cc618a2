package repository

import (
	"context"

	codedomain "github.com/glowface/pointgate/internal/code/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() codedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *codedomain.Code) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO codes (code, kind, point_value, usage_cap, usage_count, status, batch_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Code,
		c.Kind,
		c.PointValue,
		c.UsageCap,
		c.UsageCount,
		c.Status,
		c.BatchID,
		c.CreatedAt,
	).Error
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*codedomain.Code, error) {
	var row codedomain.Code
	err := db.WithContext(ctx).Raw(
		`SELECT code, kind, point_value, usage_cap, usage_count, status, batch_id, created_at
		 FROM codes WHERE code = ?`,
		code,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.Code == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req codedomain.ListRequest) ([]codedomain.Code, error) {
	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	stmt := db.WithContext(ctx).Model(&codedomain.Code{})
	if req.BatchID != "" {
		stmt = stmt.Where("batch_id = ?", req.BatchID)
	}
	if req.Status != "" {
		stmt = stmt.Where("status = ?", req.Status)
	}

	var rows []codedomain.Code
	err := stmt.Order("created_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) IncrementUsage(ctx context.Context, db *gorm.DB, code string, fromCount int, toStatus codedomain.Status) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE codes SET usage_count = ?, status = ?
		 WHERE code = ? AND usage_count = ?`,
		fromCount+1,
		toStatus,
		code,
		fromCount,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
