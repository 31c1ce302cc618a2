package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository is plain data access; the db handle is passed per call so
// callers can run several stores inside one transaction.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, code *Code) error
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Code, error)
	List(ctx context.Context, db *gorm.DB, req ListRequest) ([]Code, error)

	// IncrementUsage applies a compare-and-set on usage_count: the update
	// only lands when the row still holds fromCount, which makes the
	// last-slot race deterministic. Returns false when the guard failed.
	IncrementUsage(ctx context.Context, db *gorm.DB, code string, fromCount int, toStatus Status) (bool, error)
}
