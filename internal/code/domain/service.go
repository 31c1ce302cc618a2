package domain

import (
	"context"
	"errors"
)

type Service interface {
	MintBatch(ctx context.Context, req MintBatchRequest) (*Batch, error)
	Get(ctx context.Context, code string) (*Code, error)
	List(ctx context.Context, req ListRequest) ([]Code, error)
}

type MintBatchRequest struct {
	Kind       Kind  `json:"kind"`
	PointValue int64 `json:"point_value"`
	UsageCap   int   `json:"usage_cap"`
	Count      int   `json:"count"`
}

type ListRequest struct {
	BatchID string `form:"batch_id"`
	Status  Status `form:"status"`
	Limit   int    `form:"limit"`
}

var (
	ErrNotFound          = errors.New("code_not_found")
	ErrInvalidKind       = errors.New("invalid_kind")
	ErrInvalidPointValue = errors.New("invalid_point_value")
	ErrInvalidUsageCap   = errors.New("invalid_usage_cap")
	ErrInvalidCount      = errors.New("invalid_count")
)
