package service

import (
	"context"
	"time"

	"github.com/glowface/pointgate/internal/clock"
	codedomain "github.com/glowface/pointgate/internal/code/domain"
	pkgdb "github.com/glowface/pointgate/pkg/db"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultUsageCap  = 3
	mintCollisionMax = 5
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  codedomain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  codedomain.Repository
	clock clock.Clock
}

func New(p ServiceParam) codedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("code.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) MintBatch(ctx context.Context, req codedomain.MintBatchRequest) (*codedomain.Batch, error) {
	if !req.Kind.Valid() {
		return nil, codedomain.ErrInvalidKind
	}
	if req.PointValue <= 0 {
		return nil, codedomain.ErrInvalidPointValue
	}
	if req.UsageCap == 0 {
		req.UsageCap = defaultUsageCap
	}
	if req.UsageCap < 0 {
		return nil, codedomain.ErrInvalidUsageCap
	}
	if req.Count <= 0 || req.Count > 1000 {
		return nil, codedomain.ErrInvalidCount
	}

	now := s.clock.Now()
	batchID := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()

	batch := &codedomain.Batch{BatchID: batchID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := 0; i < req.Count; i++ {
			row, err := s.mintOne(ctx, tx, req, batchID, now)
			if err != nil {
				return err
			}
			batch.Codes = append(batch.Codes, *row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("minted code batch",
		zap.String("batch_id", batchID),
		zap.String("kind", string(req.Kind)),
		zap.Int("count", len(batch.Codes)),
		zap.Int64("point_value", req.PointValue),
	)
	return batch, nil
}

// mintOne retries the insert on a generated-code collision.
func (s *Service) mintOne(ctx context.Context, tx *gorm.DB, req codedomain.MintBatchRequest, batchID string, now time.Time) (*codedomain.Code, error) {
	var lastErr error
	for attempt := 0; attempt < mintCollisionMax; attempt++ {
		value, err := codedomain.Generate()
		if err != nil {
			return nil, err
		}

		row := &codedomain.Code{
			Code:       value,
			Kind:       req.Kind,
			PointValue: req.PointValue,
			UsageCap:   req.UsageCap,
			UsageCount: 0,
			Status:     codedomain.StatusUnused,
			BatchID:    batchID,
			CreatedAt:  now,
		}
		if err := s.repo.Insert(ctx, tx, row); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return row, nil
	}
	return nil, lastErr
}

func (s *Service) Get(ctx context.Context, raw string) (*codedomain.Code, error) {
	code, err := codedomain.Normalize(raw)
	if err != nil {
		return nil, codedomain.ErrNotFound
	}

	row, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, codedomain.ErrNotFound
	}
	return row, nil
}

func (s *Service) List(ctx context.Context, req codedomain.ListRequest) ([]codedomain.Code, error) {
	return s.repo.List(ctx, s.db, req)
}
