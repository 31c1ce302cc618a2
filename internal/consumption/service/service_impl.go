package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/glowface/pointgate/internal/account/domain"
	"github.com/glowface/pointgate/internal/clock"
	consumptiondomain "github.com/glowface/pointgate/internal/consumption/domain"
	"github.com/glowface/pointgate/internal/observability/metrics"
	pkgdb "github.com/glowface/pointgate/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	consumeAttempts = 8
	retryBackoff    = 10 * time.Millisecond

	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Node     *snowflake.Node
	Accounts accountdomain.Repository
	Repo     consumptiondomain.Repository
	Metrics  *metrics.Metrics
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	node     *snowflake.Node
	accounts accountdomain.Repository
	repo     consumptiondomain.Repository
	metrics  *metrics.Metrics
}

func New(p ServiceParam) consumptiondomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("consumption.service"),
		clock:    p.Clock,
		node:     p.Node,
		accounts: p.Accounts,
		repo:     p.Repo,
		metrics:  p.Metrics,
	}
}

func (s *Service) Consume(ctx context.Context, req consumptiondomain.ConsumeRequest) (*consumptiondomain.ConsumeResult, error) {
	if req.Cost <= 0 {
		return nil, consumptiondomain.ErrInvalidCost
	}
	if req.DeviceID == "" {
		return nil, consumptiondomain.ErrAccountNotFound
	}

	var lastErr error
	for attempt := 0; attempt < consumeAttempts; attempt++ {
		res, err := s.consumeOnce(ctx, req)
		if err == nil {
			s.metrics.ObserveConsumption(req.Action, consumptiondomain.OutcomeSuccess, req.Cost)
			s.log.Info("points consumed",
				zap.String("device_id", req.DeviceID),
				zap.String("action", req.Action),
				zap.Int64("cost", req.Cost),
				zap.Int64("balance", res.Balance),
			)
			return res, nil
		}
		if pkgdb.IsSerializationErr(err) {
			lastErr = err
			time.Sleep(retryBackoff)
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *Service) consumeOnce(ctx context.Context, req consumptiondomain.ConsumeRequest) (*consumptiondomain.ConsumeResult, error) {
	var res *consumptiondomain.ConsumeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()

		ok, err := s.accounts.DebitIfSufficient(ctx, tx, req.DeviceID, req.Cost, now)
		if err != nil {
			return err
		}
		if !ok {
			// the guard fails for both a short balance and a missing row
			acct, err := s.accounts.FindByDeviceID(ctx, tx, req.DeviceID)
			if err != nil {
				return err
			}
			if acct == nil {
				return consumptiondomain.ErrAccountNotFound
			}
			return consumptiondomain.ErrInsufficientBalance
		}

		if err := s.repo.InsertLog(ctx, tx, &consumptiondomain.UsageLog{
			ID:        s.node.Generate().Int64(),
			DeviceID:  req.DeviceID,
			Action:    req.Action,
			Cost:      req.Cost,
			Outcome:   consumptiondomain.OutcomeSuccess,
			Context:   req.Context,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		acct, err := s.accounts.FindByDeviceID(ctx, tx, req.DeviceID)
		if err != nil {
			return err
		}
		if acct == nil {
			return consumptiondomain.ErrAccountNotFound
		}
		res = &consumptiondomain.ConsumeResult{
			Balance: acct.Balance,
			Debited: req.Cost,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) RecordFailure(ctx context.Context, deviceID, action string, cost int64, extra map[string]interface{}) error {
	err := s.repo.InsertLog(ctx, s.db, &consumptiondomain.UsageLog{
		ID:        s.node.Generate().Int64(),
		DeviceID:  deviceID,
		Action:    action,
		Cost:      cost,
		Outcome:   consumptiondomain.OutcomeFailed,
		Context:   extra,
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		return err
	}
	s.metrics.ObserveConsumption(action, consumptiondomain.OutcomeFailed, 0)
	return nil
}

func (s *Service) EnsureBalance(ctx context.Context, deviceID string, amount int64) error {
	acct, err := s.accounts.FindByDeviceID(ctx, s.db, deviceID)
	if err != nil {
		return err
	}
	if acct == nil {
		return consumptiondomain.ErrAccountNotFound
	}
	if acct.Balance < amount {
		return consumptiondomain.ErrInsufficientBalance
	}
	return nil
}

func (s *Service) History(ctx context.Context, deviceID string, limit int) ([]consumptiondomain.UsageLog, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	rows, err := s.repo.ListByDevice(ctx, s.db, deviceID, limit)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		// distinguish an empty history from an unknown device
		if acct, err := s.accounts.FindByDeviceID(ctx, s.db, deviceID); err != nil {
			return nil, err
		} else if acct == nil {
			return nil, consumptiondomain.ErrAccountNotFound
		}
	}
	return rows, nil
}
