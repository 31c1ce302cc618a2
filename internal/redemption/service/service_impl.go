package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/glowface/pointgate/internal/account/domain"
	"github.com/glowface/pointgate/internal/clock"
	codedomain "github.com/glowface/pointgate/internal/code/domain"
	"github.com/glowface/pointgate/internal/identity"
	"github.com/glowface/pointgate/internal/observability/metrics"
	redemptiondomain "github.com/glowface/pointgate/internal/redemption/domain"
	pkgdb "github.com/glowface/pointgate/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	redeemAttempts = 8
	retryBackoff   = 10 * time.Millisecond
)

// errContention marks a lost usage-count compare-and-set. The caller
// re-reads the code and either retries or reports it exhausted.
var errContention = errors.New("redemption_contention")

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Node        *snowflake.Node
	Codes       codedomain.Repository
	Accounts    accountdomain.Repository
	Redemptions redemptiondomain.Repository
	Issuer      *identity.Issuer
	Metrics     *metrics.Metrics
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	node        *snowflake.Node
	codes       codedomain.Repository
	accounts    accountdomain.Repository
	redemptions redemptiondomain.Repository
	issuer      *identity.Issuer
	metrics     *metrics.Metrics
}

func New(p ServiceParam) redemptiondomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("redemption.service"),
		clock:       p.Clock,
		node:        p.Node,
		codes:       p.Codes,
		accounts:    p.Accounts,
		redemptions: p.Redemptions,
		issuer:      p.Issuer,
		metrics:     p.Metrics,
	}
}

func (s *Service) Redeem(ctx context.Context, rawCode, deviceID string) (*redemptiondomain.Result, error) {
	if deviceID == "" {
		return nil, redemptiondomain.ErrDeviceRequired
	}
	code, err := codedomain.Normalize(rawCode)
	if err != nil {
		return nil, redemptiondomain.ErrCodeNotFound
	}

	var lastErr error
	for attempt := 0; attempt < redeemAttempts; attempt++ {
		res, kind, credited, err := s.redeemOnce(ctx, code, deviceID)
		if err == nil {
			token, err := s.issuer.Issue(deviceID)
			if err != nil {
				return nil, err
			}
			res.Token = token

			outcome := "redeemed"
			if res.Replayed {
				outcome = "replayed"
			}
			s.metrics.ObserveRedemption(string(kind), outcome, credited)
			s.log.Info("code redeemed",
				zap.String("code", code),
				zap.String("device_id", deviceID),
				zap.String("kind", string(kind)),
				zap.Int64("credited", credited),
				zap.Bool("replayed", res.Replayed),
			)
			return res, nil
		}

		if errors.Is(err, errContention) || pkgdb.IsDuplicateKeyErr(err) || pkgdb.IsSerializationErr(err) {
			lastErr = err
			time.Sleep(retryBackoff)
			continue
		}
		return nil, err
	}

	s.log.Warn("redemption gave up after retries",
		zap.String("code", code),
		zap.String("device_id", deviceID),
		zap.Error(lastErr),
	)
	return nil, redemptiondomain.ErrInconsistentState
}

func (s *Service) redeemOnce(ctx context.Context, code, deviceID string) (res *redemptiondomain.Result, kind codedomain.Kind, credited int64, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prior, err := s.redemptions.FindByCodeAndDevice(ctx, tx, code, deviceID)
		if err != nil {
			return err
		}
		if prior != nil {
			return s.replay(ctx, tx, code, deviceID, &res, &kind)
		}

		row, err := s.codes.FindByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if row == nil {
			return redemptiondomain.ErrCodeNotFound
		}
		if row.Exhausted() {
			return redemptiondomain.ErrCodeExhausted
		}
		kind = row.Kind

		now := s.clock.Now()
		acct, err := s.accounts.FindByDeviceID(ctx, tx, deviceID)
		if err != nil {
			return err
		}
		if acct == nil {
			if row.Kind == codedomain.KindRecharge {
				return redemptiondomain.ErrAccountRequired
			}
			acct = &accountdomain.Account{
				DeviceID:  deviceID,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.accounts.Insert(ctx, tx, acct); err != nil {
				return err
			}
		}

		ok, err := s.codes.IncrementUsage(ctx, tx, code, row.UsageCount, row.NextStatus())
		if err != nil {
			return err
		}
		if !ok {
			return errContention
		}

		if err := s.redemptions.Insert(ctx, tx, &redemptiondomain.Redemption{
			ID:         s.node.Generate().Int64(),
			Code:       code,
			DeviceID:   deviceID,
			Points:     row.PointValue,
			RedeemedAt: now,
		}); err != nil {
			return err
		}

		if err := s.accounts.Credit(ctx, tx, deviceID, row.PointValue, now); err != nil {
			return err
		}
		credited = row.PointValue

		acct, err = s.accounts.FindByDeviceID(ctx, tx, deviceID)
		if err != nil {
			return err
		}
		if acct == nil {
			return redemptiondomain.ErrInconsistentState
		}
		res = &redemptiondomain.Result{
			DeviceID: deviceID,
			Balance:  acct.Balance,
		}
		return nil
	})
	return res, kind, credited, err
}

// replay rebuilds the original outcome from the ledger row. The code and
// account must both still exist; a missing side means the stores diverged.
func (s *Service) replay(ctx context.Context, tx *gorm.DB, code, deviceID string, res **redemptiondomain.Result, kind *codedomain.Kind) error {
	row, err := s.codes.FindByCode(ctx, tx, code)
	if err != nil {
		return err
	}
	if row == nil {
		return redemptiondomain.ErrInconsistentState
	}
	acct, err := s.accounts.FindByDeviceID(ctx, tx, deviceID)
	if err != nil {
		return err
	}
	if acct == nil {
		return redemptiondomain.ErrInconsistentState
	}

	*kind = row.Kind
	*res = &redemptiondomain.Result{
		DeviceID: deviceID,
		Balance:  acct.Balance,
		Replayed: true,
	}
	return nil
}
