package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	accountdomain "github.com/glowface/pointgate/internal/account/domain"
	accountrepo "github.com/glowface/pointgate/internal/account/repository"
	"github.com/glowface/pointgate/internal/clock"
	consumptiondomain "github.com/glowface/pointgate/internal/consumption/domain"
	consumptionrepo "github.com/glowface/pointgate/internal/consumption/repository"
	"github.com/glowface/pointgate/internal/observability/metrics"
	"github.com/glowface/pointgate/pkg/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	svc   consumptiondomain.Service
	db    *gorm.DB
	clock *clock.FakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// an in-memory sqlite exists per connection, so keep the pool at one
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&accountdomain.Account{},
		&consumptiondomain.UsageLog{},
	))

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	node, err := id.NewNode()
	require.NoError(t, err)

	svc := New(ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    fake,
		Node:     node,
		Accounts: accountrepo.Provide(),
		Repo:     consumptionrepo.Provide(),
		Metrics:  metrics.New(),
	})
	return &testEnv{svc: svc, db: db, clock: fake}
}

func (e *testEnv) seedAccount(t *testing.T, deviceID string, balance int64) {
	t.Helper()
	now := e.clock.Now()
	require.NoError(t, e.db.Create(&accountdomain.Account{
		DeviceID:  deviceID,
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
}

func (e *testEnv) account(t *testing.T, deviceID string) *accountdomain.Account {
	t.Helper()
	var row accountdomain.Account
	require.NoError(t, e.db.First(&row, "device_id = ?", deviceID).Error)
	return &row
}

func TestConsume(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "device-a", 15)
	ctx := context.Background()

	res, err := env.svc.Consume(ctx, consumptiondomain.ConsumeRequest{
		DeviceID: "device-a",
		Action:   "image_edit",
		Cost:     10,
		Context:  map[string]interface{}{"image": "before.png"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 5, res.Balance)
	assert.EqualValues(t, 10, res.Debited)

	acct := env.account(t, "device-a")
	assert.EqualValues(t, 5, acct.Balance)
	assert.EqualValues(t, 10, acct.TotalConsumed)

	_, err = env.svc.Consume(ctx, consumptiondomain.ConsumeRequest{
		DeviceID: "device-a",
		Action:   "image_edit",
		Cost:     10,
	})
	assert.ErrorIs(t, err, consumptiondomain.ErrInsufficientBalance)

	// the refused debit left the balance alone and wrote no success log
	acct = env.account(t, "device-a")
	assert.EqualValues(t, 5, acct.Balance)

	logs, err := env.svc.History(ctx, "device-a", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, consumptiondomain.OutcomeSuccess, logs[0].Outcome)
}

func TestConsumeValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Consume(ctx, consumptiondomain.ConsumeRequest{DeviceID: "device-a", Action: "x", Cost: 0})
	assert.ErrorIs(t, err, consumptiondomain.ErrInvalidCost)

	_, err = env.svc.Consume(ctx, consumptiondomain.ConsumeRequest{DeviceID: "ghost", Action: "x", Cost: 10})
	assert.ErrorIs(t, err, consumptiondomain.ErrAccountNotFound)
}

func TestConsumeConcurrentDoubleSpend(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "device-a", 50)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = env.svc.Consume(ctx, consumptiondomain.ConsumeRequest{
				DeviceID: "device-a",
				Action:   "image_edit",
				Cost:     10,
			})
		}(i)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		default:
			assert.ErrorIs(t, err, consumptiondomain.ErrInsufficientBalance)
			short++
		}
	}
	assert.Equal(t, 5, ok)
	assert.Equal(t, workers-5, short)

	acct := env.account(t, "device-a")
	assert.EqualValues(t, 0, acct.Balance)
	assert.EqualValues(t, 50, acct.TotalConsumed)
}

func TestRecordFailureDoesNotRefund(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "device-a", 30)
	ctx := context.Background()

	_, err := env.svc.Consume(ctx, consumptiondomain.ConsumeRequest{
		DeviceID: "device-a",
		Action:   "image_edit",
		Cost:     10,
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.RecordFailure(ctx, "device-a", "image_edit", 10, map[string]interface{}{
		"error": "upstream timeout",
	}))

	acct := env.account(t, "device-a")
	assert.EqualValues(t, 20, acct.Balance)

	logs, err := env.svc.History(ctx, "device-a", 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
}

func TestEnsureBalance(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "device-a", 25)
	ctx := context.Background()

	assert.NoError(t, env.svc.EnsureBalance(ctx, "device-a", 20))
	assert.ErrorIs(t, env.svc.EnsureBalance(ctx, "device-a", 30), consumptiondomain.ErrInsufficientBalance)
	assert.ErrorIs(t, env.svc.EnsureBalance(ctx, "ghost", 1), consumptiondomain.ErrAccountNotFound)
}

func TestHistoryOrderAndLimit(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "device-a", 1000)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		_, err := env.svc.Consume(ctx, consumptiondomain.ConsumeRequest{
			DeviceID: "device-a",
			Action:   "image_edit",
			Cost:     1,
		})
		require.NoError(t, err)
		env.clock.Advance(time.Second)
	}

	logs, err := env.svc.History(ctx, "device-a", 0)
	require.NoError(t, err)
	assert.Len(t, logs, 50, "default limit")
	for i := 1; i < len(logs); i++ {
		assert.False(t, logs[i].CreatedAt.After(logs[i-1].CreatedAt), "newest first")
	}

	logs, err = env.svc.History(ctx, "device-a", 10)
	require.NoError(t, err)
	assert.Len(t, logs, 10)

	_, err = env.svc.History(ctx, "ghost", 0)
	assert.ErrorIs(t, err, consumptiondomain.ErrAccountNotFound)
}
