package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/glowface/pointgate/internal/clock"
	codedomain "github.com/glowface/pointgate/internal/code/domain"
	"github.com/glowface/pointgate/internal/code/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (codedomain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// an in-memory sqlite exists per connection, so keep the pool at one
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&codedomain.Code{}))

	svc := New(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	})
	return svc, db
}

func TestMintBatch(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	batch, err := svc.MintBatch(ctx, codedomain.MintBatchRequest{
		Kind:       codedomain.KindLicense,
		PointValue: 100,
		Count:      5,
	})
	require.NoError(t, err)
	require.Len(t, batch.Codes, 5)
	assert.NotEmpty(t, batch.BatchID)

	for _, c := range batch.Codes {
		assert.Equal(t, codedomain.KindLicense, c.Kind)
		assert.Equal(t, int64(100), c.PointValue)
		assert.Equal(t, 3, c.UsageCap, "default cap applies when unset")
		assert.Equal(t, 0, c.UsageCount)
		assert.Equal(t, codedomain.StatusUnused, c.Status)
		assert.Equal(t, batch.BatchID, c.BatchID)
	}

	var count int64
	require.NoError(t, db.Model(&codedomain.Code{}).Count(&count).Error)
	assert.EqualValues(t, 5, count)
}

func TestMintBatchValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.MintBatch(ctx, codedomain.MintBatchRequest{Kind: "gift", PointValue: 100, Count: 1})
	assert.ErrorIs(t, err, codedomain.ErrInvalidKind)

	_, err = svc.MintBatch(ctx, codedomain.MintBatchRequest{Kind: codedomain.KindLicense, PointValue: 0, Count: 1})
	assert.ErrorIs(t, err, codedomain.ErrInvalidPointValue)

	_, err = svc.MintBatch(ctx, codedomain.MintBatchRequest{Kind: codedomain.KindLicense, PointValue: 100, UsageCap: -1, Count: 1})
	assert.ErrorIs(t, err, codedomain.ErrInvalidUsageCap)

	_, err = svc.MintBatch(ctx, codedomain.MintBatchRequest{Kind: codedomain.KindLicense, PointValue: 100, Count: 0})
	assert.ErrorIs(t, err, codedomain.ErrInvalidCount)
}

func TestGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	batch, err := svc.MintBatch(ctx, codedomain.MintBatchRequest{
		Kind:       codedomain.KindRecharge,
		PointValue: 500,
		Count:      1,
	})
	require.NoError(t, err)
	minted := batch.Codes[0]

	// lookup tolerates sloppy input
	sloppy := " " + minted.Code[:4] + minted.Code[5:9] + minted.Code[10:]
	got, err := svc.Get(ctx, sloppy)
	require.NoError(t, err)
	assert.Equal(t, minted.Code, got.Code)

	_, err = svc.Get(ctx, "AAAA-AAAA-AAAA-AAAA")
	assert.ErrorIs(t, err, codedomain.ErrNotFound)

	_, err = svc.Get(ctx, "not a code")
	assert.ErrorIs(t, err, codedomain.ErrNotFound)
}

func TestList(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.MintBatch(ctx, codedomain.MintBatchRequest{Kind: codedomain.KindLicense, PointValue: 100, Count: 3})
	require.NoError(t, err)
	_, err = svc.MintBatch(ctx, codedomain.MintBatchRequest{Kind: codedomain.KindRecharge, PointValue: 500, Count: 2})
	require.NoError(t, err)

	all, err := svc.List(ctx, codedomain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	scoped, err := svc.List(ctx, codedomain.ListRequest{BatchID: first.BatchID})
	require.NoError(t, err)
	assert.Len(t, scoped, 3)

	unused, err := svc.List(ctx, codedomain.ListRequest{Status: codedomain.StatusUnused})
	require.NoError(t, err)
	assert.Len(t, unused, 5)
}
