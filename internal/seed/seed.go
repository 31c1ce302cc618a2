package seed

import (
	"context"

	codedomain "github.com/glowface/pointgate/internal/code/domain"
	"github.com/glowface/pointgate/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Run mints demo code batches on a fresh development database so the
// activation flow can be exercised without the admin surface.
func Run(cfg config.Config, db *gorm.DB, codes codedomain.Service, log *zap.Logger) error {
	if !cfg.SeedDemoCodes {
		return nil
	}

	var count int64
	if err := db.Model(&codedomain.Code{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	ctx := context.Background()
	batches := []codedomain.MintBatchRequest{
		{Kind: codedomain.KindLicense, PointValue: 100, Count: 5},
		{Kind: codedomain.KindRecharge, PointValue: 500, Count: 5},
	}
	for _, req := range batches {
		batch, err := codes.MintBatch(ctx, req)
		if err != nil {
			return err
		}
		for _, c := range batch.Codes {
			log.Info("seeded demo code",
				zap.String("code", c.Code),
				zap.String("kind", string(c.Kind)),
				zap.Int64("point_value", c.PointValue),
			)
		}
	}
	return nil
}

var Module = fx.Module("seed",
	fx.Invoke(Run),
)
