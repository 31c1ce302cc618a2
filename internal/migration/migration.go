package migration

import (
	"embed"
	"errors"

	accountdomain "github.com/glowface/pointgate/internal/account/domain"
	codedomain "github.com/glowface/pointgate/internal/code/domain"
	"github.com/glowface/pointgate/internal/config"
	consumptiondomain "github.com/glowface/pointgate/internal/consumption/domain"
	redemptiondomain "github.com/glowface/pointgate/internal/redemption/domain"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Run applies schema migrations at startup. Postgres runs the embedded
// SQL through golang-migrate; sqlite and mysql dev setups use AutoMigrate.
func Run(cfg config.Config, db *gorm.DB, log *zap.Logger) error {
	if cfg.DBType != "postgres" {
		log.Info("running auto migration", zap.String("db_type", cfg.DBType))
		return db.AutoMigrate(
			&codedomain.Code{},
			&accountdomain.Account{},
			&redemptiondomain.Redemption{},
			&consumptiondomain.UsageLog{},
		)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return err
	}
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	log.Info("migrations applied")
	return nil
}
