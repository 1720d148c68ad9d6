package migration

import (
	"github.com/smallbiznis/gridsign/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Run),
)

// Run migrates the schema before any service starts serving.
func Run(conn *gorm.DB, cfg db.Config, log *zap.Logger) error {
	if cfg.Type != db.TypePostgres {
		log.Info("applying schema via auto-migrate", zap.String("type", cfg.Type))
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	log.Info("applying sql migrations")
	return RunMigrations(sqlDB)
}
