package migration

import (
	"github.com/smallbiznis/royalty/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(runOnStart),
)

func runOnStart(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	log = log.Named("migration")
	if !cfg.DBAutoMigrate {
		log.Info("database migrations disabled")
		return nil
	}

	if dialect := conn.Dialector.Name(); dialect != "postgres" {
		log.Info("running gorm auto migrate", zap.String("dialect", dialect), zap.Int("tables", len(Models())))
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	res, err := RunMigrations(sqlDB)
	if err != nil {
		return err
	}
	log.Info("schema up to date", zap.Uint("version", res.Version), zap.Bool("applied", res.Applied))
	return nil
}
