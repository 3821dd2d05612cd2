package db

import (
	"context"
	"time"

	"github.com/smallbiznis/storeline/internal/config"
	obslogger "github.com/smallbiznis/storeline/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	gormprometheus "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(ConfigFrom),
	fx.Provide(Open),
)

// Open connects to the configured database and installs the tracing and
// pool metrics plugins.
func Open(lc fx.Lifecycle, cfg Config, appCfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialect, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	gormLogCfg := obslogger.DefaultGormLoggerConfig()
	if !appCfg.IsProduction() {
		gormLogCfg.Level = gormlogger.Info
	}

	conn, err := gorm.Open(dialect, &gorm.Config{
		Logger:         obslogger.NewGormLogger(gormLogCfg),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.Name))); err != nil {
		return nil, err
	}
	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          cfg.Name,
		RefreshInterval: 15,
		StartServer:     false,
	})); err != nil {
		log.Warn("gorm prometheus plugin disabled", zap.Error(err))
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	}
	if cfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Second)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sqlDB.PingContext(ctx)
		},
		OnStop: func(ctx context.Context) error {
			log.Info("closing database connection")
			return sqlDB.Close()
		},
	})

	log.Info("database connected",
		zap.String("type", cfg.Type),
		zap.String("host", cfg.Host),
		zap.String("name", cfg.Name),
	)
	return conn, nil
}
