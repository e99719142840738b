package main

import (
	"context"

	"github.com/inkstone/wbauth"
	"github.com/inkstone/wbauth/internal/config"
	"github.com/inkstone/wbauth/userstore"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// initUsers opens Postgres and applies migrations when db.dsn is set, otherwise it
// keeps accounts in memory.
func initUsers(ctx context.Context, cfg *config.Config, logger *zap.Logger) (wbauth.UserProvider, func(), error) {
	if cfg.DB.DSN == "" {
		logger.Warn("db.dsn not set, accounts are kept in memory")
		return userstore.NewMemory(), func() {}, nil
	}

	pg, err := userstore.OpenPostgres(ctx, cfg.DB.AsPostgresConfig())
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	logger.Info("postgres ready")
	return pg, pg.Close, nil
}

func initEngine(cfg *config.Config, rdb redis.UniversalClient, users wbauth.UserProvider, logger *zap.Logger) (*wbauth.Engine, error) {
	return wbauth.New().
		WithConfig(cfg.EngineConfig()).
		WithRedis(rdb).
		WithUserProvider(users).
		WithAuditSink(wbauth.NewZapSink(logger)).
		WithLogger(logger.Named("engine")).
		Build()
}
