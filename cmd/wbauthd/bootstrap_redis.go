package main

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/inkstone/wbauth/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// initRedis connects to cfg.Redis.Addr. When that fails and the embedded fallback is
// allowed, an in-process miniredis is started instead; its data does not survive a
// restart.
func initRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := rdb.Ping(pctx).Err()
	if err == nil {
		logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
		return rdb, func() { _ = rdb.Close() }, nil
	}
	_ = rdb.Close()

	if !cfg.Redis.Embedded {
		return nil, nil, err
	}

	mr, mrErr := miniredis.Run()
	if mrErr != nil {
		return nil, nil, mrErr
	}
	logger.Warn("redis unreachable, using embedded in-memory redis",
		zap.String("addr", cfg.Redis.Addr),
		zap.Error(err),
	)
	embedded := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return embedded, func() {
		_ = embedded.Close()
		mr.Close()
	}, nil
}
