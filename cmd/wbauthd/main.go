// Command wbauthd serves the wbauth session API over HTTP.
//
// Configuration is read from the YAML file named by -config (optional) and from the
// environment, e.g. JWT_ACCESS_SECRET, JWT_REFRESH_SECRET, REDIS_ADDR, DB_DSN.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inkstone/wbauth/internal/config"
	"github.com/inkstone/wbauth/internal/httpapi"
	"github.com/inkstone/wbauth/internal/obs"
	promexport "github.com/inkstone/wbauth/metrics/export/prometheus"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting wbauthd", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	rdb, closeRedis, err := initRedis(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}
	defer closeRedis()

	users, closeUsers, err := initUsers(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("user store", zap.Error(err))
	}
	defer closeUsers()

	engine, err := initEngine(cfg, rdb, users, logger)
	if err != nil {
		logger.Fatal("build engine", zap.Error(err))
	}
	defer engine.Close()

	metricsSrv := obs.BootstrapMetricsServer(
		cfg.Server.MetricsAddr,
		promexport.NewCollector(engine).Handler(),
		engine.HealthCheck,
		logger,
	)

	httpSrv := &http.Server{
		Addr: cfg.Server.HTTPAddr,
		Handler: httpapi.NewHandler(engine, httpapi.Options{
			Logger:     logger.Named("http"),
			Production: cfg.App.Production,
		}),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	httpErrCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
		httpErrCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	_ = httpSrv.Shutdown(shCtx)
	_ = metricsSrv.Shutdown(shCtx)
	logger.Info("bye")
}
