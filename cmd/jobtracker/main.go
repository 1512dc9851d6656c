package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"jobtracker-engine/internal/config"
	"jobtracker-engine/internal/service"
	"jobtracker-engine/internal/store"
)

func main() {
	dataDir := config.DataDir()
	defaultCfgPath := filepath.Join("config", "config.yml")

	cfg, userCfgPath, vr, err := config.LoadUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	if !vr.OK() {
		for _, e := range vr.Errors {
			log.Printf("config error: %s", e)
		}
		log.Fatalf("invalid config: %s", userCfgPath)
	}

	app := fx.New(
		fx.Supply(cfg, runtimePaths{DataDir: dataDir, ConfigPath: userCfgPath}, vr),
		fx.Provide(
			newLogger,
			newTracer,
			openStore,
			newRepository,
			newPostingFetcher,
			service.NewApplicationService,
			newLimiter,
			newBus,
			newMaintenance,
			newHTTPServer,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Invoke(
			reportConfig,
			registerMaintenance,
			registerHTTPServer,
		),
		fx.StopTimeout(cfg.ShutdownTimeout()+5*time.Second),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		log.Fatal(err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout()+5*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Fatal(err)
	}
}

type runtimePaths struct {
	DataDir    string
	ConfigPath string
}

func reportConfig(cfg config.Config, paths runtimePaths, vr config.Validation, logger *zap.Logger) {
	for _, w := range vr.Warnings {
		logger.Warn("config warning", zap.String("warning", w))
	}
	logger.Info("configuration loaded",
		zap.String("config_path", paths.ConfigPath),
		zap.String("db_path", cfg.DatabasePath(paths.DataDir)),
		zap.String("http_addr", cfg.HTTP.Addr),
		zap.Bool("redis_rate_limit", cfg.RateLimit.RedisAddr != ""),
		zap.Bool("nats_events", cfg.Events.NatsURL != ""),
		zap.Bool("tracing", cfg.Tracing.CollectorURL != ""))
}

func openStore(lc fx.Lifecycle, cfg config.Config, paths runtimePaths, logger *zap.Logger) (*store.DB, error) {
	db, err := store.Open(cfg.DatabasePath(paths.DataDir), store.Options{
		BusyTimeout: time.Duration(cfg.Database.BusyTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(context.Background(), db.Pool, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Info("closing database")
			return db.Close()
		},
	})
	return db, nil
}
