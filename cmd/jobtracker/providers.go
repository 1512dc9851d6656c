package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"jobtracker-engine/internal/config"
	"jobtracker-engine/internal/domain"
	"jobtracker-engine/internal/events"
	"jobtracker-engine/internal/httpapi"
	"jobtracker-engine/internal/maintenance"
	"jobtracker-engine/internal/posting"
	"jobtracker-engine/internal/ratelimit"
	"jobtracker-engine/internal/secrets"
	"jobtracker-engine/internal/service"
	"jobtracker-engine/internal/store"
	"jobtracker-engine/internal/telemetry"
)

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", cfg.App.Name)), nil
}

func newTracer(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (trace.Tracer, error) {
	if cfg.Tracing.CollectorURL != "" {
		shutdown, err := telemetry.InitTracer(context.Background(), cfg.App.Name, cfg.App.Version, cfg.Tracing.CollectorURL)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: shutdown})
		logger.Info("tracing enabled", zap.String("collector", cfg.Tracing.CollectorURL))
	}
	return telemetry.GetTracer("jobtracker/service"), nil
}

func newRepository(db *store.DB) domain.ApplicationRepository {
	return store.NewApplicationRepository(db)
}

func newPostingFetcher(cfg config.Config, logger *zap.Logger) service.PostingFetcher {
	if !cfg.Posting.Enabled {
		return nil
	}
	return posting.NewFetcher(posting.Options{
		Timeout:      time.Duration(cfg.Posting.TimeoutSeconds) * time.Second,
		MaxBytes:     cfg.Posting.MaxBytes,
		ReqPerSecond: cfg.Posting.ReqPerSecond,
		Burst:        cfg.Posting.Burst,

		AllowPrivateHosts: cfg.Posting.AllowPrivateHosts,
	}, logger.Named("posting"))
}

type limiterOut struct {
	fx.Out

	Limiter ratelimit.Limiter
	Sweeper maintenance.Sweeper
}

// newLimiter prefers Redis when configured and reachable, and falls back to
// the in-process limiter otherwise.
func newLimiter(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) limiterOut {
	rl := cfg.RateLimit
	if rl.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     rl.RedisAddr,
			Password: secrets.Lookup(secrets.RedisPassword),
			DB:       rl.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err == nil {
			limiter := ratelimit.NewRedisLimiter(client, rl.RequestsPerMinute, time.Minute, rl.KeyPrefix, logger.Named("ratelimit"))
			lc.Append(fx.Hook{OnStop: func(context.Context) error { return limiter.Close() }})
			logger.Info("using redis rate limiter", zap.String("addr", rl.RedisAddr))
			return limiterOut{Limiter: limiter}
		}
		_ = client.Close()
		logger.Warn("redis unreachable, using in-memory rate limiter",
			zap.String("addr", rl.RedisAddr), zap.Error(err))
	}

	mem := ratelimit.NewMemoryLimiter(rl.RequestsPerMinute, rl.Burst)
	return limiterOut{Limiter: mem, Sweeper: mem}
}

func newBus(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*events.Bus, error) {
	hub := events.NewHub()
	if cfg.Events.NatsURL == "" {
		return events.NewBus(hub, nil, "", logger.Named("events")), nil
	}

	nc, err := events.Connect(cfg.Events.NatsURL, secrets.Lookup(secrets.NATSToken), logger.Named("nats"))
	if err != nil {
		return nil, err
	}
	bus := events.NewBus(hub, nc, cfg.Events.SubjectPrefix, logger.Named("events"))
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return bus.Close() }})
	logger.Info("publishing events to nats",
		zap.String("url", cfg.Events.NatsURL),
		zap.String("subject_prefix", cfg.Events.SubjectPrefix))
	return bus, nil
}

type maintenanceIn struct {
	fx.In

	DB       *store.DB
	Svc      *service.ApplicationService
	Sweeper  maintenance.Sweeper
	Postings service.PostingFetcher
	Cfg      config.Config
	Logger   *zap.Logger
}

func newMaintenance(in maintenanceIn) *maintenance.Runner {
	sweeper := in.Sweeper
	if hosts, ok := in.Postings.(maintenance.Sweeper); ok {
		sweeper = maintenance.Sweepers(in.Sweeper, hosts)
	}
	return maintenance.NewRunner(in.DB, in.Svc, sweeper, maintenance.Options{
		CheckpointInterval: time.Duration(in.Cfg.Maintenance.CheckpointSeconds) * time.Second,
		StatsInterval:      time.Duration(in.Cfg.Maintenance.StatsLogSeconds) * time.Second,
	}, in.Logger.Named("maintenance"))
}

func registerMaintenance(lc fx.Lifecycle, r *maintenance.Runner) {
	var cancel context.CancelFunc
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			r.Start(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			defer cancel()
			return r.Stop(ctx)
		},
	})
}

type serverIn struct {
	fx.In

	Cfg     config.Config
	Paths   runtimePaths
	Svc     *service.ApplicationService
	Bus     *events.Bus
	DB      *store.DB
	Limiter ratelimit.Limiter
	Logger  *zap.Logger
}

func newHTTPServer(in serverIn) *http.Server {
	handler := httpapi.NewRouter(httpapi.Deps{
		Applications: in.Svc,
		Bus:          in.Bus,
		DB:           in.DB,
		Config:       in.Cfg,
		ConfigPath:   in.Paths.ConfigPath,
		Limiter:      in.Limiter,
		Logger:       in.Logger.Named("http"),
	})
	return &http.Server{
		Addr:              in.Cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(in.Cfg.HTTP.ReadTimeoutSeconds) * time.Second,
		// SSE responses stay open, so HTTP.WriteTimeoutSeconds is enforced
		// per handler by httpapi.Timeout instead of here.
		IdleTimeout: 2 * time.Minute,
	}
}

func registerHTTPServer(lc fx.Lifecycle, srv *http.Server, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down http server")
			return srv.Shutdown(ctx)
		},
	})
}
