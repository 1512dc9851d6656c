package httpapi

import (
	"context"

	"go.uber.org/zap"

	"jobtracker-engine/internal/config"
	"jobtracker-engine/internal/events"
	"jobtracker-engine/internal/ratelimit"
	"jobtracker-engine/internal/service"
)

// Database is the part of the store the HTTP layer touches directly.
type Database interface {
	Ping(ctx context.Context) error
	Checkpoint(ctx context.Context) error
}

type Deps struct {
	Applications *service.ApplicationService
	Bus          *events.Bus
	DB           Database

	Config     config.Config
	ConfigPath string

	// Limiter may be nil to disable rate limiting.
	Limiter ratelimit.Limiter
	Logger  *zap.Logger
}
