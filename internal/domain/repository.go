package domain

import (
	"context"
	"time"
)

type ApplicationRepository interface {
	Create(ctx context.Context, app *Application) error
	GetByID(ctx context.Context, id int64) (*Application, error)
	Update(ctx context.Context, app *Application) error
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)

	List(ctx context.Context) ([]Application, error)
	ListByStatus(ctx context.Context, status Status) ([]Application, error)
	ListActive(ctx context.Context) ([]Application, error)
	ListInInterview(ctx context.Context) ([]Application, error)
	SearchByCompany(ctx context.Context, fragment string) ([]Application, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]Application, error)
	ListRecent(ctx context.Context, limit int) ([]Application, error)

	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status Status) (int64, error)

	// WithinTx runs fn against a repository bound to a single transaction.
	// Calling it on an already transactional repository reuses that transaction.
	WithinTx(ctx context.Context, fn func(repo ApplicationRepository) error) error
}
