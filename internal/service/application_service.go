package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"jobtracker-engine/internal/domain"
	apperr "jobtracker-engine/internal/errors"
	"jobtracker-engine/internal/posting"
	"jobtracker-engine/internal/telemetry"
)

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 100
)

type PostingFetcher interface {
	Fetch(ctx context.Context, rawURL string) (posting.Preview, error)
}

type ApplicationService struct {
	repo     domain.ApplicationRepository
	postings PostingFetcher
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewApplicationService(repo domain.ApplicationRepository, postings PostingFetcher, logger *zap.Logger, tracer trace.Tracer) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracer == nil {
		tracer = telemetry.GetTracer("jobtracker/service")
	}
	return &ApplicationService{
		repo:     repo,
		postings: postings,
		logger:   logger,
		tracer:   tracer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ApplicationService) Create(ctx context.Context, req domain.Request) (created *domain.Application, err error) {
	ctx, span := s.start(ctx, "Create")
	defer func() { endSpan(span, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	app := &domain.Application{CreatedAt: now, UpdatedAt: now}
	req.Apply(app, now)

	err = s.repo.WithinTx(ctx, func(repo domain.ApplicationRepository) error {
		if err := repo.Create(ctx, app); err != nil {
			return err
		}
		stored, err := repo.GetByID(ctx, app.ID)
		if err != nil {
			return err
		}
		created = stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(telemetry.Int64("application.id", created.ID))
	s.logger.Info("application created",
		zap.Int64("id", created.ID),
		zap.String("company", created.CompanyName),
		zap.String("status", string(created.Status)))
	return created, nil
}

// Update overwrites every mutable field. An unset appliedDate is re-defaulted
// to the update time, not kept from the stored record.
func (s *ApplicationService) Update(ctx context.Context, id int64, req domain.Request) (updated *domain.Application, err error) {
	ctx, span := s.start(ctx, "Update")
	span.SetAttributes(telemetry.Int64("application.id", id))
	defer func() { endSpan(span, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	err = s.repo.WithinTx(ctx, func(repo domain.ApplicationRepository) error {
		app, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		req.Apply(app, now)
		app.UpdatedAt = now
		if err := repo.Update(ctx, app); err != nil {
			return err
		}
		stored, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		updated = stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("application updated",
		zap.Int64("id", id),
		zap.String("status", string(updated.Status)))
	return updated, nil
}

func (s *ApplicationService) GetByID(ctx context.Context, id int64) (app *domain.Application, err error) {
	ctx, span := s.start(ctx, "GetByID")
	span.SetAttributes(telemetry.Int64("application.id", id))
	defer func() { endSpan(span, err) }()

	return s.repo.GetByID(ctx, id)
}

func (s *ApplicationService) ListAll(ctx context.Context) (items []domain.Application, err error) {
	ctx, span := s.start(ctx, "ListAll")
	defer func() { endSpan(span, err) }()

	return s.repo.List(ctx)
}

func (s *ApplicationService) ListByStatus(ctx context.Context, status domain.Status) (items []domain.Application, err error) {
	ctx, span := s.start(ctx, "ListByStatus")
	span.SetAttributes(telemetry.String("application.status", string(status)))
	defer func() { endSpan(span, err) }()

	if !status.Valid() {
		return nil, apperr.Invalid("unrecognized status: " + string(status))
	}
	return s.repo.ListByStatus(ctx, status)
}

func (s *ApplicationService) ListActive(ctx context.Context) (items []domain.Application, err error) {
	ctx, span := s.start(ctx, "ListActive")
	defer func() { endSpan(span, err) }()

	return s.repo.ListActive(ctx)
}

func (s *ApplicationService) ListInInterview(ctx context.Context) (items []domain.Application, err error) {
	ctx, span := s.start(ctx, "ListInInterview")
	defer func() { endSpan(span, err) }()

	return s.repo.ListInInterview(ctx)
}

func (s *ApplicationService) SearchByCompany(ctx context.Context, fragment string) (items []domain.Application, err error) {
	ctx, span := s.start(ctx, "SearchByCompany")
	defer func() { endSpan(span, err) }()

	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, apperr.Invalid("company is required")
	}
	return s.repo.SearchByCompany(ctx, fragment)
}

func (s *ApplicationService) ListCreatedBetween(ctx context.Context, from, to time.Time) (items []domain.Application, err error) {
	ctx, span := s.start(ctx, "ListCreatedBetween")
	defer func() { endSpan(span, err) }()

	if from.After(to) {
		return nil, apperr.Invalid("from must not be after to")
	}
	return s.repo.ListCreatedBetween(ctx, from, to)
}

// ListRecent returns the most recently updated applications. A limit of zero
// or less means DefaultRecentLimit.
func (s *ApplicationService) ListRecent(ctx context.Context, limit int) (items []domain.Application, err error) {
	ctx, span := s.start(ctx, "ListRecent")
	defer func() { endSpan(span, err) }()

	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		return nil, apperr.Invalid("limit must be at most 100")
	}
	span.SetAttributes(telemetry.Int("limit", limit))
	return s.repo.ListRecent(ctx, limit)
}

func (s *ApplicationService) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := s.start(ctx, "Delete")
	span.SetAttributes(telemetry.Int64("application.id", id))
	defer func() { endSpan(span, err) }()

	err = s.repo.WithinTx(ctx, func(repo domain.ApplicationRepository) error {
		ok, err := repo.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound(fmt.Sprintf("application not found with id: %d", id), nil)
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("application deleted", zap.Int64("id", id))
	return nil
}

// Statistics reads every count inside one transaction so the numbers agree
// with each other.
func (s *ApplicationService) Statistics(ctx context.Context) (stats domain.Stats, err error) {
	ctx, span := s.start(ctx, "Statistics")
	defer func() { endSpan(span, err) }()

	err = s.repo.WithinTx(ctx, func(repo domain.ApplicationRepository) error {
		total, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		active, err := repo.ListActive(ctx)
		if err != nil {
			return err
		}
		inInterview, err := repo.ListInInterview(ctx)
		if err != nil {
			return err
		}
		rejected, err := repo.CountByStatus(ctx, domain.StatusRejected)
		if err != nil {
			return err
		}
		accepted, err := repo.CountByStatus(ctx, domain.StatusAccepted)
		if err != nil {
			return err
		}
		stats = domain.Stats{
			Total:       total,
			Active:      int64(len(active)),
			InInterview: int64(len(inInterview)),
			Rejected:    rejected,
			Accepted:    accepted,
		}
		return nil
	})
	return stats, err
}

// PostingPreview fetches the application's job posting page. The stored
// record is left untouched.
func (s *ApplicationService) PostingPreview(ctx context.Context, id int64) (preview posting.Preview, err error) {
	ctx, span := s.start(ctx, "PostingPreview")
	span.SetAttributes(telemetry.Int64("application.id", id))
	defer func() { endSpan(span, err) }()

	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return posting.Preview{}, err
	}
	if strings.TrimSpace(app.JobURL) == "" {
		return posting.Preview{}, apperr.Invalid("application has no jobUrl")
	}
	if s.postings == nil {
		return posting.Preview{}, apperr.Unavailable("posting previews are disabled", nil)
	}
	return s.postings.Fetch(ctx, app.JobURL)
}

func (s *ApplicationService) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "ApplicationService."+op)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
