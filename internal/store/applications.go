package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobtracker-engine/internal/domain"
	apperr "jobtracker-engine/internal/errors"
)

// Timestamps are stored as fixed-width UTC text so ORDER BY on the column
// matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const applicationColumns = `id, company_name, job_title, status, description, notes, location, job_url,
  salary_min, salary_max, applied_date, created_at, updated_at`

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type ApplicationRepository struct {
	q querier
	// db is nil when the repository is bound to a transaction.
	db *sql.DB
}

var _ domain.ApplicationRepository = (*ApplicationRepository)(nil)

func NewApplicationRepository(db *DB) *ApplicationRepository {
	return &ApplicationRepository{q: db.Pool, db: db.Pool}
}

func (r *ApplicationRepository) WithinTx(ctx context.Context, fn func(repo domain.ApplicationRepository) error) error {
	if r.db == nil {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Internal("failed to begin transaction", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&ApplicationRepository{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperr.Internal("failed to commit transaction", err)
	}
	committed = true
	return nil
}

func (r *ApplicationRepository) Create(ctx context.Context, app *domain.Application) error {
	res, err := r.q.ExecContext(ctx, `
INSERT INTO job_applications (company_name, job_title, status, description, notes, location, job_url,
  salary_min, salary_max, applied_date, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		app.CompanyName,
		app.JobTitle,
		string(app.Status),
		app.Description,
		app.Notes,
		app.Location,
		app.JobURL,
		nullInt(app.SalaryMin),
		nullInt(app.SalaryMax),
		nullTime(app.AppliedDate),
		formatTime(app.CreatedAt),
		formatTime(app.UpdatedAt),
	)
	if err != nil {
		return apperr.Internal("failed to create application", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperr.Internal("failed to read application id", err)
	}
	app.ID = id
	return nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*domain.Application, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM job_applications WHERE id = ?;`, id)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, apperr.Internal("failed to load application", err)
	}
	return &app, nil
}

// Update overwrites every column except id and created_at.
func (r *ApplicationRepository) Update(ctx context.Context, app *domain.Application) error {
	res, err := r.q.ExecContext(ctx, `
UPDATE job_applications
SET company_name = ?, job_title = ?, status = ?, description = ?, notes = ?, location = ?, job_url = ?,
    salary_min = ?, salary_max = ?, applied_date = ?, updated_at = ?
WHERE id = ?;`,
		app.CompanyName,
		app.JobTitle,
		string(app.Status),
		app.Description,
		app.Notes,
		app.Location,
		app.JobURL,
		nullInt(app.SalaryMin),
		nullInt(app.SalaryMax),
		nullTime(app.AppliedDate),
		formatTime(app.UpdatedAt),
		app.ID,
	)
	if err != nil {
		return apperr.Internal("failed to update application", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal("failed to update application", err)
	}
	if n == 0 {
		return notFound(app.ID)
	}
	return nil
}

func (r *ApplicationRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM job_applications WHERE id = ?;`, id)
	if err != nil {
		return apperr.Internal("failed to delete application", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal("failed to delete application", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func (r *ApplicationRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx, `SELECT 1 FROM job_applications WHERE id = ? LIMIT 1;`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Internal("failed to check application", err)
	}
	return true, nil
}

func (r *ApplicationRepository) List(ctx context.Context) ([]domain.Application, error) {
	return r.list(ctx, "failed to list applications",
		`SELECT `+applicationColumns+` FROM job_applications ORDER BY id;`)
}

func (r *ApplicationRepository) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Application, error) {
	return r.list(ctx, "failed to list applications by status",
		`SELECT `+applicationColumns+` FROM job_applications WHERE status = ? ORDER BY id;`, string(status))
}

func (r *ApplicationRepository) ListActive(ctx context.Context) ([]domain.Application, error) {
	in, args := statusSet(domain.ClosedStatuses())
	return r.list(ctx, "failed to list active applications",
		`SELECT `+applicationColumns+` FROM job_applications
WHERE status NOT IN (`+in+`)
ORDER BY updated_at DESC, id DESC;`, args...)
}

func (r *ApplicationRepository) ListInInterview(ctx context.Context) ([]domain.Application, error) {
	in, args := statusSet(domain.InterviewStatuses())
	return r.list(ctx, "failed to list applications in interview",
		`SELECT `+applicationColumns+` FROM job_applications
WHERE status IN (`+in+`)
ORDER BY updated_at DESC, id DESC;`, args...)
}

func (r *ApplicationRepository) SearchByCompany(ctx context.Context, fragment string) ([]domain.Application, error) {
	pattern := "%" + escapeLike(strings.ToLower(fragment)) + "%"
	return r.list(ctx, "failed to search applications",
		`SELECT `+applicationColumns+` FROM job_applications
WHERE lower(company_name) LIKE ? ESCAPE '\'
ORDER BY id;`, pattern)
}

func (r *ApplicationRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.Application, error) {
	return r.list(ctx, "failed to list applications by creation time",
		`SELECT `+applicationColumns+` FROM job_applications
WHERE created_at >= ? AND created_at <= ?
ORDER BY created_at, id;`, formatTime(from), formatTime(to))
}

func (r *ApplicationRepository) ListRecent(ctx context.Context, limit int) ([]domain.Application, error) {
	return r.list(ctx, "failed to list recent applications",
		`SELECT `+applicationColumns+` FROM job_applications
ORDER BY updated_at DESC, id DESC
LIMIT ?;`, limit)
}

func (r *ApplicationRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM job_applications;`).Scan(&n); err != nil {
		return 0, apperr.Internal("failed to count applications", err)
	}
	return n, nil
}

func (r *ApplicationRepository) CountByStatus(ctx context.Context, status domain.Status) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM job_applications WHERE status = ?;`, string(status)).Scan(&n)
	if err != nil {
		return 0, apperr.Internal("failed to count applications by status", err)
	}
	return n, nil
}

func (r *ApplicationRepository) list(ctx context.Context, failMsg, query string, args ...any) ([]domain.Application, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	defer rows.Close()

	items := []domain.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, apperr.Internal("failed to scan application", err)
		}
		items = append(items, app)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	return items, nil
}

func scanApplication(row rowScanner) (domain.Application, error) {
	var (
		app         domain.Application
		status      string
		salaryMin   sql.NullInt64
		salaryMax   sql.NullInt64
		appliedDate sql.NullString
		createdAt   string
		updatedAt   string
	)
	if err := row.Scan(
		&app.ID,
		&app.CompanyName,
		&app.JobTitle,
		&status,
		&app.Description,
		&app.Notes,
		&app.Location,
		&app.JobURL,
		&salaryMin,
		&salaryMax,
		&appliedDate,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Application{}, err
	}

	app.Status = domain.Status(status)
	if salaryMin.Valid {
		v := int(salaryMin.Int64)
		app.SalaryMin = &v
	}
	if salaryMax.Valid {
		v := int(salaryMax.Int64)
		app.SalaryMax = &v
	}
	if appliedDate.Valid && appliedDate.String != "" {
		t, err := parseTime(appliedDate.String)
		if err != nil {
			return domain.Application{}, fmt.Errorf("parse applied_date: %w", err)
		}
		app.AppliedDate = &t
	}

	var err error
	if app.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Application{}, fmt.Errorf("parse created_at: %w", err)
	}
	if app.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Application{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return app, nil
}

func notFound(id int64) error {
	return apperr.NotFound(fmt.Sprintf("application not found with id: %d", id), nil)
}

func statusSet(statuses []domain.Status) (string, []any) {
	marks := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		marks[i] = "?"
		args[i] = string(s)
	}
	return strings.Join(marks, ", "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func nullTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return formatTime(*p)
}
