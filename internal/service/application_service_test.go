package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"jobtracker-engine/internal/domain"
	apperr "jobtracker-engine/internal/errors"
	"jobtracker-engine/internal/posting"
	"jobtracker-engine/internal/store"
)

type stubFetcher struct {
	calls int
	url   string
	err   error
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) (posting.Preview, error) {
	f.calls++
	f.url = rawURL
	if f.err != nil {
		return posting.Preview{}, f.err
	}
	return posting.Preview{URL: rawURL, Title: "Engineer"}, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*ApplicationService, *clock) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "jobtracker.db"), store.Options{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.Migrate(context.Background(), db.Pool, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	c := &clock{t: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
	svc := NewApplicationService(store.NewApplicationRepository(db), nil, zap.NewNop(), nil)
	svc.now = c.now
	return svc, c
}

func intPtr(v int) *int { return &v }

func validRequest(company string, status domain.Status) domain.Request {
	return domain.Request{
		CompanyName: company,
		JobTitle:    "Software Engineer",
		Status:      status,
	}
}

func mustCreate(t *testing.T, svc *ApplicationService, company string, status domain.Status) *domain.Application {
	t.Helper()
	app, err := svc.Create(context.Background(), validRequest(company, status))
	if err != nil {
		t.Fatalf("create %s: %v", company, err)
	}
	return app
}

func TestCreateAssignsIDAndTimestamps(t *testing.T) {
	svc, c := newTestService(t)

	req := validRequest("TestCorp", domain.StatusApplied)
	req.SalaryMin = intPtr(150000)
	req.SalaryMax = intPtr(180000)
	app, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if app.ID <= 0 {
		t.Fatalf("expected positive id, got %d", app.ID)
	}
	if !app.CreatedAt.Equal(c.t) || !app.UpdatedAt.Equal(c.t) {
		t.Fatalf("expected createdAt == updatedAt == now, got %v %v", app.CreatedAt, app.UpdatedAt)
	}
	if app.AppliedDate == nil || !app.AppliedDate.Equal(c.t) {
		t.Fatalf("expected appliedDate defaulted to now, got %v", app.AppliedDate)
	}
	if *app.SalaryMin != 150000 || *app.SalaryMax != 180000 {
		t.Fatalf("unexpected salary range %d-%d", *app.SalaryMin, *app.SalaryMax)
	}

	second := mustCreate(t, svc, "Other", domain.StatusResearching)
	if second.ID == app.ID {
		t.Fatalf("expected distinct ids")
	}
}

func TestCreateKeepsExplicitAppliedDate(t *testing.T) {
	svc, _ := newTestService(t)
	applied := time.Date(2023, 12, 1, 9, 0, 0, 0, time.UTC)

	req := validRequest("TestCorp", domain.StatusApplied)
	req.AppliedDate = &applied
	app, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !app.AppliedDate.Equal(applied) {
		t.Fatalf("expected %v, got %v", applied, app.AppliedDate)
	}
}

func TestCreateRejectsInvalidRequests(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []struct {
		name   string
		mutate func(r *domain.Request)
		reason string
	}{
		{"salary inverted", func(r *domain.Request) { r.SalaryMin, r.SalaryMax = intPtr(200000), intPtr(150000) }, "Minimum salary cannot be greater than maximum salary"},
		{"blank company", func(r *domain.Request) { r.CompanyName = "   " }, "companyName is required"},
		{"missing title", func(r *domain.Request) { r.JobTitle = "" }, "jobTitle is required"},
		{"missing status", func(r *domain.Request) { r.Status = "" }, "status is required"},
		{"long notes", func(r *domain.Request) { r.Notes = strings.Repeat("n", 1001) }, "notes must be at most 1000 characters"},
		{"long description", func(r *domain.Request) { r.Description = strings.Repeat("d", 2001) }, "description must be at most 2000 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest("TestCorp", domain.StatusApplied)
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), req)
			de, ok := apperr.As(err)
			if !ok || de.Type != apperr.ErrTypeInvalidInput {
				t.Fatalf("expected invalid input, got %v", err)
			}
			if !strings.Contains(de.Message, tc.reason) {
				t.Fatalf("expected reason %q in %q", tc.reason, de.Message)
			}
		})
	}

	all, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("rejected requests must not persist, found %d", len(all))
	}
}

func TestCreateAcceptsBoundaryLengthsAndEqualSalaries(t *testing.T) {
	svc, _ := newTestService(t)

	req := validRequest("TestCorp", domain.StatusApplied)
	req.Notes = strings.Repeat("n", 1000)
	req.Description = strings.Repeat("d", 2000)
	req.SalaryMin = intPtr(100000)
	req.SalaryMax = intPtr(100000)
	if _, err := svc.Create(context.Background(), req); err != nil {
		t.Fatalf("expected boundary values to be accepted, got %v", err)
	}
}

func TestUpdateOverwritesAndPreservesCreatedAt(t *testing.T) {
	svc, c := newTestService(t)
	created := mustCreate(t, svc, "TestCorp", domain.StatusApplied)
	createdAt := created.CreatedAt

	c.advance(time.Hour)
	req := validRequest("TestCorp", domain.StatusPhoneScreen)
	req.Notes = "Recruiter call booked"
	updated, err := svc.Update(context.Background(), created.ID, req)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.StatusPhoneScreen || updated.Notes != "Recruiter call booked" {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if !updated.CreatedAt.Equal(createdAt) {
		t.Fatalf("createdAt changed: %v -> %v", createdAt, updated.CreatedAt)
	}
	if !updated.UpdatedAt.After(createdAt) {
		t.Fatalf("expected updatedAt to advance, got %v", updated.UpdatedAt)
	}
	if !updated.InInterviewProcess() {
		t.Fatalf("expected phone screen to be in interview process")
	}
}

func TestUpdateAppliesEveryFieldIncludingClears(t *testing.T) {
	svc, c := newTestService(t)
	req := validRequest("TestCorp", domain.StatusApplied)
	req.Location = "Remote"
	req.SalaryMin = intPtr(1)
	created, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	c.advance(time.Minute)
	updated, err := svc.Update(context.Background(), created.ID, validRequest("Renamed", domain.StatusApplied))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CompanyName != "Renamed" || updated.Location != "" || updated.SalaryMin != nil {
		t.Fatalf("expected full overwrite, got %+v", updated)
	}
	if updated.AppliedDate == nil || !updated.AppliedDate.Equal(c.t) {
		t.Fatalf("expected appliedDate re-defaulted to update time, got %v", updated.AppliedDate)
	}
}

func TestUpdateMissingAndInvalid(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Update(context.Background(), 999, validRequest("X", domain.StatusApplied))
	if !apperr.Is(err, apperr.ErrTypeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !strings.Contains(err.Error(), "application not found with id: 999") {
		t.Fatalf("unexpected message: %v", err)
	}

	created := mustCreate(t, svc, "TestCorp", domain.StatusApplied)
	bad := validRequest("TestCorp", domain.StatusApplied)
	bad.SalaryMin, bad.SalaryMax = intPtr(10), intPtr(5)
	if _, err := svc.Update(context.Background(), created.ID, bad); !apperr.Is(err, apperr.ErrTypeInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	got, err := svc.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SalaryMin != nil {
		t.Fatalf("invalid update must not be stored, got %+v", got)
	}
}

func TestGetByIDMissing(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.GetByID(context.Background(), 42); !apperr.Is(err, apperr.ErrTypeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	app := mustCreate(t, svc, "TestCorp", domain.StatusApplied)

	if err := svc.Delete(context.Background(), app.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), app.ID); !apperr.Is(err, apperr.ErrTypeNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := svc.Delete(context.Background(), app.ID); !apperr.Is(err, apperr.ErrTypeNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	svc, c := newTestService(t)
	ctx := context.Background()

	applied := mustCreate(t, svc, "A", domain.StatusApplied)
	c.advance(time.Minute)
	phone := mustCreate(t, svc, "B", domain.StatusPhoneScreen)
	c.advance(time.Minute)
	mustCreate(t, svc, "C", domain.StatusRejected)
	c.advance(time.Minute)
	onsite := mustCreate(t, svc, "D", domain.StatusOnsiteInterview)
	c.advance(time.Minute)
	mustCreate(t, svc, "E", domain.StatusWithdrawn)

	all, err := svc.ListAll(ctx)
	if err != nil || len(all) != 5 {
		t.Fatalf("list all: %d %v", len(all), err)
	}

	active, err := svc.ListActive(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	wantIDs(t, "active", active, onsite.ID, phone.ID, applied.ID)
	for _, a := range active {
		if !a.Active() {
			t.Fatalf("inactive record %d in active list", a.ID)
		}
	}

	interview, err := svc.ListInInterview(ctx)
	if err != nil {
		t.Fatalf("interview: %v", err)
	}
	wantIDs(t, "interview", interview, onsite.ID, phone.ID)

	byStatus, err := svc.ListByStatus(ctx, domain.StatusApplied)
	if err != nil {
		t.Fatalf("by status: %v", err)
	}
	wantIDs(t, "applied", byStatus, applied.ID)

	if _, err := svc.ListByStatus(ctx, domain.Status("HIRED")); !apperr.Is(err, apperr.ErrTypeInvalidInput) {
		t.Fatalf("expected invalid input for unknown status, got %v", err)
	}

	offers, err := svc.ListByStatus(ctx, domain.StatusOffer)
	if err != nil {
		t.Fatalf("offers: %v", err)
	}
	if offers == nil || len(offers) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", offers)
	}
}

func TestStatistics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	empty, err := svc.Statistics(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if empty != (domain.Stats{}) {
		t.Fatalf("expected zero stats, got %+v", empty)
	}

	for _, s := range []domain.Status{
		domain.StatusApplied,
		domain.StatusPhoneScreen,
		domain.StatusTechnicalInterview,
		domain.StatusRejected,
		domain.StatusRejected,
		domain.StatusAccepted,
		domain.StatusWithdrawn,
		domain.StatusOffer,
	} {
		mustCreate(t, svc, "Co", s)
	}

	stats, err := svc.Statistics(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := domain.Stats{Total: 8, Active: 4, InInterview: 2, Rejected: 2, Accepted: 1}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}

func TestSearchCreatedBetweenAndRecent(t *testing.T) {
	svc, c := newTestService(t)
	ctx := context.Background()
	start := c.t

	acme := mustCreate(t, svc, "Acme Corp", domain.StatusApplied)
	c.advance(24 * time.Hour)
	globex := mustCreate(t, svc, "Globex", domain.StatusApplied)
	c.advance(24 * time.Hour)
	initech := mustCreate(t, svc, "Initech", domain.StatusApplied)

	found, err := svc.SearchByCompany(ctx, "  ACME ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	wantIDs(t, "search", found, acme.ID)
	if _, err := svc.SearchByCompany(ctx, " "); !apperr.Is(err, apperr.ErrTypeInvalidInput) {
		t.Fatalf("expected invalid input for blank search, got %v", err)
	}

	between, err := svc.ListCreatedBetween(ctx, start.Add(time.Hour), start.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("between: %v", err)
	}
	wantIDs(t, "between", between, globex.ID)
	if _, err := svc.ListCreatedBetween(ctx, start.Add(time.Hour), start); !apperr.Is(err, apperr.ErrTypeInvalidInput) {
		t.Fatalf("expected invalid input for inverted range, got %v", err)
	}

	recent, err := svc.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	wantIDs(t, "recent", recent, initech.ID, globex.ID)

	defaulted, err := svc.ListRecent(ctx, 0)
	if err != nil || len(defaulted) != 3 {
		t.Fatalf("recent default: %d %v", len(defaulted), err)
	}
	if _, err := svc.ListRecent(ctx, MaxRecentLimit+1); !apperr.Is(err, apperr.ErrTypeInvalidInput) {
		t.Fatalf("expected invalid input above max limit, got %v", err)
	}
}

func TestPostingPreview(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	noURL := mustCreate(t, svc, "TestCorp", domain.StatusApplied)
	if _, err := svc.PostingPreview(ctx, noURL.ID); !apperr.Is(err, apperr.ErrTypeInvalidInput) {
		t.Fatalf("expected invalid input without jobUrl, got %v", err)
	}

	req := validRequest("TestCorp", domain.StatusApplied)
	req.JobURL = "https://jobs.example.com/1"
	withURL, err := svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.PostingPreview(ctx, withURL.ID); !apperr.Is(err, apperr.ErrTypeUnavailable) {
		t.Fatalf("expected unavailable without fetcher, got %v", err)
	}

	fetcher := &stubFetcher{}
	svc.postings = fetcher
	p, err := svc.PostingPreview(ctx, withURL.ID)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if fetcher.url != "https://jobs.example.com/1" || p.Title != "Engineer" {
		t.Fatalf("unexpected preview %+v via %q", p, fetcher.url)
	}

	if _, err := svc.PostingPreview(ctx, 999); !apperr.Is(err, apperr.ErrTypeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected one fetch, got %d", fetcher.calls)
	}
}

func wantIDs(t *testing.T, label string, items []domain.Application, want ...int64) {
	t.Helper()
	if len(items) != len(want) {
		t.Fatalf("%s: expected %d items, got %d", label, len(want), len(items))
	}
	for i, id := range want {
		if items[i].ID != id {
			t.Fatalf("%s[%d]: expected id %d, got %d", label, i, id, items[i].ID)
		}
	}
}
