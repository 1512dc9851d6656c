package domain

import (
	"strings"
	"testing"
	"time"

	apperr "jobtracker-engine/internal/errors"
)

func intPtr(v int) *int { return &v }

func TestStatusPredicates(t *testing.T) {
	cases := []struct {
		status      Status
		active      bool
		inInterview bool
	}{
		{StatusResearching, true, false},
		{StatusApplied, true, false},
		{StatusPhoneScreen, true, true},
		{StatusTechnicalInterview, true, true},
		{StatusOnsiteInterview, true, true},
		{StatusOffer, true, false},
		{StatusRejected, false, false},
		{StatusWithdrawn, false, false},
		{StatusAccepted, false, false},
	}
	if len(cases) != len(Statuses()) {
		t.Fatalf("status table out of date: %d cases, %d statuses", len(cases), len(Statuses()))
	}
	for _, tc := range cases {
		app := Application{Status: tc.status}
		if app.Active() != tc.active {
			t.Fatalf("%s: active=%v, want %v", tc.status, app.Active(), tc.active)
		}
		if app.InInterviewProcess() != tc.inInterview {
			t.Fatalf("%s: inInterview=%v, want %v", tc.status, app.InInterviewProcess(), tc.inInterview)
		}
		if app.InInterviewProcess() && !app.Active() {
			t.Fatalf("%s: in interview but inactive", tc.status)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := ParseStatus(" technical_interview "); !ok || s != StatusTechnicalInterview {
		t.Fatalf("expected TECHNICAL_INTERVIEW, got %q ok=%v", s, ok)
	}
	if _, ok := ParseStatus("GHOSTED"); ok {
		t.Fatalf("expected unknown status to fail")
	}
	if _, ok := ParseStatus(""); ok {
		t.Fatalf("expected empty status to fail")
	}
}

func TestRequestValidate(t *testing.T) {
	valid := Request{CompanyName: "TestCorp", JobTitle: "Software Engineer", Status: StatusApplied}

	cases := []struct {
		name   string
		mutate func(r *Request)
		reason string
	}{
		{"blank company", func(r *Request) { r.CompanyName = "   " }, "companyName is required"},
		{"blank title", func(r *Request) { r.JobTitle = "" }, "jobTitle is required"},
		{"missing status", func(r *Request) { r.Status = "" }, "status is required"},
		{"unknown status", func(r *Request) { r.Status = "GHOSTED" }, "unrecognized status: GHOSTED"},
		{"salary inverted", func(r *Request) { r.SalaryMin, r.SalaryMax = intPtr(200), intPtr(100) }, "Minimum salary cannot be greater than maximum salary"},
		{"long description", func(r *Request) { r.Description = strings.Repeat("d", MaxDescriptionLen+1) }, "description must be at most 2000 characters"},
		{"long notes", func(r *Request) { r.Notes = strings.Repeat("n", MaxNotesLen+1) }, "notes must be at most 1000 characters"},
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			err := req.Validate()
			de, ok := apperr.As(err)
			if !ok || de.Type != apperr.ErrTypeInvalidInput {
				t.Fatalf("expected INVALID_INPUT, got %v", err)
			}
			found := false
			for _, d := range de.Details {
				if d == tc.reason {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected reason %q in %v", tc.reason, de.Details)
			}
		})
	}
}

func TestRequestValidateSalaryBounds(t *testing.T) {
	base := Request{CompanyName: "A", JobTitle: "B", Status: StatusOffer}

	only := base
	only.SalaryMin = intPtr(500000)
	if err := only.Validate(); err != nil {
		t.Fatalf("min only should be valid: %v", err)
	}

	equal := base
	equal.SalaryMin, equal.SalaryMax = intPtr(100), intPtr(100)
	if err := equal.Validate(); err != nil {
		t.Fatalf("equal bounds should be valid: %v", err)
	}
}

func TestRequestValidateCollectsAllReasons(t *testing.T) {
	err := Request{}.Validate()
	de, ok := apperr.As(err)
	if !ok {
		t.Fatalf("expected domain error, got %v", err)
	}
	if len(de.Details) != 3 {
		t.Fatalf("expected 3 reasons, got %v", de.Details)
	}
}

func TestRequestApplyDefaultsAppliedDate(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var app Application
	Request{CompanyName: "A", JobTitle: "B", Status: StatusApplied}.Apply(&app, now)
	if app.AppliedDate == nil || !app.AppliedDate.Equal(now) {
		t.Fatalf("expected applied date %v, got %v", now, app.AppliedDate)
	}

	given := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	Request{CompanyName: "A", JobTitle: "B", Status: StatusApplied, AppliedDate: &given}.Apply(&app, now)
	if !app.AppliedDate.Equal(given) {
		t.Fatalf("expected explicit applied date kept, got %v", app.AppliedDate)
	}
}
