package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	apperr "jobtracker-engine/internal/errors"
)

type Status string

const (
	StatusResearching        Status = "RESEARCHING"
	StatusApplied            Status = "APPLIED"
	StatusPhoneScreen        Status = "PHONE_SCREEN"
	StatusTechnicalInterview Status = "TECHNICAL_INTERVIEW"
	StatusOnsiteInterview    Status = "ONSITE_INTERVIEW"
	StatusOffer              Status = "OFFER"
	StatusRejected           Status = "REJECTED"
	StatusWithdrawn          Status = "WITHDRAWN"
	StatusAccepted           Status = "ACCEPTED"
)

const (
	MaxDescriptionLen = 2000
	MaxNotesLen       = 1000
)

var allStatuses = []Status{
	StatusResearching,
	StatusApplied,
	StatusPhoneScreen,
	StatusTechnicalInterview,
	StatusOnsiteInterview,
	StatusOffer,
	StatusRejected,
	StatusWithdrawn,
	StatusAccepted,
}

// Statuses returns every status in pipeline order.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ClosedStatuses are the end states that make an application inactive.
func ClosedStatuses() []Status {
	return []Status{StatusRejected, StatusWithdrawn, StatusAccepted}
}

func InterviewStatuses() []Status {
	return []Status{StatusPhoneScreen, StatusTechnicalInterview, StatusOnsiteInterview}
}

func (s Status) Valid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus accepts a status token in any case, surrounding spaces ignored.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}

func (s Status) Active() bool {
	switch s {
	case StatusRejected, StatusWithdrawn, StatusAccepted:
		return false
	default:
		return true
	}
}

func (s Status) InInterviewProcess() bool {
	switch s {
	case StatusPhoneScreen, StatusTechnicalInterview, StatusOnsiteInterview:
		return true
	default:
		return false
	}
}

type Application struct {
	ID          int64
	CompanyName string
	JobTitle    string
	Status      Status
	Description string
	Notes       string
	Location    string
	JobURL      string
	SalaryMin   *int
	SalaryMax   *int
	AppliedDate *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (a Application) Active() bool             { return a.Status.Active() }
func (a Application) InInterviewProcess() bool { return a.Status.InInterviewProcess() }

// Request carries the client-editable fields of an application.
type Request struct {
	CompanyName string
	JobTitle    string
	Status      Status
	Description string
	Notes       string
	Location    string
	JobURL      string
	SalaryMin   *int
	SalaryMax   *int
	AppliedDate *time.Time
}

// Validate collects every failing reason into one INVALID_INPUT error.
func (r Request) Validate() error {
	var reasons []string

	if strings.TrimSpace(r.CompanyName) == "" {
		reasons = append(reasons, "companyName is required")
	}
	if strings.TrimSpace(r.JobTitle) == "" {
		reasons = append(reasons, "jobTitle is required")
	}
	switch {
	case r.Status == "":
		reasons = append(reasons, "status is required")
	case !r.Status.Valid():
		reasons = append(reasons, "unrecognized status: "+string(r.Status))
	}
	if r.SalaryMin != nil && r.SalaryMax != nil && *r.SalaryMin > *r.SalaryMax {
		reasons = append(reasons, "Minimum salary cannot be greater than maximum salary")
	}
	if utf8.RuneCountInString(r.Description) > MaxDescriptionLen {
		reasons = append(reasons, "description must be at most 2000 characters")
	}
	if utf8.RuneCountInString(r.Notes) > MaxNotesLen {
		reasons = append(reasons, "notes must be at most 1000 characters")
	}

	if len(reasons) > 0 {
		return apperr.Invalid(reasons...)
	}
	return nil
}

// Apply overwrites every mutable field of a with the request. appliedDate
// falls back to now when the request leaves it unset.
func (r Request) Apply(a *Application, now time.Time) {
	a.CompanyName = r.CompanyName
	a.JobTitle = r.JobTitle
	a.Status = r.Status
	a.Description = r.Description
	a.Notes = r.Notes
	a.Location = r.Location
	a.JobURL = r.JobURL
	a.SalaryMin = r.SalaryMin
	a.SalaryMax = r.SalaryMax
	if r.AppliedDate != nil {
		d := *r.AppliedDate
		a.AppliedDate = &d
	} else {
		d := now
		a.AppliedDate = &d
	}
}

type Stats struct {
	Total       int64 `json:"total"`
	Active      int64 `json:"active"`
	InInterview int64 `json:"inInterview"`
	Rejected    int64 `json:"rejected"`
	Accepted    int64 `json:"accepted"`
}
