package httpapi

import (
	"strings"
	"time"

	"jobtracker-engine/internal/domain"
	apperr "jobtracker-engine/internal/errors"
)

// applicationRequest is the JSON body of POST and PUT. Unknown fields such
// as id or createdAt are ignored.
type applicationRequest struct {
	CompanyName string  `json:"companyName"`
	JobTitle    string  `json:"jobTitle"`
	Status      string  `json:"status"`
	Description string  `json:"description"`
	Notes       string  `json:"notes"`
	Location    string  `json:"location"`
	JobURL      string  `json:"jobUrl"`
	SalaryMin   *int    `json:"salaryMin"`
	SalaryMax   *int    `json:"salaryMax"`
	AppliedDate *string `json:"appliedDate"`
}

func (in applicationRequest) toDomain() (domain.Request, error) {
	req := domain.Request{
		CompanyName: in.CompanyName,
		JobTitle:    in.JobTitle,
		Description: in.Description,
		Notes:       in.Notes,
		Location:    in.Location,
		JobURL:      strings.TrimSpace(in.JobURL),
		SalaryMin:   in.SalaryMin,
		SalaryMax:   in.SalaryMax,
	}
	if strings.TrimSpace(in.Status) != "" {
		req.Status, _ = domain.ParseStatus(in.Status)
	}
	if in.AppliedDate != nil && strings.TrimSpace(*in.AppliedDate) != "" {
		t, err := parseTimestamp(*in.AppliedDate)
		if err != nil {
			return domain.Request{}, apperr.Invalid("appliedDate must be an ISO-8601 date-time")
		}
		req.AppliedDate = &t
	}
	return req, nil
}

type applicationResponse struct {
	ID                 int64      `json:"id"`
	CompanyName        string     `json:"companyName"`
	JobTitle           string     `json:"jobTitle"`
	Status             string     `json:"status"`
	Description        string     `json:"description"`
	Notes              string     `json:"notes"`
	Location           string     `json:"location"`
	JobURL             string     `json:"jobUrl"`
	SalaryMin          *int       `json:"salaryMin"`
	SalaryMax          *int       `json:"salaryMax"`
	AppliedDate        *time.Time `json:"appliedDate"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	Active             bool       `json:"active"`
	InInterviewProcess bool       `json:"inInterviewProcess"`
}

func toResponse(a domain.Application) applicationResponse {
	return applicationResponse{
		ID:                 a.ID,
		CompanyName:        a.CompanyName,
		JobTitle:           a.JobTitle,
		Status:             string(a.Status),
		Description:        a.Description,
		Notes:              a.Notes,
		Location:           a.Location,
		JobURL:             a.JobURL,
		SalaryMin:          a.SalaryMin,
		SalaryMax:          a.SalaryMax,
		AppliedDate:        a.AppliedDate,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
		Active:             a.Active(),
		InInterviewProcess: a.InInterviewProcess(),
	}
}

func toResponses(items []domain.Application) []applicationResponse {
	out := make([]applicationResponse, 0, len(items))
	for _, a := range items {
		out = append(out, toResponse(a))
	}
	return out
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTimestamp accepts RFC 3339 and zone-less local date-times. Zone-less
// values are taken as UTC.
func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
