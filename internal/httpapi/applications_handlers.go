package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"jobtracker-engine/internal/domain"
	apperr "jobtracker-engine/internal/errors"
	"jobtracker-engine/internal/events"
	"jobtracker-engine/internal/service"
)

type ApplicationsHandler struct {
	Svc    *service.ApplicationService
	Bus    *events.Bus
	Logger *zap.Logger
}

func (h ApplicationsHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	WriteDomainError(w, r, h.Logger, err)
}

func (h ApplicationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in applicationRequest
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	req, err := in.toDomain()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	app, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := toResponse(*app)
	h.Bus.Emit(r.Context(), RequestIDFrom(r.Context()), events.ApplicationCreated, resp)
	w.Header().Set("Location", "/api/applications/"+strconv.FormatInt(app.ID, 10))
	WriteJSON(w, http.StatusCreated, resp)
}

func (h ApplicationsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Svc.ListAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toResponses(items))
}

func (h ApplicationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	app, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toResponse(*app))
}

func (h ApplicationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var in applicationRequest
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	req, err := in.toDomain()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	app, err := h.Svc.Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := toResponse(*app)
	h.Bus.Emit(r.Context(), RequestIDFrom(r.Context()), events.ApplicationUpdated, resp)
	WriteJSON(w, http.StatusOK, resp)
}

func (h ApplicationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.Bus.Emit(r.Context(), RequestIDFrom(r.Context()), events.ApplicationDeleted, map[string]any{"id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (h ApplicationsHandler) ByStatus(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("status")
	status, ok := domain.ParseStatus(raw)
	if !ok {
		h.fail(w, r, apperr.Invalid("unrecognized status: "+raw))
		return
	}
	items, err := h.Svc.ListByStatus(r.Context(), status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toResponses(items))
}

func (h ApplicationsHandler) Active(w http.ResponseWriter, r *http.Request) {
	items, err := h.Svc.ListActive(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toResponses(items))
}

func (h ApplicationsHandler) Interview(w http.ResponseWriter, r *http.Request) {
	items, err := h.Svc.ListInInterview(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toResponses(items))
}

func (h ApplicationsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Statistics(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func (h ApplicationsHandler) Search(w http.ResponseWriter, r *http.Request) {
	items, err := h.Svc.SearchByCompany(r.Context(), r.URL.Query().Get("company"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toResponses(items))
}

func (h ApplicationsHandler) CreatedBetween(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawFrom, rawTo := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if rawFrom == "" || rawTo == "" {
		h.fail(w, r, apperr.Invalid("from and to are required"))
		return
	}

	var reasons []string
	from, err := parseTimestamp(rawFrom)
	if err != nil {
		reasons = append(reasons, "from must be an ISO-8601 date-time")
	}
	to, err := parseTimestamp(rawTo)
	if err != nil {
		reasons = append(reasons, "to must be an ISO-8601 date-time")
	}
	if len(reasons) > 0 {
		h.fail(w, r, apperr.Invalid(reasons...))
		return
	}

	items, err := h.Svc.ListCreatedBetween(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toResponses(items))
}

func (h ApplicationsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.fail(w, r, apperr.Invalid("limit must be a positive integer"))
			return
		}
		limit = n
	}
	items, err := h.Svc.ListRecent(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toResponses(items))
}

func (h ApplicationsHandler) Posting(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	preview, err := h.Svc.PostingPreview(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, preview)
}
