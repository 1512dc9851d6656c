package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	apperr "jobtracker-engine/internal/errors"
)

type DBHandler struct {
	DB     Database
	Logger *zap.Logger
}

func (h DBHandler) Checkpoint(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r) {
		WriteError(w, r, http.StatusForbidden, "forbidden", "forbidden")
		return
	}
	if h.DB == nil {
		WriteDomainError(w, r, h.Logger, apperr.Internal("database not configured", nil))
		return
	}
	if err := h.DB.Checkpoint(r.Context()); err != nil {
		WriteDomainError(w, r, h.Logger, apperr.Internal("checkpoint failed", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
