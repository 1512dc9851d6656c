package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	apperr "jobtracker-engine/internal/errors"
)

type APIError struct {
	Error struct {
		Code      string   `json:"code"`
		Message   string   `json:"message"`
		Details   []string `json:"details,omitempty"`
		RequestID string   `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string, details ...string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.Details = details
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// WriteDomainError maps err onto the error envelope. Internal causes are
// logged and replaced with a generic message.
func WriteDomainError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		WriteError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
		return
	}

	de, ok := apperr.As(err)
	if !ok {
		de = apperr.Internal("unexpected error", err)
	}

	switch de.Type {
	case apperr.ErrTypeInvalidInput:
		details := de.Details
		if len(details) == 0 {
			details = []string{de.Message}
		}
		WriteError(w, r, http.StatusBadRequest, "validation_failed", de.Message, details...)
	case apperr.ErrTypeNotFound:
		WriteError(w, r, http.StatusNotFound, "not_found", de.Message)
	case apperr.ErrTypeRateLimit:
		WriteError(w, r, http.StatusTooManyRequests, "rate_limited", de.Message)
	case apperr.ErrTypeUnavailable:
		logger.Warn("upstream unavailable",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Error(err))
		WriteError(w, r, http.StatusBadGateway, "upstream_unavailable", de.Message)
	default:
		logger.Error("request failed",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
			zap.ByteString("stack", de.StackTrace()))
		WriteError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
