package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	apperr "jobtracker-engine/internal/errors"
	"jobtracker-engine/internal/secrets"
)

// SecretsHandler writes to the OS keyring. Only loopback clients may call it.
type SecretsHandler struct {
	Logger *zap.Logger
}

type setSecretReq struct {
	Value string `json:"value"`
}

func (h SecretsHandler) name(w http.ResponseWriter, r *http.Request) (secrets.Name, bool) {
	if !isLoopback(r) {
		WriteError(w, r, http.StatusForbidden, "forbidden", "secrets can only be managed from localhost")
		return "", false
	}
	raw := r.PathValue("name")
	name, ok := secrets.Parse(raw)
	if !ok {
		WriteDomainError(w, r, h.Logger, apperr.Invalid("unknown secret: "+raw))
		return "", false
	}
	return name, true
}

func (h SecretsHandler) Set(w http.ResponseWriter, r *http.Request) {
	name, ok := h.name(w, r)
	if !ok {
		return
	}
	var req setSecretReq
	if err := decodeJSON(r, &req); err != nil {
		WriteDomainError(w, r, h.Logger, err)
		return
	}
	if req.Value == "" {
		WriteDomainError(w, r, h.Logger, apperr.Invalid("value is required"))
		return
	}
	if err := secrets.Set(name, req.Value); err != nil {
		WriteDomainError(w, r, h.Logger, apperr.Internal("failed to store secret", err))
		return
	}
	h.Logger.Info("secret stored", zap.String("name", string(name)))
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name, ok := h.name(w, r)
	if !ok {
		return
	}
	if err := secrets.Delete(name); err != nil {
		WriteDomainError(w, r, h.Logger, apperr.Internal("failed to delete secret", err))
		return
	}
	h.Logger.Info("secret deleted", zap.String("name", string(name)))
	w.WriteHeader(http.StatusNoContent)
}
