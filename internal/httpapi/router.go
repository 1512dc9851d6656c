package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	apperr "jobtracker-engine/internal/errors"
	"jobtracker-engine/internal/events"
	"jobtracker-engine/internal/ratelimit"
)

// NewRouter returns the full handler stack, middleware included.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Bus == nil {
		d.Bus = events.NewBus(events.NewHub(), nil, "", d.Logger)
	}

	mux := http.NewServeMux()

	ah := ApplicationsHandler{Svc: d.Applications, Bus: d.Bus, Logger: d.Logger}
	mux.HandleFunc("POST /api/applications", ah.Create)
	mux.HandleFunc("GET /api/applications", ah.List)
	mux.HandleFunc("GET /api/applications/{id}", ah.Get)
	mux.HandleFunc("PUT /api/applications/{id}", ah.Update)
	mux.HandleFunc("DELETE /api/applications/{id}", ah.Delete)
	mux.HandleFunc("GET /api/applications/posting/{id}", ah.Posting)
	mux.HandleFunc("GET /api/applications/status/{status}", ah.ByStatus)
	mux.HandleFunc("GET /api/applications/active", ah.Active)
	mux.HandleFunc("GET /api/applications/interview", ah.Interview)
	mux.HandleFunc("GET /api/applications/stats", ah.Stats)
	mux.HandleFunc("GET /api/applications/search", ah.Search)
	mux.HandleFunc("GET /api/applications/created", ah.CreatedBetween)
	mux.HandleFunc("GET /api/applications/recent", ah.Recent)

	hh := HealthHandler{DB: d.DB, Logger: d.Logger}
	mux.HandleFunc("GET /health", hh.Health)

	eh := EventsHandler{Hub: d.Bus.Hub()}
	mux.HandleFunc("GET /events", eh.ServeSSE)

	ch := ConfigHandler{Cfg: d.Config, UserCfgPath: d.ConfigPath}
	mux.HandleFunc("GET /config", ch.Get)
	mux.HandleFunc("GET /config/path", ch.Path)
	mux.HandleFunc("GET /config/validate", ch.Validate)

	sh := SecretsHandler{Logger: d.Logger}
	mux.HandleFunc("POST /api/secrets/{name}", sh.Set)
	mux.HandleFunc("DELETE /api/secrets/{name}", sh.Delete)

	dh := DBHandler{DB: d.DB, Logger: d.Logger}
	mux.HandleFunc("POST /db/checkpoint", dh.Checkpoint)

	return Chain(mux,
		RequestID,
		AccessLog(d.Logger),
		Recover(d.Logger),
		Cors(d.Config.HTTP.AllowedOrigins),
		BodyLimit(d.Config.HTTP.MaxBodyBytes),
		ratelimit.Middleware(d.Limiter, d.Config.RateLimit.TrustProxy, rateLimited(d.Logger)),
		Timeout(time.Duration(d.Config.HTTP.WriteTimeoutSeconds)*time.Second, "/events"),
	)
}

func rateLimited(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		WriteDomainError(w, r, logger, apperr.RateLimit("too many requests", nil))
	}
}
