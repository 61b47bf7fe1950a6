package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"object-tracker/internal/platform/middleware"
)

// Registrar is anything that mounts its routes on a chi router. Both the REST
// handlers and the WebSocket handler satisfy it.
type Registrar interface {
	Register(r chi.Router)
}

// Checker probes one backing dependency for the health endpoint.
type Checker interface {
	Health(ctx context.Context) error
}

// RouterConfig collects everything the router mounts.
type RouterConfig struct {
	Logger *slog.Logger

	// REST handlers, mounted under the API middleware chain.
	API []Registrar

	// WebSocket handlers, mounted without the request timeout so
	// long-lived connections are not cut off.
	WS []Registrar

	// Checks are dependency probes reported by /health, keyed by name.
	Checks map[string]Checker
}

// NewRouter builds the server's full route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(30 * time.Second))
		for _, h := range cfg.API {
			h.Register(api)
		}
	})

	for _, h := range cfg.WS {
		h.Register(r)
	}

	r.Get("/health", handleHealth(cfg.Checks, cfg.Logger))
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// handleHealth reports "ok" when every dependency probe passes and a 503
// "degraded" body naming the failed probes otherwise.
func handleHealth(checks map[string]Checker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		var failed []string
		for name, check := range checks {
			if err := check.Health(ctx); err != nil {
				logger.Warn("health check failed", "check", name, "error", err)
				failed = append(failed, name)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if len(failed) > 0 {
			sort.Strings(failed)
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "degraded",
				"failed": failed,
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
