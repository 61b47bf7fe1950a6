package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"object-tracker/internal/domain"
	"object-tracker/internal/platform/middleware"
	"object-tracker/internal/storage"
	"object-tracker/internal/transport/http/shared"
)

// LogHandler exposes the validation log for operators: list and inspect
// ingestion anomalies, mark them resolved, prune them.
type LogHandler struct {
	logs   storage.ValidationLogStore
	logger *slog.Logger
}

func NewLogHandler(logs storage.ValidationLogStore, logger *slog.Logger) *LogHandler {
	return &LogHandler{logs: logs, logger: logger}
}

// Register registers the validation log routes with the chi router.
func (h *LogHandler) Register(r chi.Router) {
	r.Get("/api/validation-logs", h.handleList)
	r.Get("/api/validation-logs/{id}", h.handleGet)
	r.Post("/api/validation-logs/{id}/resolve", h.handleResolve)
	r.Delete("/api/validation-logs/{id}", h.handleDelete)
}

func (h *LogHandler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := storage.LogFilter{
		Kind:           domain.LogKind(r.URL.Query().Get("log_type")),
		EntityExternal: r.URL.Query().Get("object_id"),
		SensorExternal: r.URL.Query().Get("sensor_id"),
		Resolved:       shared.QueryBool(r, "resolved"),
		Limit:          shared.QueryInt(r, "limit", 0),
		Offset:         shared.QueryInt(r, "offset", 0),
	}
	entries, err := h.logs.List(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list validation logs",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entries)
}

func (h *LogHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := h.logs.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entry)
}

func (h *LogHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.logs.SetResolved(ctx, id, true); err != nil {
		shared.WriteError(w, err)
		return
	}
	entry, err := h.logs.FindByID(ctx, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entry)
}

func (h *LogHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.logs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
