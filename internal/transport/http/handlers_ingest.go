package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"object-tracker/internal/domain"
	"object-tracker/internal/ingest"
	"object-tracker/internal/platform/middleware"
	"object-tracker/internal/transport/http/shared"
	dErrors "object-tracker/pkg/domain-errors"
)

// IngestService runs the full resolution procedure for one report.
type IngestService interface {
	Process(ctx context.Context, report ingest.Report) (domain.Observation, error)
}

// IngestHandler is the request-reply form of the ingestion channel: one
// report in, the persisted observation out.
type IngestHandler struct {
	ingest IngestService
	logger *slog.Logger
}

func NewIngestHandler(service IngestService, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{ingest: service, logger: logger}
}

// Register registers the ingest route with the chi router.
func (h *IngestHandler) Register(r chi.Router) {
	r.Post("/api/ingest", h.handleIngest)
}

func (h *IngestHandler) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var report ingest.Report
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		h.logger.WarnContext(ctx, "invalid ingest request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	observation, err := h.ingest.Process(ctx, report)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeUnprocessable) || dErrors.Is(err, dErrors.CodeBadRequest) {
			h.logger.WarnContext(ctx, "ingest rejected",
				"request_id", requestID,
				"external_object_id", report.ExternalObjectID,
				"error", err.Error(),
			)
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "ingest failed",
			"request_id", requestID,
			"external_object_id", report.ExternalObjectID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to process observation"))
		return
	}

	shared.WriteJSON(w, http.StatusCreated, observation)
}
