package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"object-tracker/internal/domain"
	"object-tracker/internal/platform/middleware"
	"object-tracker/internal/storage"
	"object-tracker/internal/transport/http/shared"
	dErrors "object-tracker/pkg/domain-errors"
)

// SourceHandler serves the data source management API. Deactivating a source
// closes the gate for its ingestion-channel handshakes.
type SourceHandler struct {
	sources  storage.SourceStore
	entities storage.EntityStore
	logger   *slog.Logger
}

func NewSourceHandler(sources storage.SourceStore, entities storage.EntityStore, logger *slog.Logger) *SourceHandler {
	return &SourceHandler{sources: sources, entities: entities, logger: logger}
}

// Register registers the source routes with the chi router.
func (h *SourceHandler) Register(r chi.Router) {
	r.Get("/api/sources", h.handleList)
	r.Post("/api/sources", h.handleCreate)
	r.Get("/api/sources/{id}", h.handleGet)
	r.Put("/api/sources/{id}", h.handleUpdate)
	r.Delete("/api/sources/{id}", h.handleDelete)
	r.Post("/api/sources/{id}/activate", h.handleActivate)
	r.Post("/api/sources/{id}/deactivate", h.handleDeactivate)
	r.Get("/api/sources/{id}/objects", h.handleObjects)
}

func (h *SourceHandler) handleList(w http.ResponseWriter, r *http.Request) {
	sources, err := h.sources.List(r.Context(),
		shared.QueryInt(r, "limit", 0), shared.QueryInt(r, "offset", 0))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list sources",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, sources)
}

type createSourceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *SourceHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Name == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "name is required"))
		return
	}

	now := time.Now().UTC()
	source := domain.Source{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.sources.Create(ctx, source); err != nil {
		h.logger.ErrorContext(ctx, "create source",
			"request_id", middleware.GetRequestID(ctx),
			"name", req.Name,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, source)
}

func (h *SourceHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	source, err := h.sources.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, source)
}

type updateSourceRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *SourceHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	source, err := h.sources.FindByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "name must not be empty"))
			return
		}
		source.Name = *req.Name
	}
	if req.Description != nil {
		source.Description = *req.Description
	}
	source.UpdatedAt = time.Now().UTC()

	if err := h.sources.Update(ctx, source); err != nil {
		h.logger.ErrorContext(ctx, "update source",
			"request_id", middleware.GetRequestID(ctx),
			"source_id", source.ID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, source)
}

func (h *SourceHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.sources.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SourceHandler) handleActivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *SourceHandler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *SourceHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	ctx := r.Context()

	source, err := h.sources.FindByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	source.Active = active
	source.UpdatedAt = time.Now().UTC()

	if err := h.sources.Update(ctx, source); err != nil {
		h.logger.ErrorContext(ctx, "update source activation",
			"request_id", middleware.GetRequestID(ctx),
			"source_id", source.ID,
			"active", active,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "source activation changed", "source_id", source.ID, "active", active)
	shared.WriteJSON(w, http.StatusOK, source)
}

// handleObjects lists the tracked entities attributed to this source.
func (h *SourceHandler) handleObjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if _, err := h.sources.FindByID(ctx, id); err != nil {
		shared.WriteError(w, err)
		return
	}

	entities, err := h.entities.List(ctx, storage.EntityFilter{
		Source: id,
		Limit:  shared.QueryInt(r, "limit", 0),
		Offset: shared.QueryInt(r, "offset", 0),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "list entities by source",
			"request_id", middleware.GetRequestID(ctx),
			"source_id", id,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entities)
}
