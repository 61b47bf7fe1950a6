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

// EntityHandler serves the tracked entity management API.
type EntityHandler struct {
	entities     storage.EntityStore
	observations storage.ObservationStore
	logger       *slog.Logger
}

func NewEntityHandler(entities storage.EntityStore, observations storage.ObservationStore, logger *slog.Logger) *EntityHandler {
	return &EntityHandler{entities: entities, observations: observations, logger: logger}
}

// Register registers the entity routes with the chi router.
func (h *EntityHandler) Register(r chi.Router) {
	r.Get("/api/entities", h.handleList)
	r.Post("/api/entities", h.handleCreate)
	r.Get("/api/entities/{id}", h.handleGet)
	r.Put("/api/entities/{id}", h.handleUpdate)
	r.Delete("/api/entities/{id}", h.handleDelete)
	r.Get("/api/entities/{id}/observations", h.handleObservations)
}

func (h *EntityHandler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := storage.EntityFilter{
		Type:   domain.CanonicalType(r.URL.Query().Get("type")),
		Source: r.URL.Query().Get("source_id"),
		Limit:  shared.QueryInt(r, "limit", 0),
		Offset: shared.QueryInt(r, "offset", 0),
	}
	entities, err := h.entities.List(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list entities",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entities)
}

type createEntityRequest struct {
	ExternalID string         `json:"external_id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes"`
	SourceID   string         `json:"source_id"`
}

func (h *EntityHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.ExternalID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "external_id is required"))
		return
	}
	canonical := domain.CanonicalType(req.Type)
	if canonical == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "type is required"))
		return
	}

	now := time.Now().UTC()
	entity := domain.TrackedEntity{
		ID:         uuid.New().String(),
		ExternalID: req.ExternalID,
		Name:       req.Name,
		Type:       canonical,
		Attributes: req.Attributes,
		SourceID:   req.SourceID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if entity.Attributes == nil {
		entity.Attributes = map[string]any{}
	}

	if err := h.entities.Create(ctx, entity); err != nil {
		h.logger.ErrorContext(ctx, "create entity",
			"request_id", middleware.GetRequestID(ctx),
			"external_id", req.ExternalID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, entity)
}

func (h *EntityHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	entity, err := h.entities.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entity)
}

type updateEntityRequest struct {
	Name       *string        `json:"name"`
	Type       *string        `json:"type"`
	Attributes map[string]any `json:"attributes"`
	SourceID   *string        `json:"source_id"`
}

// handleUpdate applies a partial update. This is the administrative override
// path; unlike ingestion it may change name and type deliberately.
func (h *EntityHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entity, err := h.entities.FindByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if req.Name != nil {
		entity.Name = *req.Name
	}
	if req.Type != nil {
		canonical := domain.CanonicalType(*req.Type)
		if canonical == "" {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "type must not be empty"))
			return
		}
		entity.Type = canonical
	}
	if req.Attributes != nil {
		entity.Attributes = req.Attributes
	}
	if req.SourceID != nil {
		entity.SourceID = *req.SourceID
	}
	entity.UpdatedAt = time.Now().UTC()

	if err := h.entities.Update(ctx, entity); err != nil {
		h.logger.ErrorContext(ctx, "update entity",
			"request_id", middleware.GetRequestID(ctx),
			"entity_id", entity.ID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entity)
}

func (h *EntityHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.entities.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleObservations returns the entity's observation history, newest first.
func (h *EntityHandler) handleObservations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	// 404 for unknown entities rather than an empty history.
	if _, err := h.entities.FindByID(ctx, id); err != nil {
		shared.WriteError(w, err)
		return
	}

	observations, err := h.observations.ListByEntity(ctx, id,
		shared.QueryInt(r, "limit", 0), shared.QueryInt(r, "offset", 0))
	if err != nil {
		h.logger.ErrorContext(ctx, "list observations",
			"request_id", middleware.GetRequestID(ctx),
			"entity_id", id,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, observations)
}
