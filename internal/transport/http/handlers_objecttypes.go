package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"object-tracker/internal/domain"
	"object-tracker/internal/platform/middleware"
	"object-tracker/internal/transport/http/shared"
	dErrors "object-tracker/pkg/domain-errors"
)

// CatalogService manages registered object type descriptors.
type CatalogService interface {
	Create(ctx context.Context, objectType domain.ObjectType) (domain.ObjectType, error)
	Get(ctx context.Context, id string) (domain.ObjectType, error)
	List(ctx context.Context, limit, offset int) ([]domain.ObjectType, error)
	Update(ctx context.Context, objectType domain.ObjectType) (domain.ObjectType, error)
	Delete(ctx context.Context, id string) error
}

// ObjectTypeHandler serves the type descriptor catalog API.
type ObjectTypeHandler struct {
	catalog CatalogService
	logger  *slog.Logger
}

func NewObjectTypeHandler(catalog CatalogService, logger *slog.Logger) *ObjectTypeHandler {
	return &ObjectTypeHandler{catalog: catalog, logger: logger}
}

// Register registers the object type routes with the chi router.
func (h *ObjectTypeHandler) Register(r chi.Router) {
	r.Get("/api/object-types", h.handleList)
	r.Post("/api/object-types", h.handleCreate)
	r.Get("/api/object-types/{id}", h.handleGet)
	r.Put("/api/object-types/{id}", h.handleUpdate)
	r.Delete("/api/object-types/{id}", h.handleDelete)
}

func (h *ObjectTypeHandler) handleList(w http.ResponseWriter, r *http.Request) {
	types, err := h.catalog.List(r.Context(),
		shared.QueryInt(r, "limit", 0), shared.QueryInt(r, "offset", 0))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list object types",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, types)
}

func (h *ObjectTypeHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var objectType domain.ObjectType
	if err := json.NewDecoder(r.Body).Decode(&objectType); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	created, err := h.catalog.Create(ctx, objectType)
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeBadRequest) && !dErrors.Is(err, dErrors.CodeConflict) {
			h.logger.ErrorContext(ctx, "create object type",
				"request_id", middleware.GetRequestID(ctx),
				"name", objectType.Name,
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, created)
}

func (h *ObjectTypeHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	objectType, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, objectType)
}

func (h *ObjectTypeHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var objectType domain.ObjectType
	if err := json.NewDecoder(r.Body).Decode(&objectType); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	objectType.ID = chi.URLParam(r, "id")

	updated, err := h.catalog.Update(ctx, objectType)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, updated)
}

func (h *ObjectTypeHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
