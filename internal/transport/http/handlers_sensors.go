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

// SensorHandler serves the sensor management API. Sensors are registered here
// and only resolved, never created, by the ingestion path.
type SensorHandler struct {
	sensors storage.SensorStore
	logger  *slog.Logger
}

func NewSensorHandler(sensors storage.SensorStore, logger *slog.Logger) *SensorHandler {
	return &SensorHandler{sensors: sensors, logger: logger}
}

// Register registers the sensor routes with the chi router.
func (h *SensorHandler) Register(r chi.Router) {
	r.Get("/api/sensors", h.handleList)
	r.Post("/api/sensors", h.handleCreate)
	r.Get("/api/sensors/by-sensor-id/{sensor_id}", h.handleGetByExternalID)
	r.Get("/api/sensors/{id}", h.handleGet)
	r.Put("/api/sensors/{id}", h.handleUpdate)
	r.Delete("/api/sensors/{id}", h.handleDelete)
}

func (h *SensorHandler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := storage.SensorFilter{
		Active: shared.QueryBool(r, "is_active"),
		Type:   r.URL.Query().Get("type"),
		Limit:  shared.QueryInt(r, "limit", 0),
		Offset: shared.QueryInt(r, "offset", 0),
	}
	sensors, err := h.sensors.List(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list sensors",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, sensors)
}

type createSensorRequest struct {
	ExternalID  string `json:"sensor_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

func (h *SensorHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createSensorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.ExternalID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "sensor_id is required"))
		return
	}
	if req.Name == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "name is required"))
		return
	}

	now := time.Now().UTC()
	sensor := domain.Sensor{
		ID:          uuid.New().String(),
		ExternalID:  req.ExternalID,
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.sensors.Create(ctx, sensor); err != nil {
		h.logger.ErrorContext(ctx, "create sensor",
			"request_id", middleware.GetRequestID(ctx),
			"sensor_id", req.ExternalID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, sensor)
}

func (h *SensorHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	sensor, err := h.sensors.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, sensor)
}

// handleGetByExternalID looks a sensor up by the id devices put on the wire.
func (h *SensorHandler) handleGetByExternalID(w http.ResponseWriter, r *http.Request) {
	sensor, err := h.sensors.FindByExternalID(r.Context(), chi.URLParam(r, "sensor_id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, sensor)
}

type updateSensorRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Type        *string `json:"type"`
	Active      *bool   `json:"is_active"`
}

func (h *SensorHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sensor, err := h.sensors.FindByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateSensorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if req.Name != nil {
		sensor.Name = *req.Name
	}
	if req.Description != nil {
		sensor.Description = *req.Description
	}
	if req.Type != nil {
		sensor.Type = *req.Type
	}
	if req.Active != nil {
		sensor.Active = *req.Active
	}
	sensor.UpdatedAt = time.Now().UTC()

	if err := h.sensors.Update(ctx, sensor); err != nil {
		h.logger.ErrorContext(ctx, "update sensor",
			"request_id", middleware.GetRequestID(ctx),
			"sensor_id", sensor.ID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, sensor)
}

func (h *SensorHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.sensors.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
