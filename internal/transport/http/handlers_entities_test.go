package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/go-chi/chi/v5"

	"object-tracker/internal/domain"
	"object-tracker/internal/storage"
)

type EntityHandlerSuite struct {
	suite.Suite
	ctx context.Context

	entities     *storage.InMemoryEntityStore
	observations *storage.InMemoryObservationStore
	router       chi.Router
}

func TestEntityHandlerSuite(t *testing.T) {
	suite.Run(t, new(EntityHandlerSuite))
}

func (s *EntityHandlerSuite) SetupTest() {
	s.ctx = context.Background()
	s.entities = storage.NewInMemoryEntityStore()
	s.observations = storage.NewInMemoryObservationStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	NewEntityHandler(s.entities, s.observations, logger).Register(s.router)
}

func (s *EntityHandlerSuite) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *EntityHandlerSuite) seed(externalID, entityType string) domain.TrackedEntity {
	entity := domain.TrackedEntity{
		ID:         "id-" + externalID,
		ExternalID: externalID,
		Type:       entityType,
		Attributes: map[string]any{},
	}
	s.Require().NoError(s.entities.Create(s.ctx, entity))
	return entity
}

func (s *EntityHandlerSuite) TestCreateAndGet() {
	w := s.do(http.MethodPost, "/api/entities", []byte(`{
		"external_id": "track-1",
		"name": "Vessel",
		"type": "Ship"
	}`))
	s.Require().Equal(http.StatusCreated, w.Code)

	var created domain.TrackedEntity
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	s.Equal("ship", created.Type, "type is canonicalized")

	w = s.do(http.MethodGet, "/api/entities/"+created.ID, nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *EntityHandlerSuite) TestCreateValidation() {
	w := s.do(http.MethodPost, "/api/entities", []byte(`{"type":"ship"}`))
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/entities", []byte(`{"external_id":"track-1"}`))
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *EntityHandlerSuite) TestCreateDuplicateExternalIDConflicts() {
	s.seed("track-1", "ship")

	w := s.do(http.MethodPost, "/api/entities", []byte(`{
		"external_id": "track-1",
		"type": "ship"
	}`))
	s.Equal(http.StatusConflict, w.Code)
}

func (s *EntityHandlerSuite) TestListByType() {
	s.seed("track-1", "ship")
	s.seed("track-2", "drone")
	s.seed("track-3", "ship")

	w := s.do(http.MethodGet, "/api/entities?type=ship", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var listed []domain.TrackedEntity
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &listed))
	s.Len(listed, 2)
}

func (s *EntityHandlerSuite) TestUpdatePartial() {
	entity := s.seed("track-1", "ship")

	w := s.do(http.MethodPut, "/api/entities/"+entity.ID, []byte(`{"name":"Renamed"}`))
	s.Require().Equal(http.StatusOK, w.Code)

	updated, err := s.entities.FindByID(s.ctx, entity.ID)
	s.Require().NoError(err)
	s.Equal("Renamed", updated.Name)
	s.Equal("ship", updated.Type, "unmentioned fields keep their values")
}

func (s *EntityHandlerSuite) TestDelete() {
	entity := s.seed("track-1", "ship")

	w := s.do(http.MethodDelete, "/api/entities/"+entity.ID, nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodDelete, "/api/entities/"+entity.ID, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *EntityHandlerSuite) TestObservationHistory() {
	entity := s.seed("track-1", "ship")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.observations.Append(s.ctx, domain.Observation{
			ID:        fmt.Sprintf("obs-%d", i),
			EntityID:  entity.ID,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	w := s.do(http.MethodGet, "/api/entities/"+entity.ID+"/observations?limit=2", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var history []domain.Observation
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &history))
	s.Require().Len(history, 2)
	s.Equal("obs-2", history[0].ID, "newest first")
}

func (s *EntityHandlerSuite) TestObservationHistoryUnknownEntity() {
	w := s.do(http.MethodGet, "/api/entities/ghost/observations", nil)
	s.Equal(http.StatusNotFound, w.Code)
}
