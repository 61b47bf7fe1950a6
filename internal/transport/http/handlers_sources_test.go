package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"object-tracker/internal/domain"
	"object-tracker/internal/storage"
)

type SourceHandlerSuite struct {
	suite.Suite
	ctx context.Context

	sources  *storage.InMemorySourceStore
	entities *storage.InMemoryEntityStore
	router   chi.Router
}

func TestSourceHandlerSuite(t *testing.T) {
	suite.Run(t, new(SourceHandlerSuite))
}

func (s *SourceHandlerSuite) SetupTest() {
	s.ctx = context.Background()
	s.sources = storage.NewInMemorySourceStore()
	s.entities = storage.NewInMemoryEntityStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	NewSourceHandler(s.sources, s.entities, logger).Register(s.router)
}

func (s *SourceHandlerSuite) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *SourceHandlerSuite) seed(name string) domain.Source {
	source := domain.Source{ID: "id-" + name, Name: name, Active: true}
	s.Require().NoError(s.sources.Create(s.ctx, source))
	return source
}

func (s *SourceHandlerSuite) TestCreateDefaultsActive() {
	w := s.do(http.MethodPost, "/api/sources", []byte(`{"name":"coastal-radar"}`))
	s.Require().Equal(http.StatusCreated, w.Code)

	var created domain.Source
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	s.True(created.Active)
}

func (s *SourceHandlerSuite) TestCreateDuplicateNameConflicts() {
	s.seed("coastal-radar")
	w := s.do(http.MethodPost, "/api/sources", []byte(`{"name":"coastal-radar"}`))
	s.Equal(http.StatusConflict, w.Code)
}

func (s *SourceHandlerSuite) TestActivationToggle() {
	source := s.seed("coastal-radar")

	w := s.do(http.MethodPost, "/api/sources/"+source.ID+"/deactivate", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	stored, err := s.sources.FindByID(s.ctx, source.ID)
	s.Require().NoError(err)
	s.False(stored.Active)

	w = s.do(http.MethodPost, "/api/sources/"+source.ID+"/activate", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	stored, err = s.sources.FindByID(s.ctx, source.ID)
	s.Require().NoError(err)
	s.True(stored.Active)
}

func (s *SourceHandlerSuite) TestObjectsBySource() {
	source := s.seed("coastal-radar")
	s.Require().NoError(s.entities.Create(s.ctx, domain.TrackedEntity{
		ID:         "e-1",
		ExternalID: "track-1",
		Type:       "ship",
		SourceID:   source.ID,
	}))
	s.Require().NoError(s.entities.Create(s.ctx, domain.TrackedEntity{
		ID:         "e-2",
		ExternalID: "track-2",
		Type:       "ship",
		SourceID:   "other",
	}))

	w := s.do(http.MethodGet, "/api/sources/"+source.ID+"/objects", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var listed []domain.TrackedEntity
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &listed))
	s.Require().Len(listed, 1)
	s.Equal("track-1", listed[0].ExternalID)
}

func (s *SourceHandlerSuite) TestObjectsByUnknownSource() {
	w := s.do(http.MethodGet, "/api/sources/ghost/objects", nil)
	s.Equal(http.StatusNotFound, w.Code)
}
