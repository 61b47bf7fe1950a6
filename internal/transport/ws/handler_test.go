package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"object-tracker/internal/broadcast"
	"object-tracker/internal/domain"
	"object-tracker/internal/ingest"
	"object-tracker/internal/protocol"
	"object-tracker/internal/registry"
	"object-tracker/internal/storage"
)

type HandlerSuite struct {
	suite.Suite
	ctx context.Context

	entities     *storage.InMemoryEntityStore
	sources      *storage.InMemorySourceStore
	sensors      *storage.InMemorySensorStore
	observations *storage.InMemoryObservationStore
	logs         *storage.InMemoryValidationLogStore
	registry     *registry.Registry
	server       *httptest.Server
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.entities = storage.NewInMemoryEntityStore()
	s.sources = storage.NewInMemorySourceStore()
	s.sensors = storage.NewInMemorySensorStore()
	s.observations = storage.NewInMemoryObservationStore()
	s.logs = storage.NewInMemoryValidationLogStore()
	s.registry = registry.New(logger, nil)

	recorder := &staticRecorder{}
	publisher := broadcast.NewPublisher(s.registry, nil, logger)
	svc := ingest.NewService(ingest.Config{
		Entities:     s.entities,
		Sensors:      s.sensors,
		Observations: s.observations,
		Sources:      s.sources,
		ObjectTypes:  storage.NewInMemoryObjectTypeStore(),
		Recorder:     recorder,
		Publisher:    publisher,
		Logger:       logger,
	})

	router := chi.NewRouter()
	New(s.registry, s.entities, s.sources, svc, logger).Register(router)
	s.server = httptest.NewServer(router)
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
}

type staticRecorder struct{}

func (staticRecorder) Record(context.Context, domain.ValidationLog) {}

func (s *HandlerSuite) dial(path string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	s.T().Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(frame, &envelope))
	return envelope
}

func (s *HandlerSuite) TestSubscribeAck() {
	conn := s.dial("/api/ws/objects/client-1")

	s.Require().NoError(conn.WriteJSON(map[string]any{
		"type":         "subscribe",
		"object_types": []string{"ship"},
	}))

	envelope := readEnvelope(s.T(), conn)
	s.Equal("subscribe_ack", envelope["type"])
	s.Equal("Subscribed to updates for ship objects", envelope["message"])
}

func (s *HandlerSuite) TestGetObjectsHonorsLimit() {
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.entities.Create(s.ctx, domain.TrackedEntity{
			ID:         uuid.New().String(),
			ExternalID: fmt.Sprintf("track-%d", i),
			Type:       "ship",
		}))
	}

	conn := s.dial("/api/ws/objects/client-1")
	s.Require().NoError(conn.WriteJSON(map[string]any{
		"type":  "get_objects",
		"limit": 2,
	}))

	envelope := readEnvelope(s.T(), conn)
	s.Equal("objects_data", envelope["type"])
	objects, ok := envelope["objects"].([]any)
	s.Require().True(ok)
	s.Len(objects, 2)
}

func (s *HandlerSuite) TestUnknownMessageKeepsConnectionOpen() {
	conn := s.dial("/api/ws/objects/client-1")

	s.Require().NoError(conn.WriteJSON(map[string]any{"type": "telemetry"}))
	envelope := readEnvelope(s.T(), conn)
	s.Equal("error", envelope["type"])
	s.Equal("Unknown message type: telemetry", envelope["message"])

	// The same connection still answers the next well-formed request.
	s.Require().NoError(conn.WriteJSON(map[string]any{"type": "subscribe"}))
	envelope = readEnvelope(s.T(), conn)
	s.Equal("subscribe_ack", envelope["type"])
}

func (s *HandlerSuite) TestMalformedFrameGetsErrorEnvelope() {
	conn := s.dial("/api/ws/objects/client-1")

	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	envelope := readEnvelope(s.T(), conn)
	s.Equal("error", envelope["type"])
	s.Equal("Invalid JSON format", envelope["message"])
}

func (s *HandlerSuite) createSource(active bool) domain.Source {
	source := domain.Source{
		ID:     uuid.New().String(),
		Name:   "coastal-radar",
		Active: active,
	}
	s.Require().NoError(s.sources.Create(s.ctx, source))
	return source
}

func (s *HandlerSuite) TestDataSourceIngestAck() {
	source := s.createSource(true)
	conn := s.dial("/api/ws/data-source/" + source.ID + "/feeder-1")

	s.Require().NoError(conn.WriteJSON(map[string]any{
		"external_object_id": "track-1",
		"object_type":        "ship",
		"latitude":           54.3,
		"longitude":          18.6,
	}))

	envelope := readEnvelope(s.T(), conn)
	s.Equal("ack", envelope["type"])
	s.Equal("Data processed successfully", envelope["message"])

	entity, err := s.entities.FindByExternalID(s.ctx, "track-1")
	s.Require().NoError(err)
	s.Equal(entity.ID, envelope["object_id"], "ack carries the resolved entity id")
	s.Equal(source.ID, entity.SourceID, "entity inherits the channel's source")
}

func (s *HandlerSuite) TestDataSourceKeepsAttributesAsReported() {
	source := s.createSource(true)
	conn := s.dial("/api/ws/data-source/" + source.ID + "/feeder-1")

	s.Require().NoError(conn.WriteJSON(map[string]any{
		"external_object_id": "track-9",
		"object_type":        "ship",
		"latitude":           54.3,
		"longitude":          18.6,
		"attributes":         map[string]any{"speed": 12.5},
	}))
	readEnvelope(s.T(), conn)

	entity, err := s.entities.FindByExternalID(s.ctx, "track-9")
	s.Require().NoError(err)
	s.Equal(source.ID, entity.SourceID)

	history, err := s.observations.ListByEntity(s.ctx, entity.ID, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(map[string]any{"speed": 12.5}, history[0].Attributes,
		"channel attribution must not leak into the persisted attributes")
}

func (s *HandlerSuite) TestDataSourceRejectsInvalidPayloadButStaysOpen() {
	source := s.createSource(true)
	conn := s.dial("/api/ws/data-source/" + source.ID + "/feeder-1")

	// Missing identity fields: fatal for the payload, not the connection.
	s.Require().NoError(conn.WriteJSON(map[string]any{"latitude": 1.0, "longitude": 2.0}))
	envelope := readEnvelope(s.T(), conn)
	s.Equal("error", envelope["type"])

	s.Require().NoError(conn.WriteJSON(map[string]any{
		"external_object_id": "track-2",
		"object_type":        "ship",
		"latitude":           54.3,
		"longitude":          18.6,
	}))
	envelope = readEnvelope(s.T(), conn)
	s.Equal("ack", envelope["type"])
}

func (s *HandlerSuite) TestInactiveSourceClosedWithPolicyViolation() {
	source := s.createSource(false)
	conn := s.dial("/api/ws/data-source/" + source.ID + "/feeder-1")

	_, _, err := conn.ReadMessage()
	s.Require().Error(err)
	closeErr, ok := err.(*websocket.CloseError)
	s.Require().True(ok, "expected close frame, got %v", err)
	assert.Equal(s.T(), websocket.ClosePolicyViolation, closeErr.Code)
}

func (s *HandlerSuite) TestUnknownSourceClosedWithPolicyViolation() {
	conn := s.dial("/api/ws/data-source/" + uuid.New().String() + "/feeder-1")

	_, _, err := conn.ReadMessage()
	s.Require().Error(err)
	closeErr, ok := err.(*websocket.CloseError)
	s.Require().True(ok)
	assert.Equal(s.T(), websocket.ClosePolicyViolation, closeErr.Code)
}

func (s *HandlerSuite) TestIngestBroadcastsToSubscribers() {
	source := s.createSource(true)

	client := s.dial("/api/ws/objects/map-client")
	s.Require().Eventually(func() bool { return s.registry.Len() == 1 },
		2*time.Second, 10*time.Millisecond)

	feeder := s.dial("/api/ws/data-source/" + source.ID + "/feeder-1")
	s.Require().NoError(feeder.WriteJSON(map[string]any{
		"external_object_id": "track-1",
		"object_name":        "Vessel",
		"object_type":        "ship",
		"latitude":           54.3,
		"longitude":          18.6,
	}))

	envelope := readEnvelope(s.T(), feeder)
	s.Equal("ack", envelope["type"])

	update := readEnvelope(s.T(), client)
	s.Equal("object_update", update["type"])
	s.Equal(envelope["object_id"], update["object_id"],
		"the ack correlates with the broadcast it triggered")

	raw, err := json.Marshal(update)
	s.Require().NoError(err)
	var parsed protocol.ObjectUpdate
	s.Require().NoError(json.Unmarshal(raw, &parsed))

	var snapshot domain.Snapshot
	s.Require().NoError(json.Unmarshal(parsed.Data, &snapshot))
	s.Equal("track-1", snapshot.ExternalID)
	s.Equal("Vessel", snapshot.Name)
}
