package vlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"object-tracker/internal/domain"
	"object-tracker/internal/platform/metrics"
	"object-tracker/internal/storage"
)

// Recorder captures ingestion anomalies. It is append-only and deliberately
// swallows its own failures: a diagnostic that cannot be written must never
// block or fail the pipeline that produced it.
type Recorder struct {
	store   storage.ValidationLogStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	sink    chan<- domain.ValidationLog
}

// NewRecorder builds a recorder. sink may be nil when no downstream event
// pipeline is configured; metrics may be nil in tests.
func NewRecorder(store storage.ValidationLogStore, logger *slog.Logger, m *metrics.Metrics, sink chan<- domain.ValidationLog) *Recorder {
	return &Recorder{store: store, logger: logger, metrics: m, sink: sink}
}

// Record persists one validation log entry and hands it to the event sink.
// Both steps are best-effort.
func (r *Recorder) Record(ctx context.Context, entry domain.ValidationLog) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if err := r.store.Append(ctx, entry); err != nil {
		r.logger.Error("append validation log",
			"log_type", string(entry.Kind),
			"object_id", entry.EntityExternal,
			"error", err,
		)
	}
	if r.metrics != nil {
		r.metrics.AnomaliesRecorded.WithLabelValues(string(entry.Kind)).Inc()
	}

	if r.sink == nil {
		return
	}
	select {
	case r.sink <- entry:
	default:
		// The worker is behind; dropping the event beats stalling ingestion.
		r.logger.Warn("validation log sink full, dropping event", "log_type", string(entry.Kind))
	}
}
