package vlog

import (
	"context"
	"log/slog"

	"object-tracker/internal/domain"
	"object-tracker/internal/platform/metrics"
)

// Sink publishes validation log events to an external system.
type Sink interface {
	Publish(ctx context.Context, entry domain.ValidationLog) error
}

// Worker consumes validation log events from a channel and forwards them to
// the sink. It keeps external publishing off the ingestion path; a sink
// failure is counted and logged, never retried into the hot path.
type Worker struct {
	sink    Sink
	inbox   <-chan domain.ValidationLog
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewWorker(sink Sink, inbox <-chan domain.ValidationLog, logger *slog.Logger, m *metrics.Metrics) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger, metrics: m}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			if err := w.sink.Publish(ctx, entry); err != nil {
				w.logger.Error("publish validation log event", "log_id", entry.ID, "error", err)
				if w.metrics != nil {
					w.metrics.LogPublishFailures.Inc()
				}
				continue
			}
			if w.metrics != nil {
				w.metrics.LogsPublished.Inc()
			}
		}
	}
}
