package vlog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"object-tracker/internal/domain"
	"object-tracker/internal/storage"
)

type failingLogStore struct {
	storage.ValidationLogStore
}

func (failingLogStore) Append(context.Context, domain.ValidationLog) error {
	return errors.New("disk full")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecordFillsIdentityAndTimestamp(t *testing.T) {
	store := storage.NewInMemoryValidationLogStore()
	recorder := NewRecorder(store, discardLogger(), nil, nil)

	recorder.Record(context.Background(), domain.ValidationLog{
		Kind:    domain.LogWarning,
		Message: "Unknown sensor: radar-9",
	})

	entries, err := store.List(context.Background(), storage.LogFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())
	assert.False(t, entries[0].Resolved)
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	recorder := NewRecorder(failingLogStore{}, discardLogger(), nil, nil)

	// Must not panic or propagate; diagnostics never fail the pipeline.
	recorder.Record(context.Background(), domain.ValidationLog{Kind: domain.LogError})
}

func TestRecordForwardsToSink(t *testing.T) {
	store := storage.NewInMemoryValidationLogStore()
	sink := make(chan domain.ValidationLog, 1)
	recorder := NewRecorder(store, discardLogger(), nil, sink)

	recorder.Record(context.Background(), domain.ValidationLog{Kind: domain.LogInfo, Message: "m"})

	select {
	case entry := <-sink:
		assert.Equal(t, "m", entry.Message)
	default:
		t.Fatal("expected entry on sink channel")
	}
}

func TestRecordDropsWhenSinkFull(t *testing.T) {
	store := storage.NewInMemoryValidationLogStore()
	sink := make(chan domain.ValidationLog, 1)
	recorder := NewRecorder(store, discardLogger(), nil, sink)

	recorder.Record(context.Background(), domain.ValidationLog{Message: "first"})
	// The channel is full now; this must not block.
	recorder.Record(context.Background(), domain.ValidationLog{Message: "second"})

	entries, err := store.List(context.Background(), storage.LogFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 2, "the store still gets every entry")
}

func TestWorkerCountsSinkFailures(t *testing.T) {
	inbox := make(chan domain.ValidationLog, 2)
	published := make(chan domain.ValidationLog, 2)

	worker := NewWorker(sinkFunc(func(_ context.Context, entry domain.ValidationLog) error {
		if entry.Message == "bad" {
			return errors.New("broker down")
		}
		published <- entry
		return nil
	}), inbox, discardLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	inbox <- domain.ValidationLog{Message: "bad"}
	inbox <- domain.ValidationLog{Message: "good"}

	entry := <-published
	assert.Equal(t, "good", entry.Message)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

type sinkFunc func(ctx context.Context, entry domain.ValidationLog) error

func (f sinkFunc) Publish(ctx context.Context, entry domain.ValidationLog) error {
	return f(ctx, entry)
}
