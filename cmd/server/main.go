package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"object-tracker/internal/broadcast"
	"object-tracker/internal/catalog"
	"object-tracker/internal/domain"
	"object-tracker/internal/ingest"
	"object-tracker/internal/platform/config"
	"object-tracker/internal/platform/httpserver"
	"object-tracker/internal/platform/kafka"
	"object-tracker/internal/platform/logger"
	"object-tracker/internal/platform/metrics"
	redisplatform "object-tracker/internal/platform/redis"
	"object-tracker/internal/registry"
	"object-tracker/internal/storage"
	"object-tracker/internal/storage/postgres"
	httptransport "object-tracker/internal/transport/http"
	"object-tracker/internal/transport/ws"
	"object-tracker/internal/vlog"
)

// relayChannel is the Redis pub/sub channel entity updates travel between
// instances on.
const relayChannel = "object-tracker.updates"

type stores struct {
	entities     storage.EntityStore
	sensors      storage.SensorStore
	observations storage.ObservationStore
	sources      storage.SourceStore
	objectTypes  storage.ObjectTypeStore
	logs         storage.ValidationLogStore
}

// main wires the dependencies and runs the server lifecycle. Business logic
// lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	st, cleanup, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	reg := registry.New(log, m)

	// Cross-instance fan-out is optional; without Redis each instance only
	// serves its own connections.
	checks := map[string]httptransport.Checker{}

	var relay *broadcast.Relay
	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		relay = broadcast.NewRelay(redisClient.Client, relayChannel, reg, log)
		checks["redis"] = redisClient
		log.Info("broadcast relay enabled", "channel", relayChannel)
	}

	// Validation log events flow store-first, Kafka second, through a
	// buffered channel so a slow broker never stalls ingestion.
	var sinkCh chan domain.ValidationLog
	var worker *vlog.Worker
	kafkaClient, err := kafka.New(cfg.Kafka)
	if err != nil {
		return err
	}
	if kafkaClient != nil {
		defer kafkaClient.Close()
		sinkCh = make(chan domain.ValidationLog, 256)
		worker = vlog.NewWorker(vlog.NewKafkaSink(kafkaClient, cfg.Kafka.Topic), sinkCh, log, m)
		log.Info("validation log sink enabled", "topic", cfg.Kafka.Topic)
	}
	recorder := vlog.NewRecorder(st.logs, log, m, sinkCh)

	publisher := broadcast.NewPublisher(reg, relay, log)
	ingestSvc := ingest.NewService(ingest.Config{
		Entities:     st.entities,
		Sensors:      st.sensors,
		Observations: st.observations,
		Sources:      st.sources,
		ObjectTypes:  st.objectTypes,
		Recorder:     recorder,
		Publisher:    publisher,
		Logger:       log,
		Metrics:      m,
	})
	catalogSvc := catalog.NewService(st.objectTypes, log)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger: log,
		API: []httptransport.Registrar{
			httptransport.NewIngestHandler(ingestSvc, log),
			httptransport.NewEntityHandler(st.entities, st.observations, log),
			httptransport.NewSensorHandler(st.sensors, log),
			httptransport.NewSourceHandler(st.sources, st.entities, log),
			httptransport.NewLogHandler(st.logs, log),
			httptransport.NewObjectTypeHandler(catalogSvc, log),
		},
		WS: []httptransport.Registrar{
			ws.New(reg, st.entities, st.sources, ingestSvc, log),
		},
		Checks: checks,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting object-tracker", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if relay != nil {
		g.Go(func() error {
			return ignoreCanceled(relay.Run(gctx))
		})
	}
	if worker != nil {
		g.Go(func() error {
			return ignoreCanceled(worker.Run(gctx))
		})
	}

	return g.Wait()
}

// openStores selects Postgres when configured and falls back to the in-memory
// stores otherwise.
func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (stores, func(), error) {
	if cfg.Postgres.URL == "" {
		log.Info("using in-memory storage")
		return stores{
			entities:     storage.NewInMemoryEntityStore(),
			sensors:      storage.NewInMemorySensorStore(),
			observations: storage.NewInMemoryObservationStore(),
			sources:      storage.NewInMemorySourceStore(),
			objectTypes:  storage.NewInMemoryObjectTypeStore(),
			logs:         storage.NewInMemoryValidationLogStore(),
		}, func() {}, nil
	}

	pool, err := postgres.New(ctx, cfg.Postgres.URL)
	if err != nil {
		return stores{}, nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return stores{}, nil, err
	}
	log.Info("using postgres storage")
	return stores{
		entities:     postgres.NewEntityStore(pool),
		sensors:      postgres.NewSensorStore(pool),
		observations: postgres.NewObservationStore(pool),
		sources:      postgres.NewSourceStore(pool),
		objectTypes:  postgres.NewObjectTypeStore(pool),
		logs:         postgres.NewValidationLogStore(pool),
	}, pool.Close, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
