package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"

	"github.com/ghuser/lostfound/pkg/app"
	"github.com/ghuser/lostfound/pkg/cache"
	"github.com/ghuser/lostfound/pkg/config"
	"github.com/ghuser/lostfound/pkg/database"
	"github.com/ghuser/lostfound/pkg/events"
	"github.com/ghuser/lostfound/pkg/logger"
	"github.com/ghuser/lostfound/pkg/telemetry"
	"github.com/ghuser/lostfound/pkg/workflows"
	"github.com/ghuser/lostfound/services/item/application/indexing"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
	itemEvents "github.com/ghuser/lostfound/services/item/domain/events"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, _, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(context.Background()) //nolint:errcheck

	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	pool, err := database.NewPool(ctx, cfg.DefinitionDatabaseURL, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer pool.Close() //nolint:errcheck
	log.Info("database pool connected")

	eventBus, err := events.NewEventBus(cfg, log)
	if err != nil {
		log.Error("failed to setup event bus", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer eventBus.Close() //nolint:errcheck

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer redisClient.Close() //nolint:errcheck
	log.Info("redis connected")

	var temporalClient *workflows.TemporalClient
	if cfg.TemporalEnabled {
		temporalClient, err = workflows.NewTemporalClient(ctx, cfg.TemporalHostPort, cfg.TemporalNamespace, cfg.TemporalTaskQueue, log)
		if err != nil {
			log.Error("failed to initialize temporal client", "error", err)
			os.Exit(1) //nolint:gocritic
		}
		defer temporalClient.Close()
	}

	appConfig := &app.Application{
		Config:         cfg,
		Db:             pool,
		Logger:         log,
		EventBus:       eventBus,
		Redis:          redisClient,
		TemporalClient: temporalClient,
	}
	indexer := appsvcs.NewIndexerFromApp(appConfig)

	if temporalClient != nil {
		w := temporalClient.NewWorker()
		indexing.Register(w, &indexing.Activities{Indexer: indexer})
		if err := w.Start(); err != nil {
			log.Error("failed to start temporal worker", "error", err)
			os.Exit(1) //nolint:gocritic
		}
		defer w.Stop()
		log.Info("temporal worker started", "task_queue", temporalClient.TaskQueue)
	}

	if err := registerSubscribers(ctx, appConfig, indexer); err != nil {
		log.Error("failed to register subscribers", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	<-ctx.Done()

	// EventBus.Close() (via defer) waits up to 30s for in-flight handlers.
	log.Info("shutting down worker...")
}

// registerSubscribers wires all domain event handlers.
// Add new topics here as more services publish events.
func registerSubscribers(ctx context.Context, a *app.Application, indexer *appsvcs.Indexer) error {
	var (
		tc        client.Client
		taskQueue string
	)
	if a.TemporalClient != nil {
		tc, taskQueue = a.TemporalClient.Client, a.TemporalClient.TaskQueue
	}
	handler := indexing.ItemCreatedHandler(tc, taskQueue, indexer, a.Logger)

	errCh, err := a.EventBus.Subscribe(ctx, itemEvents.TopicItemCreated, handler)
	if err != nil {
		return err
	}

	// Drain subscriber errors in background so the channel never blocks.
	go func() {
		for err := range errCh {
			a.Logger.ErrorContext(ctx, "subscriber error",
				"topic", itemEvents.TopicItemCreated,
				"error", err,
			)
		}
	}()

	a.Logger.Info("event subscribers registered",
		"topics", []string{itemEvents.TopicItemCreated},
		"temporal", tc != nil,
	)
	return nil
}
