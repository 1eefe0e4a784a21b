package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	_ "github.com/ghuser/lostfound/docs/swagger"
	"github.com/ghuser/lostfound/pkg/app"
	"github.com/ghuser/lostfound/pkg/auth"
	"github.com/ghuser/lostfound/pkg/cache"
	"github.com/ghuser/lostfound/pkg/config"
	"github.com/ghuser/lostfound/pkg/database"
	"github.com/ghuser/lostfound/pkg/events"
	"github.com/ghuser/lostfound/pkg/httpx"
	"github.com/ghuser/lostfound/pkg/logger"
	"github.com/ghuser/lostfound/pkg/storage"
	"github.com/ghuser/lostfound/pkg/telemetry"
	"github.com/ghuser/lostfound/pkg/workflows"
	itemApi "github.com/ghuser/lostfound/services/item/application/api"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
)

// timelineSweepInterval is how often idle timelines are evicted.
const timelineSweepInterval = time.Minute

// @title					Lost & Found API
// @version				1.0
// @description			Geo-radius timeline of lost, found and adoption items.
// @contact.name			API Support
// @license.name			MIT
// @license.url			https://opensource.org/licenses/MIT
// @host					localhost:8080
// @BasePath				/api
// @schemes				http https
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

	// Telemetry: OTel tracing + metrics
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	otelShutdown, metricsHandler, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(context.Background()) //nolint:errcheck

	// Crash reporting: Sentry (optional, log and continue on failure)
	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	pool, err := database.NewPool(ctx, cfg.DefinitionDatabaseURL, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1) //nolint:gocritic // intentional: startup failure, deferred flushes are best-effort
	}
	defer pool.Close() //nolint:errcheck
	log.Info("database pool connected")

	eventBus, err := events.NewEventBusWithForwarder(cfg, log)
	if err != nil {
		log.Error("failed to setup event bus", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer eventBus.Close() //nolint:errcheck

	if err := eventBus.StartForwarder(ctx); err != nil {
		log.Error("failed to start event forwarder", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1) //nolint:gocritic // intentional: startup failure
	}
	defer redisClient.Close() //nolint:errcheck
	log.Info("redis connected")

	s3Client, err := storage.NewClient(ctx, storage.ClientConfig{
		Region:       cfg.S3Region,
		Endpoint:     cfg.MinioEndpoint,
		UsePathStyle: cfg.S3UsePathStyle,
		AccessKey:    cfg.MinioRootUser,
		SecretKey:    cfg.MinioRootPassword,
	})
	if err != nil {
		log.Error("failed to create blob store client", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	blobStore, err := storage.NewFromClient(s3Client, storage.Config{
		Bucket: cfg.MinioBucket,
		URLTTL: cfg.ThumbnailURLTTL,
	})
	if err != nil {
		log.Error("failed to create blob store", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	if err := blobStore.Ping(ctx); err != nil {
		log.Warn("blob store unreachable at startup", "bucket", cfg.MinioBucket, "error", err)
	}

	var temporalClient *workflows.TemporalClient
	if cfg.TemporalEnabled {
		temporalClient, err = workflows.NewTemporalClient(ctx, cfg.TemporalHostPort, cfg.TemporalNamespace, cfg.TemporalTaskQueue, log)
		if err != nil {
			log.Error("failed to initialize temporal client", "error", err)
			os.Exit(1) //nolint:gocritic // intentional: startup failure
		}
		defer temporalClient.Close()
	}

	sessionStore := auth.NewSessionStore(
		redisClient.Client(),
		[]byte(cfg.SessionAuthKey),
		[]byte(cfg.SessionEncryptionKey),
		cfg.Environment == config.EnvProduction,
		auth.DefaultSessionMaxAge,
	)
	log.Info("session store initialized", "backend", "redis")

	appConfig := &app.Application{
		Config:         cfg,
		Db:             pool,
		Logger:         log,
		EventBus:       eventBus,
		Redis:          redisClient,
		Blob:           blobStore,
		TemporalClient: temporalClient,
		SessionStore:   sessionStore,
	}
	svcs := appsvcs.New(appConfig)
	go svcs.Timelines.Run(ctx, timelineSweepInterval)
	if _, err := telemetry.ObserveGauge(otel.Meter("lostfound/api"), "timeline.active",
		"Timelines held in memory", func() int64 { return int64(svcs.Timelines.Len()) }); err != nil {
		log.Warn("failed to register timeline gauge", "error", err)
	}

	r := httpx.NewRouter(
		httpx.ServerConfig{
			ServiceName:        cfg.ServiceName,
			IsDevelopment:      cfg.Environment == config.EnvDevelopment,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			RequestTimeout:     cfg.RequestTimeout,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
			MaxBodyBytes:       cfg.MaxBodyBytes,
		},
		logger.Middleware(log),
		logger.Recovery(log),
		telemetry.SentryMiddleware(),
		otelhttp.NewMiddleware(cfg.ServiceName),
	)

	checks := httpx.HealthChecks{
		Database:  pool,
		Redis:     redisClient,
		EventBus:  eventBus,
		BlobStore: blobStore,
	}
	if temporalClient != nil {
		checks.Workflows = temporalClient
	}
	r.Get("/health", httpx.HealthHandler(checks))
	r.Get("/metrics", metricsHandler.ServeHTTP)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Route("/api", func(r chi.Router) {
		registerRoutes(r, appConfig, svcs)
	})

	srv := httpx.NewServer(cfg.HTTPAddr, r, cfg.RequestTimeout)

	go func() {
		log.Info("server listening", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// registerRoutes mounts all service routes under /api.
// Add each new service's route function here.
func registerRoutes(r chi.Router, a *app.Application, svcs *appsvcs.Services) {
	itemApi.ItemRoutes(r, a, svcs)
}
