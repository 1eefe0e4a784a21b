package app

import (
	"github.com/gorilla/sessions"

	"github.com/ghuser/lostfound/pkg/cache"
	"github.com/ghuser/lostfound/pkg/config"
	"github.com/ghuser/lostfound/pkg/database"
	"github.com/ghuser/lostfound/pkg/events"
	"github.com/ghuser/lostfound/pkg/logger"
	"github.com/ghuser/lostfound/pkg/storage"
	"github.com/ghuser/lostfound/pkg/workflows"
)

// Application holds shared infrastructure dependencies for all services.
// Pass it to ItemRoutes during server initialization and to the worker's
// subscriber registration.
//
// Logging: app.Logger is backed by a trace-aware handler; use slog's context methods
// and trace_id, span_id, and request_id are injected automatically:
//
//	app.Logger.InfoContext(ctx, "timeline page loaded", "timeline_id", id)
//	app.Logger.ErrorContext(ctx, "failed to write item", "error", err)
//
// Use app.Logger.Info/Error (no context) only for startup and shutdown messages.
type Application struct {
	Config         *config.Config
	Db             *database.Database
	Logger         logger.Logger
	EventBus       *events.EventBus
	Redis          *cache.RedisClient
	Blob           *storage.Store
	TemporalClient *workflows.TemporalClient // nil unless TEMPORAL_ENABLED
	SessionStore   sessions.Store            // Redis-backed session store; nil in worker process
}
