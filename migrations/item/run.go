// Command item applies the item service's schema migrations.
package main

import (
	"context"
	"embed"
	"log/slog"
	"os"
	"time"

	"github.com/ghuser/lostfound/pkg/config"
	"github.com/ghuser/lostfound/pkg/logger"
	"github.com/ghuser/lostfound/pkg/migrator"
)

//go:embed *.sql
var MigrationsFS embed.FS

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	applied, err := migrator.Up(ctx, cfg.DefinitionDatabaseURL, MigrationsFS, log)
	if err != nil {
		log.Error("migrations failed", "applied", applied, "error", err)
		os.Exit(1) //nolint:gocritic
	}
	log.Info("migrations complete", "applied", len(applied))
}
