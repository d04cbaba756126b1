package main

import (
	"context"
	"embed"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tigerroll/gridpulse/internal/app"
	_ "github.com/tigerroll/gridpulse/internal/database/mysql"
	_ "github.com/tigerroll/gridpulse/internal/database/postgres"
	_ "github.com/tigerroll/gridpulse/internal/database/sqlite"
	"github.com/tigerroll/gridpulse/internal/support/logger"
)

// embeddedConfig embeds the application's YAML configuration file so the
// binary carries its own defaults.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// migrationsFS embeds the per-dialect schema migration scripts.
//
//go:embed all:resources/migrations
var migrationsFS embed.FS

// embeddedModel embeds the default forecast model artifact used when no
// model file is present at the configured path.
//
//go:embed resources/models/solar_mlp.json
var embeddedModel []byte

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Shutting down...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	app.RunApplication(ctx, envFilePath, embeddedConfig,
		app.MigrationsFS{FS: migrationsFS, Path: "resources/migrations"},
		app.EmbeddedModel(embeddedModel),
	)
}
