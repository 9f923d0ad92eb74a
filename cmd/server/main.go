// File: cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"os"
	"os/signal"
	"syscall"
	"time"

	"instauto_backend/internal/app"
	"instauto_backend/internal/config"
	"instauto_backend/internal/jobs"
	"instauto_backend/internal/notification"
	"instauto_backend/internal/platform/logger"
	"instauto_backend/internal/profile"
	"instauto_backend/internal/search"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const usage = `usage: server [command] [flags]

commands:
  serve            run the HTTP API (default)
  sync-oficinas    rebuild the Elasticsearch oficina directory from the database
  expire-plans     downgrade expired pro plans once and exit
`

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync() //nolint:errcheck

	switch cmd {
	case "serve":
		err = serve(cfg, appLogger)
	case "sync-oficinas":
		err = syncOficinas(cfg, appLogger, args)
	case "expire-plans":
		err = expirePlans(cfg, appLogger)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		appLogger.Fatal("Command failed", zap.String("command", cmd), zap.Error(err))
	}
}

func serve(cfg *config.Config, appLogger *zap.Logger) error {
	server, cleanup, err := initializeServer(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down server...", zap.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}
	appLogger.Info("Server shutdown complete.")
	return nil
}

func syncOficinas(cfg *config.Config, appLogger *zap.Logger, args []string) error {
	flags := pflag.NewFlagSet("sync-oficinas", pflag.ContinueOnError)
	batchSize := flags.Int("batch-size", 100, "number of oficinas per bulk request")
	refresh := flags.String("es-refresh", "false", "bulk refresh policy (true, false, wait_for)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if cfg.ElasticsearchURL == "" {
		return fmt.Errorf("ELASTICSEARCH_URL is not set")
	}

	db, cleanup, err := app.ProvideDatabase(cfg, appLogger)
	if err != nil {
		return err
	}
	defer cleanup()

	ix, err := app.ProvideOficinaIndex(cfg, appLogger)
	if err != nil {
		return err
	}
	res, err := ix.Sync(context.Background(), search.OficinaSource(profile.NewGORMRepository(db)), *batchSize, *refresh)
	appLogger.Info("Oficina synchronization done", zap.Int("synced", res.Synced), zap.Int("failed", res.Failed))
	return err
}

func expirePlans(cfg *config.Config, appLogger *zap.Logger) error {
	db, cleanup, err := app.ProvideDatabase(cfg, appLogger)
	if err != nil {
		return err
	}
	defer cleanup()

	ix, err := app.ProvideOficinaIndex(cfg, appLogger)
	if err != nil {
		return err
	}
	profiles := profile.NewService(profile.NewGORMRepository(db), nil, app.ProvideOficinaIndexer(ix), appLogger)
	notifications := notification.NewService(notification.NewGORMRepository(db), appLogger)
	job := jobs.NewPlanExpiryJob(profiles, notifications, "", appLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	job.RunOnce(ctx)
	return nil
}
