// Command opsd serves the cleaning operations HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/cleaning-ops/internal/config"
	"github.com/example/cleaning-ops/internal/logging"
	"github.com/example/cleaning-ops/internal/observability"
	"github.com/example/cleaning-ops/internal/persistence/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogFormat, cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("opsd stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", "error", err)
			}
		}()
	}

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		handler, shutdownMetrics, err := observability.InitMetrics()
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		defer func() {
			if err := shutdownMetrics(context.Background()); err != nil {
				logger.Error("failed to shutdown metrics", "error", err)
			}
		}()
		metricsHandler = handler
	}

	a, err := buildApp(cfg, storage, metricsHandler, logger)
	if err != nil {
		return err
	}
	a.startWatch(ctx)
	defer a.close()

	server := NewServer(fmt.Sprintf(":%d", cfg.HTTPPort), a.handler)
	logger.Info("operations API listening", "port", cfg.HTTPPort, "timezone", cfg.Timezone.String())
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("operations API stopped")
	return nil
}
