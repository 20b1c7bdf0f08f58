// Command server runs the auth gateway.
//
// Configuration comes from the environment (see internal/config). The
// process exits with status 1 when configuration is invalid or the
// credential store cannot be reached.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/auth-gateway/internal/config"
	"github.com/sakif/auth-gateway/internal/server"
	"github.com/sakif/auth-gateway/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred trace flushing always happens.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	shutdown, err := telemetry.Setup(ctx, telemetry.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", slog.String("error", err.Error()))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("flushing traces", slog.String("error", err.Error()))
		}
	}()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
