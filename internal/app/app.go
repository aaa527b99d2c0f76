// Package app contains the shared, reusable logic for starting and stopping
// the service.
package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/niw5924/smart-feeder-remote-api/feederservice"
)

// Run executes the main application lifecycle: it starts the service,
// listens for OS signals, and performs a graceful shutdown.
func Run(
	ctx context.Context,
	logger *slog.Logger,
	service *feederservice.Wrapper,
) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serviceDone := make(chan struct{})
	go func() {
		defer close(serviceDone)
		logger.Info("Starting Feeder Service...")
		err := service.Start(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Feeder Service failed", "err", err)
			cancel()
		}
	}()

	// Wait for a shutdown signal.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-shutdown:
		logger.Info("Received shutdown signal.", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled, initiating shutdown.")
	}

	// Execute graceful shutdown.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down Feeder Service...")
	if err := service.Shutdown(shutdownCtx); err != nil {
		logger.Error("Feeder Service shutdown failed.", "err", err)
	}

	<-serviceDone
	logger.Info("All services shut down gracefully.")
}
