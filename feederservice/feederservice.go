// Package feederservice wires the ingestion pipeline and the HTTP API into
// one runnable service.
package feederservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/rs/zerolog"

	"github.com/niw5924/smart-feeder-remote-api/feederservice/config"
	"github.com/niw5924/smart-feeder-remote-api/internal/api"
	"github.com/niw5924/smart-feeder-remote-api/internal/pipeline"
	"github.com/niw5924/smart-feeder-remote-api/pkg/feeder"
)

// Wrapper owns the two halves of the service: the background ingestion
// pipeline and the registration/log HTTP API.
type Wrapper struct {
	processingService *messagepipeline.StreamingService[feeder.Event]
	httpServer        *http.Server
	logger            *slog.Logger
	httpReadyChan     chan struct{}
}

// New creates and wires up the entire feeder service.
func New(
	cfg *config.AppConfig,
	dependencies *feeder.ServiceDependencies,
	store api.AccountStore,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) (*Wrapper, error) {

	// 1. Create the API handlers.
	apiHandler := api.NewAPI(store, logger.With("component", "API"))

	// 2. Create the main background processing pipeline.
	processingService, err := newProcessingService(cfg, dependencies, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create processing service: %w", err)
	}

	// 3. Create the router and attach handlers.
	mux := http.NewServeMux()
	mux.Handle("POST /api/users/upsertMe", http.HandlerFunc(apiHandler.UpsertMeHandler))
	mux.Handle("POST /api/devices/register", authMiddleware(http.HandlerFunc(apiHandler.RegisterDeviceHandler)))
	mux.Handle("POST /api/devices/pushTokens", authMiddleware(http.HandlerFunc(apiHandler.RegisterPushTokenHandler)))
	mux.Handle("GET /api/mqttLogs/all", authMiddleware(http.HandlerFunc(apiHandler.LogsHandler)))

	return &Wrapper{
		processingService: processingService,
		httpServer:        &http.Server{Addr: ":" + cfg.APIPort, Handler: mux},
		logger:            logger,
		httpReadyChan:     make(chan struct{}),
	}, nil
}

// newProcessingService builds the main message processing pipeline.
func newProcessingService(
	cfg *config.AppConfig,
	dependencies *feeder.ServiceDependencies,
	logger *slog.Logger,
) (*messagepipeline.StreamingService[feeder.Event], error) {

	processor := pipeline.NewIngestionProcessor(dependencies, logger.With("component", "IngestionPipeline"))

	// The pipeline library expects a zerolog.Logger; our service-wide logger
	// is slog, so we pass Nop.
	return messagepipeline.NewStreamingService[feeder.Event](
		messagepipeline.StreamingServiceConfig{NumWorkers: cfg.NumPipelineWorkers},
		dependencies.IngestionConsumer,
		pipeline.EventTransformer,
		processor,
		zerolog.Nop(),
	)
}

// Start runs the ingestion pipeline, then brings up the HTTP listener and
// blocks until the server exits or the context is cancelled.
func (w *Wrapper) Start(ctx context.Context) error {
	w.logger.Info("Core ingestion pipeline starting...")
	if err := w.processingService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start processing service: %w", err)
	}

	listener, err := net.Listen("tcp", w.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("HTTP listener failed: %w", err)
	}
	close(w.httpReadyChan)
	w.logger.Info("HTTP listener is active.", "addr", listener.Addr().String())

	serverErrChan := make(chan error, 1)
	go func() {
		if err := w.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.logger.Error("HTTP server failed", "err", err)
			serverErrChan <- err
		}
		close(serverErrChan)
	}()

	select {
	case err := <-serverErrChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready is closed once the HTTP listener is accepting connections.
func (w *Wrapper) Ready() <-chan struct{} {
	return w.httpReadyChan
}

// Shutdown gracefully stops all service components in the correct order:
// the pipeline first so no message is processed against closed clients,
// then the HTTP server.
func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down service components...")
	var finalErr error

	if err := w.processingService.Stop(ctx); err != nil {
		w.logger.Error("Processing service shutdown failed.", "err", err)
		finalErr = err
	}

	if err := w.httpServer.Shutdown(ctx); err != nil {
		w.logger.Error("HTTP server shutdown failed.", "err", err)
		finalErr = err
	}

	w.logger.Info("All components shut down.")
	return finalErr
}
