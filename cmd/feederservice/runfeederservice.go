/*
File: cmd/feederservice/runfeederservice.go
Description: Main entrypoint for the feeder service. Handles config loading,
dependency injection, and starting the application.
*/
package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	firebase "firebase.google.com/go/v4"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"

	"github.com/niw5924/smart-feeder-remote-api/feederservice"
	"github.com/niw5924/smart-feeder-remote-api/feederservice/config"
	"github.com/niw5924/smart-feeder-remote-api/internal/api"
	"github.com/niw5924/smart-feeder-remote-api/internal/app"
	"github.com/niw5924/smart-feeder-remote-api/internal/platform/mqtt"
	"github.com/niw5924/smart-feeder-remote-api/internal/platform/postgres"
	"github.com/niw5924/smart-feeder-remote-api/internal/platform/push"
	"github.com/niw5924/smart-feeder-remote-api/pkg/feeder"
)

//go:embed config.yaml
var configFile []byte

func main() {
	// --- 1. Setup structured logging (slog) ---
	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "info", "INFO":
		logLevel = slog.LevelInfo
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "smart-feeder-remote-api")

	slog.SetDefault(logger)

	// --- 2. Load Configuration (Stage 0: Unmarshal) ---
	var yamlCfg config.YamlConfig
	err := yaml.Unmarshal(configFile, &yamlCfg)
	if err != nil {
		logger.Error("Failed to unmarshal embedded yaml config", "err", err)
		os.Exit(1)
	}

	// --- 3. Build Base Config (Stage 1: YAML to Base Struct) ---
	baseCfg, err := config.NewConfigFromYaml(&yamlCfg)
	if err != nil {
		logger.Error("Failed to build base configuration from YAML", "err", err)
		os.Exit(1)
	}

	// --- 4. Apply Overrides & Validate (Stage 2: Env Vars) ---
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error("Failed to finalize configuration with environment overrides", "err", err)
		os.Exit(1)
	}

	// --- 5. Create dependencies ---
	ctx := context.Background()

	deps, store, authMiddleware, err := newProdDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize dependencies", "err", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	// --- 6. Create the service ---
	service, err := feederservice.New(
		cfg,
		deps,
		store,
		authMiddleware,
		logger.With("component", "FeederService"),
	)
	if err != nil {
		logger.Error("Failed to create feeder service", "err", err)
		os.Exit(1)
	}

	// --- 7. Run the application ---
	app.Run(ctx, logger, service)
}

// newProdDependencies creates real, production-ready dependencies.
func newProdDependencies(
	ctx context.Context,
	cfg *config.AppConfig,
	logger *slog.Logger,
) (*feeder.ServiceDependencies, *postgres.Store, func(http.Handler) http.Handler, error) {
	// Some platform components expect a zerolog.Logger; the service-wide
	// logger is slog.
	zlog := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "smart-feeder-remote-api").
		Logger()

	logger.Debug("Connecting to PostgreSQL")
	store, err := postgres.New(cfg.DatabaseURL, zlog.With().Str("component", "Postgres").Logger())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	logger.Debug("Initializing Firebase app")
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}
	fbApp, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	authClient, err := fbApp.Auth(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create firebase auth client: %w", err)
	}
	messagingClient, err := fbApp.Messaging(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create firebase messaging client: %w", err)
	}

	logger.Debug("Creating MQTT consumer", "broker", cfg.BrokerURL(), "filter", cfg.Mqtt.TopicFilter)
	clientID := cfg.Mqtt.ClientID
	if clientID == "" {
		clientID = "smart-feeder-remote-api"
	}
	mqttOpts := pahomqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL()).
		SetClientID(clientID).
		SetUsername(cfg.Mqtt.Username).
		SetPassword(cfg.Mqtt.Password).
		SetAutoReconnect(true).
		// Handlers for different messages may run concurrently; per-message
		// ordering is the pipeline's concern.
		SetOrderMatters(false)
	mqttClient := pahomqtt.NewClient(mqttOpts)

	ingestConsumer, err := mqtt.NewConsumer(
		mqttClient,
		mqtt.NewConsumerDefaults(cfg.Mqtt.TopicFilter),
		zlog.With().Str("component", "MQTT").Logger(),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create mqtt consumer: %w", err)
	}

	pushNotifier, err := push.NewFCMNotifier(messagingClient, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create push notifier: %w", err)
	}

	authMiddleware := api.NewFirebaseAuthMiddleware(authClient, logger.With("component", "Auth"))

	logger.Debug("All production dependencies initialized")

	return &feeder.ServiceDependencies{
		IngestionConsumer:  ingestConsumer,
		EventLog:           store,
		DeviceTokenFetcher: store,
		PushNotifier:       pushNotifier,
	}, store, authMiddleware, nil
}
