package config

import (
	"fmt"
	"log/slog"
	"os"
)

// AppConfig is the canonical, validated configuration object used throughout
// the application. It is created by NewConfigFromYaml (Stage 1) and
// finalized by UpdateConfigWithEnvOverrides (Stage 2).
type AppConfig struct {
	APIPort                 string
	DatabaseURL             string
	Mqtt                    YamlMqttConfig
	FirebaseCredentialsFile string
	NumPipelineWorkers      int
}

// BrokerURL formats the MQTT connection URL. The fleet's broker only speaks
// TLS.
func (c *AppConfig) BrokerURL() string {
	return fmt.Sprintf("ssl://%s:%s", c.Mqtt.Host, c.Mqtt.Port)
}

// UpdateConfigWithEnvOverrides takes the base configuration (created from
// YAML) and completes it by applying environment variables and final
// validation. This completes "Stage 2" of configuration loading.
func UpdateConfigWithEnvOverrides(cfg *AppConfig, logger *slog.Logger) (*AppConfig, error) {
	logger.Debug("Applying environment variable overrides...")

	overrides := []struct {
		env    string
		target *string
	}{
		{"API_PORT", &cfg.APIPort},
		{"DATABASE_URL", &cfg.DatabaseURL},
		{"MQTT_HOST", &cfg.Mqtt.Host},
		{"MQTT_PORT", &cfg.Mqtt.Port},
		{"MQTT_USERNAME", &cfg.Mqtt.Username},
		{"MQTT_PASSWORD", &cfg.Mqtt.Password},
		{"MQTT_CLIENT_ID", &cfg.Mqtt.ClientID},
		{"FIREBASE_CREDENTIALS_FILE", &cfg.FirebaseCredentialsFile},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			logger.Debug("Overriding config value", "key", o.env, "source", "env")
			*o.target = v
		}
	}

	// Final validation.
	if cfg.DatabaseURL == "" {
		logger.Error("Final config validation failed", "error", "DATABASE_URL is not set")
		return nil, fmt.Errorf("DATABASE_URL is not set in config or env var")
	}
	if cfg.Mqtt.Host == "" {
		logger.Error("Final config validation failed", "error", "MQTT_HOST is not set")
		return nil, fmt.Errorf("MQTT_HOST is not set in config or env var")
	}
	if cfg.Mqtt.Port == "" {
		cfg.Mqtt.Port = "8883"
	}
	if cfg.Mqtt.TopicFilter == "" {
		cfg.Mqtt.TopicFilter = "feeder/#"
	}
	if cfg.APIPort == "" {
		cfg.APIPort = "8080"
	}
	if cfg.NumPipelineWorkers <= 0 {
		cfg.NumPipelineWorkers = 4
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}
