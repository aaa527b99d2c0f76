// Package config loads the service configuration in two stages: the embedded
// YAML file is unmarshalled into YamlConfig and converted to a base
// AppConfig, then environment variables override and validate it.
package config

// --- YAML-Specific Structs ---

// YamlMqttConfig holds the broker connection settings.
type YamlMqttConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	ClientID    string `yaml:"client_id"`
	TopicFilter string `yaml:"topic_filter"`
}

// YamlConfig defines the structure for unmarshaling the embedded config.yaml
// file.
type YamlConfig struct {
	APIPort                 string         `yaml:"api_port"`
	DatabaseURL             string         `yaml:"database_url"`
	Mqtt                    YamlMqttConfig `yaml:"mqtt"`
	FirebaseCredentialsFile string         `yaml:"firebase_credentials_file"`
	NumPipelineWorkers      int            `yaml:"num_pipeline_workers"`
}

// NewConfigFromYaml converts the raw unmarshaled data into a clean, base
// AppConfig struct. Stage 1: the struct exists, but without environment
// overrides.
func NewConfigFromYaml(yamlCfg *YamlConfig) (*AppConfig, error) {
	appCfg := &AppConfig{
		APIPort:                 yamlCfg.APIPort,
		DatabaseURL:             yamlCfg.DatabaseURL,
		Mqtt:                    yamlCfg.Mqtt,
		FirebaseCredentialsFile: yamlCfg.FirebaseCredentialsFile,
		NumPipelineWorkers:      yamlCfg.NumPipelineWorkers,
	}
	return appCfg, nil
}
