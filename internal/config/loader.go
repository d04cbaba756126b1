package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/gridpulse/internal/support/exception"
	"github.com/tigerroll/gridpulse/internal/support/logger"
)

const moduleName = "config"

// loadConfig loads configuration from the embedded YAML and environment
// variables. It is intended to be called once during application startup.
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	// 1. Start from defaults; the YAML overlays only the keys it defines.
	cfg := NewConfig()

	// 2. Expand ${VAR} references so secrets stay out of the embedded file.
	expanded := os.Expand(string(embeddedConfig), func(key string) string {
		return os.Getenv(key)
	})

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, exception.NewPipelineError(moduleName, "failed to unmarshal embedded config", err, false, false)
	}

	// 3. Direct environment overrides for deployment-critical values.
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies well-known environment variables on top of the
// merged configuration. These match the names the deployment tooling exports.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AUTH_TOKEN"); v != "" {
		cfg.GridPulse.Ingest.APIToken = v
	}
	if v := os.Getenv("GRID_ZONE"); v != "" {
		cfg.GridPulse.Ingest.Zone = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.GridPulse.System.Logging.Level = v
	}
	if v := os.Getenv("MODEL_PATH"); v != "" {
		cfg.GridPulse.Forecast.ModelPath = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.GridPulse.Server.Addr = v
	}
}

// LoadConfig loads configuration from the embedded YAML file and environment
// variables, applies the configured log level, and returns the result.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	cfg, err := loadConfig(envFilePath, embeddedConfig)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.GridPulse.System.Logging.Level)
	return cfg, nil
}
