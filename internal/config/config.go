// Package config provides structures and utilities for managing the
// GridPulse application configuration.
package config

// EmbeddedConfig holds the content of the configuration file, typically
// passed from main.go when loading from an embedded source.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelSilent LogLevel = "SILENT"
)

// RetryConfig holds the retry policy for the telemetry source client.
type RetryConfig struct {
	// MaxAttempts is the maximum number of fetch attempts per request.
	MaxAttempts int `yaml:"max_attempts"`
	// RateLimitBackoffSeconds is the linear backoff base for HTTP 429
	// responses; the wait is RateLimitBackoffSeconds * attempt.
	RateLimitBackoffSeconds int `yaml:"rate_limit_backoff_seconds"`
	// TransportDelaySeconds is the fixed delay after a transport-level failure.
	TransportDelaySeconds int `yaml:"transport_delay_seconds"`
}

// IngestConfig holds configuration for the ingestion pipeline.
type IngestConfig struct {
	// APIEndpoint is the base URL of the power breakdown API.
	APIEndpoint string `yaml:"api_endpoint"`
	// APIToken is the bearer-style token sent in the auth-token header.
	APIToken string `yaml:"api_token"`
	// Zone is the grid zone identifier telemetry is collected for.
	Zone string `yaml:"zone"`
	// HistoryDays is the default backfill lookback when the store is empty.
	HistoryDays int `yaml:"history_days"`
	// ChunkDays is the maximum queryable span per range request.
	ChunkDays int `yaml:"chunk_days"`
	// ChunkPauseSeconds is the pause between backfill chunks.
	ChunkPauseSeconds int `yaml:"chunk_pause_seconds"`
	// TimeoutSeconds bounds each HTTP request.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// Retry is the fetch retry policy.
	Retry RetryConfig `yaml:"retry"`
}

// AnalysisConfig holds configuration for the feature pipeline.
type AnalysisConfig struct {
	// MinRows is the minimum measurement count required to run at all.
	MinRows int `yaml:"min_rows"`
	// Period is the seasonal decomposition period in samples.
	Period int `yaml:"period"`
	// MinPeriods is the number of full periods required before decomposition
	// is attempted.
	MinPeriods int `yaml:"min_periods"`
}

// ForecastConfig holds configuration for the forecast pipeline.
type ForecastConfig struct {
	// WindowSize is the number of recent analysis rows fetched for feature
	// construction.
	WindowSize int `yaml:"window_size"`
	// MinWindow is the minimum rows needed for a complete lag history.
	MinWindow int `yaml:"min_window"`
	// ModelPath is the filesystem path of the model weight artifact.
	ModelPath string `yaml:"model_path"`
}

// ClusterConfig holds configuration for the clustering pipeline.
type ClusterConfig struct {
	// Clusters is the fixed cluster count.
	Clusters int `yaml:"clusters"`
	// MaxIterations caps the k-means refinement loop.
	MaxIterations int `yaml:"max_iterations"`
}

// ServerConfig holds the HTTP serving layer configuration.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`
}

// TelemetryConfig holds OpenTelemetry trace export settings.
type TelemetryConfig struct {
	// Enabled toggles span export. Spans are still created when disabled,
	// they just never leave the process.
	Enabled bool `yaml:"enabled"`
	// Protocol selects the OTLP transport: "grpc" or "http".
	Protocol string `yaml:"protocol"`
	// Endpoint is the OTLP collector endpoint.
	Endpoint string `yaml:"endpoint"`
}

// ExportConfig holds the analysis snapshot export settings.
type ExportConfig struct {
	// Enabled toggles the export pipeline.
	Enabled bool `yaml:"enabled"`
	// Type selects the storage backend: "local" or "gcs".
	Type string `yaml:"type"`
	// BaseDir is the directory (local) or object prefix (gcs) for snapshots.
	BaseDir string `yaml:"base_dir"`
	// Bucket is the GCS bucket name when Type is "gcs".
	Bucket string `yaml:"bucket"`
	// CredentialsFile is an optional service account key path for GCS.
	CredentialsFile string `yaml:"credentials_file"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone. Pinned to UTC; the telemetry
	// source mixes conventions and all persisted timestamps are normalized.
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// GridPulseConfig holds all configuration under the "gridpulse" top-level key.
type GridPulseConfig struct {
	System    SystemConfig    `yaml:"system"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Forecast  ForecastConfig  `yaml:"forecast"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Export    ExportConfig    `yaml:"export"`
	// DatasourceConfigs holds raw per-datasource configuration maps, decoded
	// with mapstructure where a connection is established.
	DatasourceConfigs map[string]interface{} `yaml:"database"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	GridPulse GridPulseConfig `yaml:"gridpulse"`
}

// NewConfig returns a new Config instance populated with default values.
func NewConfig() *Config {
	cfg := &Config{
		GridPulse: GridPulseConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Ingest: IngestConfig{
				APIEndpoint:       "https://api.electricitymaps.com/v3/power-breakdown",
				Zone:              "US-CAL-LDWP",
				HistoryDays:       30,
				ChunkDays:         10,
				ChunkPauseSeconds: 1,
				TimeoutSeconds:    30,
				Retry: RetryConfig{
					MaxAttempts:             3,
					RateLimitBackoffSeconds: 5,
					TransportDelaySeconds:   2,
				},
			},
			Analysis: AnalysisConfig{
				MinRows:    24,
				Period:     24,
				MinPeriods: 2,
			},
			Forecast: ForecastConfig{
				WindowSize: 100,
				MinWindow:  25,
				ModelPath:  "models/solar_mlp.json",
			},
			Cluster: ClusterConfig{
				Clusters:      3,
				MaxIterations: 100,
			},
			Server: ServerConfig{
				Addr: ":8080",
			},
			Telemetry: TelemetryConfig{
				Enabled:  false,
				Protocol: "grpc",
			},
			Export: ExportConfig{
				Enabled: false,
				Type:    "local",
				BaseDir: "exports",
			},
		},
	}

	cfg.GridPulse.DatasourceConfigs = map[string]interface{}{}
	return cfg
}
