package config_test

import (
	"testing"

	"github.com/tigerroll/gridpulse/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := config.NewConfig()

	assert.Equal(t, "UTC", cfg.GridPulse.System.Timezone)
	assert.Equal(t, 30, cfg.GridPulse.Ingest.HistoryDays)
	assert.Equal(t, 10, cfg.GridPulse.Ingest.ChunkDays)
	assert.Equal(t, 3, cfg.GridPulse.Ingest.Retry.MaxAttempts)
	assert.Equal(t, 24, cfg.GridPulse.Analysis.Period)
	assert.Equal(t, 2, cfg.GridPulse.Analysis.MinPeriods)
	assert.Equal(t, 100, cfg.GridPulse.Forecast.WindowSize)
	assert.Equal(t, 25, cfg.GridPulse.Forecast.MinWindow)
	assert.Equal(t, 3, cfg.GridPulse.Cluster.Clusters)
	assert.Equal(t, ":8080", cfg.GridPulse.Server.Addr)
	assert.False(t, cfg.GridPulse.Telemetry.Enabled)
	assert.False(t, cfg.GridPulse.Export.Enabled)
}

func TestLoadConfigOverlaysYAML(t *testing.T) {
	embedded := config.EmbeddedConfig(`
gridpulse:
  ingest:
    zone: "DE"
    history_days: 7
  analysis:
    min_rows: 48
  server:
    addr: ":9090"
`)
	cfg, err := config.LoadConfig("", embedded)
	require.NoError(t, err)

	assert.Equal(t, "DE", cfg.GridPulse.Ingest.Zone)
	assert.Equal(t, 7, cfg.GridPulse.Ingest.HistoryDays)
	assert.Equal(t, 48, cfg.GridPulse.Analysis.MinRows)
	assert.Equal(t, ":9090", cfg.GridPulse.Server.Addr)

	// Keys the overlay omits keep their defaults.
	assert.Equal(t, 10, cfg.GridPulse.Ingest.ChunkDays)
	assert.Equal(t, 24, cfg.GridPulse.Analysis.Period)
}

func TestLoadConfigExpandsEnvReferences(t *testing.T) {
	t.Setenv("TEST_GRIDPULSE_TOKEN", "secret-from-env")

	embedded := config.EmbeddedConfig(`
gridpulse:
  ingest:
    api_token: "${TEST_GRIDPULSE_TOKEN}"
`)
	cfg, err := config.LoadConfig("", embedded)
	require.NoError(t, err)
	assert.Equal(t, "secret-from-env", cfg.GridPulse.Ingest.APIToken)
}

func TestLoadConfigEnvOverridesWinOverYAML(t *testing.T) {
	t.Setenv("AUTH_TOKEN", "override-token")
	t.Setenv("GRID_ZONE", "FR")
	t.Setenv("SERVER_ADDR", ":7070")

	embedded := config.EmbeddedConfig(`
gridpulse:
  ingest:
    api_token: "yaml-token"
    zone: "DE"
  server:
    addr: ":9090"
`)
	cfg, err := config.LoadConfig("", embedded)
	require.NoError(t, err)

	assert.Equal(t, "override-token", cfg.GridPulse.Ingest.APIToken)
	assert.Equal(t, "FR", cfg.GridPulse.Ingest.Zone)
	assert.Equal(t, ":7070", cfg.GridPulse.Server.Addr)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	_, err := config.LoadConfig("", config.EmbeddedConfig("gridpulse: [not: a: mapping"))
	assert.Error(t, err)
}
