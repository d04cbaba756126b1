package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tigerroll/gridpulse/internal/config"
	"github.com/tigerroll/gridpulse/internal/metrics"
	"github.com/tigerroll/gridpulse/internal/support/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func testClient(endpoint string) (*Client, *[]time.Duration) {
	c := NewClient(config.IngestConfig{
		APIEndpoint:    endpoint,
		APIToken:       "test-token",
		Zone:           "US-CAL-LDWP",
		TimeoutSeconds: 5,
		Retry: config.RetryConfig{
			MaxAttempts:             3,
			RateLimitBackoffSeconds: 5,
			TransportDelaySeconds:   2,
		},
	}, metrics.NewNoOpMetricRecorder())
	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }
	return c, &slept
}

func TestFetchLatestSendsAuthAndZone(t *testing.T) {
	var gotToken, gotZone string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("auth-token")
		gotZone = r.URL.Query().Get("zone")
		w.Write([]byte(`{"datetime":"2025-06-01T10:00:00Z","zone":"US-CAL-LDWP","carbonIntensity":120.5,"powerConsumptionBreakdown":{"solar":400,"wind":50,"gas":200}}`))
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL)
	b, err := c.FetchLatest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test-token", gotToken)
	assert.Equal(t, "US-CAL-LDWP", gotZone)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), b.Datetime.UTC())
	require.NotNil(t, b.Consumption)
	assert.Equal(t, 400.0, *b.Consumption.Solar)
}

func TestFetchRetriesRateLimitWithLinearBackoff(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"datetime":"2025-06-01T10:00:00Z"}`))
	}))
	defer srv.Close()

	c, slept := testClient(srv.URL)
	_, err := c.FetchLatest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
	// Linear backoff: base * attempt.
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, *slept)
}

func TestFetchExhaustsRateLimitAttempts(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL)
	_, err := c.FetchLatest(context.Background())
	require.Error(t, err)

	assert.Equal(t, 3, calls)
	var pe *exception.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.IsRetryable())
}

func TestFetchAbortsOnOtherStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad token"))
	}))
	defer srv.Close()

	c, slept := testClient(srv.URL)
	_, err := c.FetchLatest(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, calls, "non-429 failures must not be retried")
	assert.Empty(t, *slept)
	assert.Contains(t, err.Error(), "401")
}

func TestFetchRetriesTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	c, slept := testClient(srv.URL)
	_, err := c.FetchLatest(context.Background())
	require.Error(t, err)

	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, *slept)
}

func TestFetchRangeSendsWindow(t *testing.T) {
	var gotStart, gotEnd string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStart = r.URL.Query().Get("start")
		gotEnd = r.URL.Query().Get("end")
		w.Write([]byte(`{"data":[{"datetime":"2025-06-01T10:00:00Z"},{"datetime":"2025-06-01T11:00:00Z"}]}`))
	}))
	defer srv.Close()

	c, _ := testClient(srv.URL)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	items, err := c.FetchRange(context.Background(), start, start.Add(24*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "2025-06-01T00:00:00Z", gotStart)
	assert.Equal(t, "2025-06-02T00:00:00Z", gotEnd)
	assert.Len(t, items, 2)
}

func TestToMeasurementConsumptionWins(t *testing.T) {
	b := Breakdown{
		Datetime:        time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Zone:            "US-CAL-LDWP",
		CarbonIntensity: f64(120),
		Consumption:     &SourceBreakdown{Solar: f64(400), Wind: f64(50)},
		Production:      &SourceBreakdown{Solar: f64(999), Wind: f64(999), Gas: f64(999)},
	}
	m, allZero := b.ToMeasurement("fallback")
	assert.False(t, allZero)
	assert.Equal(t, 400.0, m.SolarMW)
	assert.Equal(t, 50.0, m.WindMW)
	assert.Zero(t, m.GasMW, "absent consumption fields default to 0, never fall through to production")
}

func TestToMeasurementProductionFallback(t *testing.T) {
	b := Breakdown{
		Datetime:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Production: &SourceBreakdown{Gas: f64(300)},
	}
	m, allZero := b.ToMeasurement("US-CAL-LDWP")
	assert.False(t, allZero)
	assert.Equal(t, 300.0, m.GasMW)
	assert.Equal(t, "US-CAL-LDWP", m.Zone)
}

func TestToMeasurementAllZeroFlag(t *testing.T) {
	b := Breakdown{Datetime: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	m, allZero := b.ToMeasurement("US-CAL-LDWP")
	assert.True(t, allZero)
	assert.Zero(t, m.SolarMW)
	assert.Zero(t, m.WindMW)
	assert.Zero(t, m.GasMW)
}
