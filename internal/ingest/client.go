// Package ingest implements the telemetry ingestion pipeline: fetching power
// breakdown snapshots from the upstream source and upserting them into the
// measurement store.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tigerroll/gridpulse/internal/config"
	"github.com/tigerroll/gridpulse/internal/domain/entity"
	"github.com/tigerroll/gridpulse/internal/metrics"
	"github.com/tigerroll/gridpulse/internal/support/exception"
	"github.com/tigerroll/gridpulse/internal/support/logger"
)

// SourceBreakdown holds per-source power figures from one side of the
// upstream payload. Pointer fields distinguish "absent" from literal zero.
type SourceBreakdown struct {
	Solar      *float64 `json:"solar"`
	Wind       *float64 `json:"wind"`
	Gas        *float64 `json:"gas"`
	Hydro      *float64 `json:"hydro"`
	Biomass    *float64 `json:"biomass"`
	Nuclear    *float64 `json:"nuclear"`
	Geothermal *float64 `json:"geothermal"`
	Unknown    *float64 `json:"unknown"`
}

// Breakdown is one upstream power breakdown snapshot. The payload carries
// either a consumption breakdown, a production breakdown, or both; the
// consumption side wins because it includes imports.
type Breakdown struct {
	Datetime        time.Time        `json:"datetime"`
	Zone            string           `json:"zone"`
	CarbonIntensity *float64         `json:"carbonIntensity"`
	Consumption     *SourceBreakdown `json:"powerConsumptionBreakdown"`
	Production      *SourceBreakdown `json:"powerProductionBreakdown"`
}

// rangeResponse is the envelope returned by the past-range endpoint.
type rangeResponse struct {
	Data []Breakdown `json:"data"`
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// ToMeasurement maps the snapshot onto the persisted measurement schema.
// Missing numeric fields default to 0. The returned flag reports whether the
// mapped generation figures came out all zero, which usually means the
// upstream payload shape drifted.
func (b *Breakdown) ToMeasurement(fallbackZone string) (entity.Measurement, bool) {
	src := b.Consumption
	if src == nil {
		src = b.Production
	}
	if src == nil {
		src = &SourceBreakdown{}
	}

	zone := b.Zone
	if zone == "" {
		zone = fallbackZone
	}

	m := entity.Measurement{
		Timestamp:       b.Datetime.UTC(),
		Zone:            zone,
		CarbonIntensity: deref(b.CarbonIntensity),
		SolarMW:         deref(src.Solar),
		WindMW:          deref(src.Wind),
		GasMW:           deref(src.Gas),
		HydroMW:         deref(src.Hydro),
		BiomassMW:       deref(src.Biomass),
		NuclearMW:       deref(src.Nuclear),
		GeothermalMW:    deref(src.Geothermal),
		UnknownMW:       deref(src.Unknown),
	}

	allZero := m.SolarMW == 0 && m.WindMW == 0 && m.GasMW == 0
	return m, allZero
}

// Client fetches power breakdown snapshots from the upstream API with the
// configured retry policy.
type Client struct {
	httpClient *http.Client
	cfg        config.IngestConfig
	recorder   metrics.MetricRecorder

	// sleep is swappable so retry backoff can be observed in tests without
	// waiting.
	sleep func(time.Duration)
}

// NewClient creates a Client from the ingestion configuration.
func NewClient(cfg config.IngestConfig, recorder metrics.MetricRecorder) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		cfg:        cfg,
		recorder:   recorder,
		sleep:      time.Sleep,
	}
}

// FetchLatest fetches the current snapshot for the configured zone.
func (c *Client) FetchLatest(ctx context.Context) (*Breakdown, error) {
	params := url.Values{}
	params.Set("zone", c.cfg.Zone)

	body, err := c.fetch(ctx, c.cfg.APIEndpoint+"/latest", params)
	if err != nil {
		return nil, err
	}

	var b Breakdown
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, exception.NewPipelineError("ingest", "failed to decode latest breakdown payload", err, false, false)
	}
	return &b, nil
}

// FetchRange fetches snapshots for [start, end). The span must stay within
// the source's maximum queryable range; callers chunk longer spans.
func (c *Client) FetchRange(ctx context.Context, start, end time.Time) ([]Breakdown, error) {
	params := url.Values{}
	params.Set("zone", c.cfg.Zone)
	params.Set("start", start.UTC().Format(time.RFC3339))
	params.Set("end", end.UTC().Format(time.RFC3339))

	body, err := c.fetch(ctx, c.cfg.APIEndpoint+"/past-range", params)
	if err != nil {
		return nil, err
	}

	var resp rangeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, exception.NewPipelineError("ingest", "failed to decode range breakdown payload", err, false, false)
	}
	return resp.Data, nil
}

// fetch performs one GET with the retry policy: HTTP 429 backs off linearly
// (base * attempt) and retries, any other non-200 aborts immediately, a
// transport failure waits a fixed delay and retries. Exhausting the attempt
// cap yields a retryable error, not a crash.
func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	maxAttempts := c.cfg.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, retryable, err := c.doRequest(ctx, endpoint, params, attempt)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, exception.NewPipelineError("ingest",
		fmt.Sprintf("fetch failed after %d attempts", maxAttempts), lastErr, false, true)
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, attempt int) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false, exception.NewPipelineError("ingest", "failed to build request", err, false, false)
	}
	req.Header.Set("auth-token", c.cfg.APIToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		logger.Errorf("Transport failure fetching %s: %v", endpoint, err)
		c.recorder.RecordFetchRetry(ctx, "transport")
		c.sleep(time.Duration(c.cfg.Retry.TransportDelaySeconds) * time.Second)
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, false, exception.NewPipelineError("ingest", "failed to read response body", readErr, false, false)
		}
		return data, false, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		wait := time.Duration(c.cfg.Retry.RateLimitBackoffSeconds*attempt) * time.Second
		logger.Warnf("Rate limited by telemetry source, waiting %s before retry", wait)
		c.recorder.RecordFetchRetry(ctx, "rate_limited")
		c.sleep(wait)
		return nil, true, fmt.Errorf("rate limited (attempt %d)", attempt)

	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, exception.NewPipelineError("ingest",
			fmt.Sprintf("telemetry source returned status %d: %s", resp.StatusCode, string(snippet)), nil, false, false)
	}
}
