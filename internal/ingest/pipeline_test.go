package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tigerroll/gridpulse/internal/config"
	"github.com/tigerroll/gridpulse/internal/domain/entity"
	"github.com/tigerroll/gridpulse/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMeasurementRepo struct {
	upserted  []entity.Measurement
	latest    *time.Time
	latestErr error
	batchErr  error
}

func (f *fakeMeasurementRepo) Upsert(_ context.Context, m *entity.Measurement) error {
	f.upserted = append(f.upserted, *m)
	return nil
}

func (f *fakeMeasurementRepo) UpsertBatch(_ context.Context, ms []entity.Measurement) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	f.upserted = append(f.upserted, ms...)
	return nil
}

func (f *fakeMeasurementRepo) LatestTimestamp(context.Context, string) (*time.Time, error) {
	return f.latest, f.latestErr
}

func (f *fakeMeasurementRepo) ListAscending(context.Context) ([]entity.Measurement, error) {
	return nil, nil
}

func (f *fakeMeasurementRepo) ListSince(context.Context, time.Time) ([]entity.Measurement, error) {
	return nil, nil
}

func (f *fakeMeasurementRepo) Latest(context.Context) (*entity.Measurement, error) {
	return nil, nil
}

func TestSplitChunks(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(25 * 24 * time.Hour)

	chunks := SplitChunks(start, end, 10)
	require.Len(t, chunks, 3)

	assert.Equal(t, start, chunks[0].Start)
	assert.Equal(t, start.Add(10*24*time.Hour), chunks[0].End)
	assert.Equal(t, chunks[0].End, chunks[1].Start)
	assert.Equal(t, start.Add(20*24*time.Hour), chunks[1].End)
	assert.Equal(t, chunks[1].End, chunks[2].Start)
	assert.Equal(t, end, chunks[2].End, "final chunk is clipped to the window end")
}

func TestSplitChunksEmptyWindow(t *testing.T) {
	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, SplitChunks(at, at, 10))
	assert.Empty(t, SplitChunks(at.Add(time.Hour), at, 10))
}

func TestSplitChunksSingle(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	chunks := SplitChunks(start, start.Add(3*24*time.Hour), 10)
	require.Len(t, chunks, 1)
	assert.Equal(t, start.Add(3*24*time.Hour), chunks[0].End)
}

func backfillPipeline(endpoint string, repo *fakeMeasurementRepo, now time.Time) *Pipeline {
	cfg := config.IngestConfig{
		APIEndpoint:       endpoint,
		Zone:              "US-CAL-LDWP",
		HistoryDays:       30,
		ChunkDays:         10,
		ChunkPauseSeconds: 1,
		TimeoutSeconds:    5,
		Retry:             config.RetryConfig{MaxAttempts: 1},
	}
	client := NewClient(cfg, metrics.NewNoOpMetricRecorder())
	client.sleep = func(time.Duration) {}

	p := NewPipeline(client, repo, cfg, metrics.NewNoOpMetricRecorder())
	p.sleep = func(time.Duration) {}
	p.now = func() time.Time { return now }
	return p
}

func TestBackfillStartFromLatestStored(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	latest := now.Add(-48 * time.Hour)

	var starts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		starts = append(starts, r.URL.Query().Get("start"))
		w.Write([]byte(`{"data":[{"datetime":"2025-05-30T02:00:00Z","powerProductionBreakdown":{"solar":10}}]}`))
	}))
	defer srv.Close()

	repo := &fakeMeasurementRepo{latest: &latest}
	p := backfillPipeline(srv.URL, repo, now)

	require.NoError(t, p.IngestBackfill(context.Background(), nil))
	require.Len(t, starts, 1)
	// One hour past the newest stored row, not the configured lookback.
	assert.Equal(t, latest.Add(time.Hour).Format(time.RFC3339), starts[0])
	assert.Len(t, repo.upserted, 1)
}

func TestBackfillForcedStartOverridesStore(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	latest := now.Add(-time.Hour)
	force := now.Add(-24 * time.Hour)

	var starts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		starts = append(starts, r.URL.Query().Get("start"))
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	p := backfillPipeline(srv.URL, &fakeMeasurementRepo{latest: &latest}, now)

	require.NoError(t, p.IngestBackfill(context.Background(), &force))
	require.Len(t, starts, 1)
	assert.Equal(t, force.Format(time.RFC3339), starts[0])
}

func TestBackfillEmptyWindowIsNoOp(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	latest := now // latest+1h is past now

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty backfill window")
	}))
	defer srv.Close()

	p := backfillPipeline(srv.URL, &fakeMeasurementRepo{latest: &latest}, now)
	assert.NoError(t, p.IngestBackfill(context.Background(), nil))
}

func TestBackfillSkipsFailedChunkAndContinues(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	force := now.Add(-25 * 24 * time.Hour) // 3 chunks

	call := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call++
		if call == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"data":[{"datetime":"2025-05-%02dT00:00:00Z","powerProductionBreakdown":{"solar":10}}]}`, 10+call)
	}))
	defer srv.Close()

	repo := &fakeMeasurementRepo{}
	p := backfillPipeline(srv.URL, repo, now)

	err := p.IngestBackfill(context.Background(), &force)
	require.Error(t, err, "the failed chunk must surface in the aggregate error")
	assert.Equal(t, 3, call, "remaining chunks still run after a failure")
	assert.Len(t, repo.upserted, 2, "rows from the healthy chunks are kept")
}

func TestIngestRealtime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"datetime":"2025-06-01T10:00:00Z","zone":"US-CAL-LDWP","powerConsumptionBreakdown":{"solar":400}}`))
	}))
	defer srv.Close()

	repo := &fakeMeasurementRepo{}
	p := backfillPipeline(srv.URL, repo, time.Now().UTC())

	require.NoError(t, p.IngestRealtime(context.Background()))
	require.Len(t, repo.upserted, 1)
	assert.Equal(t, 400.0, repo.upserted[0].SolarMW)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), repo.upserted[0].Timestamp)
}
