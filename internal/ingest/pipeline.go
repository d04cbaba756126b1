package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/gridpulse/internal/config"
	"github.com/tigerroll/gridpulse/internal/domain/entity"
	"github.com/tigerroll/gridpulse/internal/metrics"
	"github.com/tigerroll/gridpulse/internal/repository"
	"github.com/tigerroll/gridpulse/internal/support/logger"
)

// ChunkRange is one bounded span of a backfill request.
type ChunkRange struct {
	Start time.Time
	End   time.Time
}

// SplitChunks partitions [start, end) into sequential spans of at most
// chunkDays each. The final chunk is clipped to end.
func SplitChunks(start, end time.Time, chunkDays int) []ChunkRange {
	if chunkDays < 1 {
		chunkDays = 1
	}
	var chunks []ChunkRange
	for cur := start; cur.Before(end); {
		chunkEnd := cur.Add(time.Duration(chunkDays) * 24 * time.Hour)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		chunks = append(chunks, ChunkRange{Start: cur, End: chunkEnd})
		cur = chunkEnd
	}
	return chunks
}

// Pipeline ingests telemetry into the measurement store, either as a single
// realtime tick or as a chunked historical backfill.
type Pipeline struct {
	client   *Client
	repo     repository.MeasurementRepository
	cfg      config.IngestConfig
	recorder metrics.MetricRecorder

	sleep func(time.Duration)
	now   func() time.Time
}

// NewPipeline creates an ingestion Pipeline.
func NewPipeline(client *Client, repo repository.MeasurementRepository, cfg config.IngestConfig, recorder metrics.MetricRecorder) *Pipeline {
	return &Pipeline{
		client:   client,
		repo:     repo,
		cfg:      cfg,
		recorder: recorder,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// IngestRealtime fetches the current snapshot and upserts one row. A fetch
// that yields no data is an error for the caller to log; it never corrupts
// the store.
func (p *Pipeline) IngestRealtime(ctx context.Context) error {
	logger.Infof("Starting realtime ingestion for zone %s", p.cfg.Zone)

	b, err := p.client.FetchLatest(ctx)
	if err != nil {
		return fmt.Errorf("realtime fetch yielded no data: %w", err)
	}

	m, allZero := b.ToMeasurement(p.cfg.Zone)
	if allZero {
		logger.Warnf("Measurement at %s is all zeros, upstream payload shape may have drifted", m.Timestamp)
	}

	if err := p.repo.Upsert(ctx, &m); err != nil {
		return fmt.Errorf("failed to upsert realtime measurement: %w", err)
	}
	p.recorder.RecordRowsWritten(ctx, "ingestion", entity.Measurement{}.TableName(), 1)

	logger.Infof("Realtime measurement saved for %s", m.Timestamp)
	return nil
}

// IngestBackfill fills the store from an effective start up to now. The
// start is the forced override when given, else one hour past the newest
// stored timestamp, else the configured lookback when the store is empty.
// Each chunk is fetched and upserted independently; a chunk that fails after
// retries is recorded and skipped so the loop still advances.
func (p *Pipeline) IngestBackfill(ctx context.Context, forceStart *time.Time) error {
	end := p.now().UTC()

	start, err := p.effectiveStart(ctx, forceStart, end)
	if err != nil {
		return err
	}
	if !start.Before(end) {
		logger.Infof("Backfill window is empty, store is already current")
		return nil
	}

	chunks := SplitChunks(start, end, p.cfg.ChunkDays)
	logger.Infof("Starting backfill for zone %s: %s -> %s (%d chunks)", p.cfg.Zone, start, end, len(chunks))

	var errs *multierror.Error
	saved := 0
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			errs = multierror.Append(errs, ctx.Err())
			break
		}

		items, err := p.client.FetchRange(ctx, chunk.Start, chunk.End)
		if err != nil {
			logger.Errorf("Backfill chunk %s -> %s failed, skipping: %v", chunk.Start, chunk.End, err)
			errs = multierror.Append(errs, err)
		} else {
			batch := p.toBatch(items)
			if err := p.repo.UpsertBatch(ctx, batch); err != nil {
				logger.Errorf("Backfill chunk %s -> %s failed to persist: %v", chunk.Start, chunk.End, err)
				errs = multierror.Append(errs, err)
			} else {
				saved += len(batch)
				p.recorder.RecordRowsWritten(ctx, "ingestion", entity.Measurement{}.TableName(), len(batch))
				logger.Debugf("Backfill chunk %s -> %s saved %d rows", chunk.Start, chunk.End, len(batch))
			}
		}

		if i < len(chunks)-1 {
			p.sleep(time.Duration(p.cfg.ChunkPauseSeconds) * time.Second)
		}
	}

	logger.Infof("Backfill completed: %d rows saved", saved)
	return errs.ErrorOrNil()
}

func (p *Pipeline) effectiveStart(ctx context.Context, forceStart *time.Time, end time.Time) (time.Time, error) {
	if forceStart != nil {
		logger.Warnf("Forced backfill from %s", forceStart.UTC())
		return forceStart.UTC(), nil
	}

	latest, err := p.repo.LatestTimestamp(ctx, p.cfg.Zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to determine latest stored timestamp: %w", err)
	}
	if latest != nil {
		return latest.UTC().Add(time.Hour), nil
	}
	return end.AddDate(0, 0, -p.cfg.HistoryDays), nil
}

// toBatch maps fetched snapshots to measurements, logging the all-zero
// warning per affected row.
func (p *Pipeline) toBatch(items []Breakdown) []entity.Measurement {
	batch := make([]entity.Measurement, 0, len(items))
	for i := range items {
		m, allZero := items[i].ToMeasurement(p.cfg.Zone)
		if allZero {
			logger.Warnf("Measurement at %s is all zeros, upstream payload shape may have drifted", m.Timestamp)
		}
		batch = append(batch, m)
	}
	return batch
}
