package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/gridpulse/internal/config"
	"github.com/tigerroll/gridpulse/internal/domain/entity"
	"github.com/tigerroll/gridpulse/internal/repository"
	"github.com/tigerroll/gridpulse/internal/support/logger"
)

// Exporter snapshots the analysis table to a Parquet object after each
// feature pipeline run. Because that table is fully replaced per run, the
// snapshots are the only cumulative record of past analysis windows.
type Exporter struct {
	analysis repository.AnalysisRepository
	store    ObjectStore
	cfg      config.ExportConfig

	now func() time.Time
}

// NewExporter creates an Exporter.
func NewExporter(analysis repository.AnalysisRepository, store ObjectStore, cfg config.ExportConfig) *Exporter {
	return &Exporter{
		analysis: analysis,
		store:    store,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run writes one snapshot of the current analysis table. An empty table is
// a logged no-op.
func (e *Exporter) Run(ctx context.Context) error {
	if !e.cfg.Enabled {
		logger.Debugf("Analysis export disabled, skipping")
		return nil
	}

	rows, err := e.analysis.ListAllAscending(ctx)
	if err != nil {
		return fmt.Errorf("failed to load analysis rows for export: %w", err)
	}
	if len(rows) == 0 {
		logger.Infof("No analysis rows to export, skipping snapshot")
		return nil
	}

	snapshots := make([]entity.AnalysisSnapshot, len(rows))
	for i, r := range rows {
		snapshots[i] = entity.AnalysisSnapshot{
			Timestamp:       r.Timestamp.UTC().UnixMilli(),
			SolarMW:         r.SolarMW,
			WindMW:          r.WindMW,
			GasMW:           r.GasMW,
			SolarTrend:      r.SolarTrend,
			SolarSeasonal:   r.SolarSeasonal,
			SolarResidual:   r.SolarResidual,
			SolarNormalized: r.SolarNormalized,
			WindNormalized:  r.WindNormalized,
		}
	}

	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(entity.AnalysisSnapshot), int64(len(snapshots)))
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range snapshots {
		if err := pw.Write(snapshots[i]); err != nil {
			return fmt.Errorf("failed to write snapshot row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}

	now := e.now().UTC()
	objectName := fmt.Sprintf("dt=%s/analysis_%s.parquet", now.Format("2006-01-02"), now.Format("20060102150405"))
	if err := e.store.Upload(ctx, objectName, buf, "application/octet-stream"); err != nil {
		return fmt.Errorf("failed to upload analysis snapshot: %w", err)
	}

	logger.Infof("Exported %d analysis rows to %s", len(snapshots), objectName)
	return nil
}
