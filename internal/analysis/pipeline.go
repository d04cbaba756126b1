package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/gridpulse/internal/config"
	"github.com/tigerroll/gridpulse/internal/domain/entity"
	"github.com/tigerroll/gridpulse/internal/repository"
	"github.com/tigerroll/gridpulse/internal/support/logger"
)

// Pipeline derives the analysis table from raw measurements. A run is
// all-or-nothing: any structural failure aborts and propagates, because
// partial analysis state is worse than none. Too little history is a logged
// no-op, not a failure.
type Pipeline struct {
	measurements repository.MeasurementRepository
	results      repository.AnalysisRepository
	cfg          config.AnalysisConfig

	now func() time.Time
}

// NewPipeline creates a feature Pipeline.
func NewPipeline(measurements repository.MeasurementRepository, results repository.AnalysisRepository, cfg config.AnalysisConfig) *Pipeline {
	return &Pipeline{
		measurements: measurements,
		results:      results,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Run executes the feature pipeline: resample, decompose, correlate,
// normalize, persist.
func (p *Pipeline) Run(ctx context.Context) error {
	logger.Infof("Starting analysis pipeline")

	ms, err := p.measurements.ListAscending(ctx)
	if err != nil {
		return fmt.Errorf("failed to load measurements: %w", err)
	}
	if len(ms) < p.cfg.MinRows {
		logger.Warnf("Not enough data for analysis (%d rows, need %d), skipping run", len(ms), p.cfg.MinRows)
		return nil
	}

	grid := Resample(ms)
	n := len(grid)

	solar := make([]float64, n)
	wind := make([]float64, n)
	gas := make([]float64, n)
	for i, pt := range grid {
		solar[i] = pt.SolarMW
		wind[i] = pt.WindMW
		gas[i] = pt.GasMW
	}

	trend := make([]float64, n)
	seasonal := make([]float64, n)
	residual := make([]float64, n)
	if n >= p.cfg.Period*p.cfg.MinPeriods {
		d, err := Decompose(solar, p.cfg.Period)
		if err != nil {
			logger.Warnf("Seasonal decomposition failed, emitting zero components: %v", err)
		} else {
			trend = d.Trend
			seasonal = d.Seasonal
			residual = d.Residual
		}
	} else {
		logger.Infof("Only %d hourly rows (< %d), skipping decomposition", n, p.cfg.Period*p.cfg.MinPeriods)
	}

	now := p.now().UTC()
	correlations := CorrelationTable([]CorrelationColumn{
		{Name: "solar_mw", Values: solar},
		{Name: "wind_mw", Values: wind},
		{Name: "gas_mw", Values: gas},
		{Name: "solar_trend", Values: trend},
		{Name: "solar_seasonal", Values: seasonal},
		{Name: "solar_residual", Values: residual},
	}, now)
	if err := p.results.ReplaceCorrelations(ctx, correlations); err != nil {
		return fmt.Errorf("failed to persist correlations: %w", err)
	}
	logger.Debugf("Saved %d correlation records", len(correlations))

	solarNorm := MinMaxScale(solar)
	windNorm := MinMaxScale(wind)

	rows := make([]entity.AnalysisResult, n)
	for i := 0; i < n; i++ {
		rows[i] = entity.AnalysisResult{
			Timestamp:       grid[i].Timestamp,
			SolarMW:         solar[i],
			WindMW:          wind[i],
			GasMW:           gas[i],
			SolarTrend:      trend[i],
			SolarSeasonal:   seasonal[i],
			SolarResidual:   residual[i],
			SolarNormalized: solarNorm[i],
			WindNormalized:  windNorm[i],
		}
	}
	if err := p.results.ReplaceResults(ctx, rows); err != nil {
		return fmt.Errorf("failed to persist analysis results: %w", err)
	}

	logger.Infof("Analysis pipeline completed: %d rows", n)
	return nil
}
