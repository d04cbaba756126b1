package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tigerroll/gridpulse/internal/config"
	"github.com/tigerroll/gridpulse/internal/domain/entity"
	"github.com/tigerroll/gridpulse/internal/domain/schema"
	"github.com/tigerroll/gridpulse/internal/repository"
	"github.com/tigerroll/gridpulse/internal/support/exception"
	"github.com/tigerroll/gridpulse/internal/support/logger"
)

// Pipeline produces and persists a 24-hour-ahead solar forecast from the
// most recent analysis rows.
type Pipeline struct {
	analysis    repository.AnalysisRepository
	predictions repository.PredictionRepository
	model       Forecaster
	cfg         config.ForecastConfig

	now func() time.Time
}

// NewPipeline creates a forecast Pipeline.
func NewPipeline(analysis repository.AnalysisRepository, predictions repository.PredictionRepository, model Forecaster, cfg config.ForecastConfig) *Pipeline {
	return &Pipeline{
		analysis:    analysis,
		predictions: predictions,
		model:       model,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Run executes one forecast: fetch the recent window, rebuild the feature
// vector, predict, clamp, append. A missing model fails fast and loudly; an
// insufficient window is a logged no-op.
func (p *Pipeline) Run(ctx context.Context) error {
	logger.Infof("Starting forecast pipeline")

	if !p.model.Available() {
		return exception.NewPipelineError("forecast", "model is not loaded, cannot predict", exception.ErrModelUnavailable, false, false)
	}

	window, err := p.analysis.RecentWindow(ctx, p.cfg.WindowSize)
	if err != nil {
		return fmt.Errorf("failed to load recent analysis window: %w", err)
	}
	// The store returns newest-first; lag computation needs ascending order.
	reverse(window)

	vector, anchor, err := BuildFeatureVector(window)
	if err != nil {
		if errors.Is(err, exception.ErrInsufficientData) {
			logger.Warnf("Not enough analysis history for forecasting, skipping run: %v", err)
			return nil
		}
		return err
	}

	values, err := p.model.Predict(vector)
	if err != nil {
		return fmt.Errorf("model prediction failed: %w", err)
	}
	if len(values) != schema.ForecastHorizons {
		return fmt.Errorf("model returned %d values, expected %d", len(values), schema.ForecastHorizons)
	}

	now := p.now().UTC()
	rows := make([]entity.SolarPrediction, schema.ForecastHorizons)
	for i, v := range values {
		if v < 0 {
			v = 0
		}
		rows[i] = entity.SolarPrediction{
			PredictionTime: now,
			TargetTime:     anchor.Add(time.Duration(i+1) * time.Hour),
			PredictedMW:    v,
			CreatedAt:      now,
		}
	}
	if err := p.predictions.AppendBatch(ctx, rows); err != nil {
		return fmt.Errorf("failed to persist forecast: %w", err)
	}

	logger.Infof("Forecast pipeline completed: %d horizons from anchor %s", len(rows), anchor)
	return nil
}

func reverse(rows []entity.AnalysisResult) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
