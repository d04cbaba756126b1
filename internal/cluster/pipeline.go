package cluster

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/gridpulse/internal/config"
	"github.com/tigerroll/gridpulse/internal/domain/entity"
	"github.com/tigerroll/gridpulse/internal/repository"
	"github.com/tigerroll/gridpulse/internal/support/logger"
)

// Pipeline relabels historical rows with cluster ids. Measurements and
// predictions are clustered as two sequential tasks; a failure in one does
// not stop the other, and the run only fails when both do.
type Pipeline struct {
	measurements repository.MeasurementRepository
	predictions  repository.PredictionRepository
	labels       repository.ClusterRepository
	clusterer    Clusterer
	cfg          config.ClusterConfig
}

// NewPipeline creates a clustering Pipeline.
func NewPipeline(
	measurements repository.MeasurementRepository,
	predictions repository.PredictionRepository,
	labels repository.ClusterRepository,
	clusterer Clusterer,
	cfg config.ClusterConfig,
) *Pipeline {
	return &Pipeline{
		measurements: measurements,
		predictions:  predictions,
		labels:       labels,
		clusterer:    clusterer,
		cfg:          cfg,
	}
}

// Run executes both clustering tasks.
func (p *Pipeline) Run(ctx context.Context) error {
	logger.Infof("Starting clustering pipeline")

	var errs *multierror.Error
	failures := 0

	if err := p.clusterMeasurements(ctx); err != nil {
		logger.Errorf("Measurements clustering failed: %v", err)
		errs = multierror.Append(errs, err)
		failures++
	}
	if err := p.clusterPredictions(ctx); err != nil {
		logger.Errorf("Predictions clustering failed: %v", err)
		errs = multierror.Append(errs, err)
		failures++
	}

	if failures == 2 {
		return errs.ErrorOrNil()
	}
	logger.Infof("Clustering pipeline completed")
	return nil
}

// clusterMeasurements labels measurement rows on their standardized
// generation and carbon intensity figures.
func (p *Pipeline) clusterMeasurements(ctx context.Context) error {
	rows, err := p.measurements.ListAscending(ctx)
	if err != nil {
		return fmt.Errorf("failed to load measurements: %w", err)
	}
	if len(rows) == 0 {
		logger.Warnf("No measurement rows to cluster")
		return nil
	}

	matrix := make([][]float64, len(rows))
	for i, m := range rows {
		matrix[i] = []float64{m.SolarMW, m.WindMW, m.GasMW, m.CarbonIntensity}
	}

	assignments, err := p.assign(matrix, func(i, label int) repository.ClusterAssignment {
		return repository.ClusterAssignment{
			Key:       repository.FormatTimestampKey(rows[i].Timestamp),
			ClusterID: label,
		}
	})
	if err != nil {
		return err
	}

	updated, err := p.labels.ApplyAssignments(ctx, entity.Measurement{}.TableName(), "datetime", assignments)
	if err != nil {
		return fmt.Errorf("failed to apply measurement labels: %w", err)
	}
	logger.Infof("Measurements clustering labeled %d rows", updated)
	return nil
}

// clusterPredictions labels forecast rows on their standardized predicted
// output alone.
func (p *Pipeline) clusterPredictions(ctx context.Context) error {
	rows, err := p.predictions.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load predictions: %w", err)
	}
	if len(rows) == 0 {
		logger.Warnf("No prediction rows to cluster")
		return nil
	}

	matrix := make([][]float64, len(rows))
	for i, r := range rows {
		matrix[i] = []float64{r.PredictedMW}
	}

	assignments, err := p.assign(matrix, func(i, label int) repository.ClusterAssignment {
		return repository.ClusterAssignment{
			Key:       strconv.FormatUint(uint64(rows[i].ID), 10),
			ClusterID: label,
		}
	})
	if err != nil {
		return err
	}

	updated, err := p.labels.ApplyAssignments(ctx, entity.SolarPrediction{}.TableName(), "id", assignments)
	if err != nil {
		return fmt.Errorf("failed to apply prediction labels: %w", err)
	}
	logger.Infof("Predictions clustering labeled %d rows", updated)
	return nil
}

// assign standardizes the matrix, fits the clusterer, and maps each row's
// label to a staged assignment.
func (p *Pipeline) assign(matrix [][]float64, build func(i, label int) repository.ClusterAssignment) ([]repository.ClusterAssignment, error) {
	scaled := StandardScale(matrix)
	labels, err := p.clusterer.FitPredict(scaled)
	if err != nil {
		return nil, fmt.Errorf("clustering failed: %w", err)
	}

	assignments := make([]repository.ClusterAssignment, len(labels))
	for i, label := range labels {
		assignments[i] = build(i, label)
	}
	return assignments, nil
}
