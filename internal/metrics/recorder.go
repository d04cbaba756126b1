// Package metrics provides metric recording and trace export for the
// GridPulse pipelines.
package metrics

import (
	"context"
	"time"
)

// Pipeline run status labels.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// MetricRecorder is an abstract interface for recording pipeline execution
// metrics, so the pipelines stay decoupled from the concrete backend.
type MetricRecorder interface {
	// RecordPipelineStart records the start of one pipeline invocation.
	RecordPipelineStart(ctx context.Context, pipeline string)
	// RecordPipelineEnd records the end of one pipeline invocation with its
	// duration and final status.
	RecordPipelineEnd(ctx context.Context, pipeline string, duration time.Duration, status string)
	// RecordRowsWritten records rows persisted by a pipeline to a table.
	RecordRowsWritten(ctx context.Context, pipeline, table string, count int)
	// RecordFetchRetry records one retried upstream fetch with its reason.
	RecordFetchRetry(ctx context.Context, reason string)
}

// NoOpMetricRecorder discards all metrics. It is the fallback when no real
// backend is wired.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordPipelineStart(ctx context.Context, pipeline string) {}
func (r *NoOpMetricRecorder) RecordPipelineEnd(ctx context.Context, pipeline string, duration time.Duration, status string) {
}
func (r *NoOpMetricRecorder) RecordRowsWritten(ctx context.Context, pipeline, table string, count int) {
}
func (r *NoOpMetricRecorder) RecordFetchRetry(ctx context.Context, reason string) {}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)
