package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tigerroll/gridpulse/internal/support/logger"
)

// PrometheusRecorder is a Prometheus implementation of the MetricRecorder
// interface, backed by its own registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	pipelineDurationSeconds *prometheus.HistogramVec
	pipelineStatusCounter   *prometheus.CounterVec
	rowsWrittenCounter      *prometheus.CounterVec
	fetchRetryCounter       *prometheus.CounterVec
}

// NewPrometheusRecorder creates a new PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		pipelineDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gridpulse_pipeline_duration_seconds",
			Help:    "Duration of pipeline invocations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"pipeline", "status"}),
		pipelineStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridpulse_pipeline_runs_total",
			Help: "Total number of pipeline invocations by status.",
		}, []string{"pipeline", "status"}),
		rowsWrittenCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridpulse_rows_written_total",
			Help: "Total rows persisted by pipeline and table.",
		}, []string{"pipeline", "table"}),
		fetchRetryCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridpulse_fetch_retries_total",
			Help: "Total retried upstream fetches by reason.",
		}, []string{"reason"}),
	}

	registry.MustRegister(r.pipelineDurationSeconds)
	registry.MustRegister(r.pipelineStatusCounter)
	registry.MustRegister(r.rowsWrittenCounter)
	registry.MustRegister(r.fetchRetryCounter)

	return r
}

// GetRegistry returns the Prometheus registry for the /metrics handler.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordPipelineStart records the start of one pipeline invocation.
func (r *PrometheusRecorder) RecordPipelineStart(ctx context.Context, pipeline string) {
	logger.Debugf("Metrics: pipeline '%s' started.", pipeline)
}

// RecordPipelineEnd records the end of one pipeline invocation.
func (r *PrometheusRecorder) RecordPipelineEnd(ctx context.Context, pipeline string, duration time.Duration, status string) {
	r.pipelineDurationSeconds.WithLabelValues(pipeline, status).Observe(duration.Seconds())
	r.pipelineStatusCounter.WithLabelValues(pipeline, status).Inc()
	logger.Debugf("Metrics: pipeline '%s' ended. Duration: %.3fs, Status: %s", pipeline, duration.Seconds(), status)
}

// RecordRowsWritten records rows persisted by a pipeline.
func (r *PrometheusRecorder) RecordRowsWritten(ctx context.Context, pipeline, table string, count int) {
	r.rowsWrittenCounter.WithLabelValues(pipeline, table).Add(float64(count))
}

// RecordFetchRetry records one retried upstream fetch.
func (r *PrometheusRecorder) RecordFetchRetry(ctx context.Context, reason string) {
	r.fetchRetryCounter.WithLabelValues(reason).Inc()
}

var _ MetricRecorder = (*PrometheusRecorder)(nil)
