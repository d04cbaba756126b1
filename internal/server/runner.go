// Package server exposes the read and trigger HTTP API over the pipeline
// outputs.
package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tigerroll/gridpulse/internal/metrics"
	"github.com/tigerroll/gridpulse/internal/support/logger"
)

// ErrAlreadyRunning is returned when a pipeline is triggered while a prior
// invocation of the same pipeline is still in flight.
var ErrAlreadyRunning = errors.New("pipeline is already running")

// Runner launches pipeline invocations in the background. Each pipeline
// holds an advisory in-process lock so two invocations of the same pipeline
// never overlap; a rejected trigger surfaces as ErrAlreadyRunning before
// the background work starts.
type Runner struct {
	recorder metrics.MetricRecorder
	tracer   trace.Tracer

	mu      sync.Mutex
	running map[string]bool
}

// NewRunner creates a Runner.
func NewRunner(recorder metrics.MetricRecorder, tracer trace.Tracer) *Runner {
	return &Runner{
		recorder: recorder,
		tracer:   tracer,
		running:  make(map[string]bool),
	}
}

// Launch starts fn as a background invocation of the named pipeline. The
// call returns immediately; completion and failure surface only through
// logs and metrics (fire-and-forget). Returns ErrAlreadyRunning when the
// pipeline's lock is held.
func (r *Runner) Launch(name string, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	if r.running[name] {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.running[name] = true
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.running, name)
			r.mu.Unlock()
		}()
		// The triggering request's context dies with the response; the run
		// owns its own lifetime.
		r.run(context.Background(), name, fn)
	}()
	return nil
}

func (r *Runner) run(ctx context.Context, name string, fn func(ctx context.Context) error) {
	runID := uuid.New().String()
	ctx, span := r.tracer.Start(ctx, "pipeline."+name,
		trace.WithAttributes(
			attribute.String("gridpulse.pipeline", name),
			attribute.String("gridpulse.run_id", runID)))
	defer span.End()

	logger.Infof("Pipeline '%s' run %s started", name, runID)
	r.recorder.RecordPipelineStart(ctx, name)
	start := time.Now()

	err := fn(ctx)
	duration := time.Since(start)

	status := metrics.StatusCompleted
	if err != nil {
		status = metrics.StatusFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Errorf("Pipeline '%s' run %s failed after %s: %v", name, runID, duration, err)
	} else {
		logger.Infof("Pipeline '%s' run %s completed in %s", name, runID, duration)
	}
	r.recorder.RecordPipelineEnd(ctx, name, duration, status)
}
