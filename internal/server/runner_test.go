package server_test

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/tigerroll/gridpulse/internal/metrics"
	"github.com/tigerroll/gridpulse/internal/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner() *server.Runner {
	return server.NewRunner(metrics.NewNoOpMetricRecorder(), otel.Tracer("test"))
}

func TestRunnerRejectsConcurrentSamePipeline(t *testing.T) {
	r := newTestRunner()

	started := make(chan struct{})
	release := make(chan struct{})
	err := r.Launch("analysis", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)
	<-started

	err = r.Launch("analysis", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, server.ErrAlreadyRunning)

	// A different pipeline is not blocked by the held lock.
	done := make(chan struct{})
	err = r.Launch("ingestion", func(ctx context.Context) error {
		close(done)
		return nil
	})
	require.NoError(t, err)
	<-done

	close(release)
	assert.Eventually(t, func() bool {
		return r.Launch("analysis", func(ctx context.Context) error { return nil }) == nil
	}, time.Second, 10*time.Millisecond, "lock must be released after the run finishes")
}

func TestRunnerReleasesLockAfterFailure(t *testing.T) {
	r := newTestRunner()

	done := make(chan struct{})
	err := r.Launch("clustering", func(ctx context.Context) error {
		defer close(done)
		return context.DeadlineExceeded
	})
	require.NoError(t, err, "failures surface through logs, not the trigger response")
	<-done

	assert.Eventually(t, func() bool {
		return r.Launch("clustering", func(ctx context.Context) error { return nil }) == nil
	}, time.Second, 10*time.Millisecond)
}
