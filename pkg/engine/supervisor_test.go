package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskweave/taskweave/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testStep(retryCount int, timeout time.Duration) *models.Step {
	return &models.Step{
		ID:         "step-1",
		Name:       "test step",
		Type:       models.StepTypeNotification,
		RetryCount: retryCount,
		Timeout:    models.Duration(timeout),
	}
}

func TestSupervisor_SuccessFirstAttempt(t *testing.T) {
	supervisor := NewSupervisor(testLogger(), 5*time.Millisecond, nil)

	var calls atomic.Int32

	result := supervisor.Run(context.Background(), testStep(3, time.Second), func(_ context.Context) (map[string]any, error) {
		calls.Add(1)

		return map[string]any{"value": "done"}, nil
	})

	assert.Equal(t, models.StepStatusSuccess, result.Status)
	assert.Equal(t, 0, result.Retries)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "done", result.Output["value"])
}

func TestSupervisor_SucceedsAfterRetry(t *testing.T) {
	supervisor := NewSupervisor(testLogger(), 5*time.Millisecond, nil)

	var calls atomic.Int32

	result := supervisor.Run(context.Background(), testStep(3, time.Second), func(_ context.Context) (map[string]any, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("transient failure")
		}

		return map[string]any{"value": true}, nil
	})

	assert.Equal(t, models.StepStatusSuccess, result.Status)
	assert.Equal(t, 2, result.Retries)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSupervisor_RetriesExhausted(t *testing.T) {
	supervisor := NewSupervisor(testLogger(), 5*time.Millisecond, nil)

	var calls atomic.Int32

	result := supervisor.Run(context.Background(), testStep(2, time.Second), func(_ context.Context) (map[string]any, error) {
		calls.Add(1)

		return nil, errors.New("permanent failure")
	})

	assert.Equal(t, models.StepStatusFailed, result.Status)
	assert.Equal(t, 2, result.Retries)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, result.Error, "retries exhausted")
	assert.Contains(t, result.Error, "permanent failure")
}

func TestSupervisor_TimeoutPerAttempt(t *testing.T) {
	supervisor := NewSupervisor(testLogger(), 5*time.Millisecond, nil)

	var calls atomic.Int32

	// Executor hangs past the per-attempt timeout but honors ctx.
	result := supervisor.Run(context.Background(), testStep(2, 30*time.Millisecond), func(ctx context.Context) (map[string]any, error) {
		calls.Add(1)
		<-ctx.Done()

		return nil, ctx.Err()
	})

	assert.Equal(t, models.StepStatusFailed, result.Status)
	assert.Equal(t, 2, result.Retries)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, result.Error, "timed out")
}

func TestSupervisor_TimeoutAbandonsHungExecutor(t *testing.T) {
	supervisor := NewSupervisor(testLogger(), 5*time.Millisecond, nil)

	block := make(chan struct{})
	defer close(block)

	started := time.Now()

	// Executor ignores ctx entirely; the supervisor must stop waiting at
	// the deadline anyway.
	result := supervisor.Run(context.Background(), testStep(0, 30*time.Millisecond), func(_ context.Context) (map[string]any, error) {
		<-block

		return nil, nil
	})

	assert.Equal(t, models.StepStatusFailed, result.Status)
	assert.Less(t, time.Since(started), 500*time.Millisecond)
}

func TestSupervisor_CancellationInterruptsAttempt(t *testing.T) {
	supervisor := NewSupervisor(testLogger(), 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	var calls atomic.Int32

	started := time.Now()

	result := supervisor.Run(ctx, testStep(5, 10*time.Second), func(ctx context.Context) (map[string]any, error) {
		calls.Add(1)
		<-ctx.Done()

		return nil, ctx.Err()
	})

	require.Equal(t, models.StepStatusFailed, result.Status)
	assert.Equal(t, ErrCancelled.Error(), result.Error)
	// No retries once cancelled; the run returns promptly instead of
	// waiting out the 10s timeout.
	assert.Equal(t, int32(1), calls.Load())
	assert.Less(t, time.Since(started), time.Second)
}

func TestSupervisor_GateStopsRetries(t *testing.T) {
	gateErr := ErrCancelled
	supervisor := NewSupervisor(testLogger(), time.Millisecond, func(_ context.Context) error {
		return gateErr
	})

	var calls atomic.Int32

	result := supervisor.Run(context.Background(), testStep(3, time.Second), func(_ context.Context) (map[string]any, error) {
		calls.Add(1)

		return nil, errors.New("should not run")
	})

	assert.Equal(t, models.StepStatusFailed, result.Status)
	assert.Equal(t, int32(0), calls.Load())
}

func TestSupervisor_CancelDuringBackoffConsumesNoRetry(t *testing.T) {
	supervisor := NewSupervisor(testLogger(), 50*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32

	// The first attempt fails and cancels the run; the cancel lands in
	// the backoff wait, so no retry attempt ever starts and none may be
	// reported as consumed.
	result := supervisor.Run(ctx, testStep(3, time.Second), func(_ context.Context) (map[string]any, error) {
		calls.Add(1)
		cancel()

		return nil, errors.New("transient failure")
	})

	assert.Equal(t, models.StepStatusFailed, result.Status)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0, result.Retries)
	assert.Contains(t, result.Error, ErrCancelled.Error())
}
