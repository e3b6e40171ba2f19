package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskweave/taskweave/pkg/models"
)

// DefaultRetryBackoff is the fixed delay between step attempts. The
// backoff is deliberately flat and bounded: a step's worst-case wall time
// is (retryCount+1)*timeout + retryCount*backoff.
const DefaultRetryBackoff = 500 * time.Millisecond

// InvokeFunc performs one attempt of a step's side effect.
type InvokeFunc func(ctx context.Context) (map[string]any, error)

// GateFunc is consulted before each attempt; it blocks while the owning
// execution is paused and returns ErrCancelled once it is cancelled.
type GateFunc func(ctx context.Context) error

// Supervisor wraps a single step invocation with bounded time and a
// bounded retry count, producing a terminal StepResult. Each attempt gets
// the full step timeout again; the retry budget is independent of it.
type Supervisor struct {
	backoff time.Duration
	gate    GateFunc
	logger  *slog.Logger
}

func NewSupervisor(logger *slog.Logger, backoff time.Duration, gate GateFunc) *Supervisor {
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}

	return &Supervisor{backoff: backoff, gate: gate, logger: logger}
}

// Run attempts invoke under the step's timeout, retrying on failure until
// the step's retry count is exhausted. The returned result carries the
// number of retries actually consumed and, on failure, the last error.
// Cancellation of ctx interrupts an in-flight attempt and any backoff
// wait immediately.
func (s *Supervisor) Run(ctx context.Context, step *models.Step, invoke InvokeFunc) models.StepResult {
	started := time.Now()
	result := models.StepResult{StepID: step.ID, StepName: step.Name}

	var (
		output  map[string]any
		lastErr error
	)

	for attempt := 0; attempt <= step.RetryCount; attempt++ {
		if attempt > 0 {
			if err := s.wait(ctx); err != nil {
				lastErr = err

				break
			}
		}

		if s.gate != nil {
			if err := s.gate(ctx); err != nil {
				lastErr = err

				break
			}
		}

		// A retry is consumed only once its attempt actually starts; a
		// cancel during the backoff wait or gate leaves the count as is.
		result.Retries = attempt

		output, lastErr = s.attempt(ctx, step, invoke)
		if lastErr == nil {
			break
		}

		if errors.Is(lastErr, ErrCancelled) {
			break
		}

		s.logger.Warn("Step attempt failed",
			"step_id", step.ID,
			"attempt", attempt+1,
			"max_attempts", step.RetryCount+1,
			"error", lastErr,
		)
	}

	result.Duration = time.Since(started)

	if lastErr != nil {
		if step.RetryCount > 0 && result.Retries == step.RetryCount && !errors.Is(lastErr, ErrCancelled) {
			lastErr = fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr)
		}

		result.Status = models.StepStatusFailed
		result.Error = lastErr.Error()

		return result
	}

	result.Status = models.StepStatusSuccess
	result.Output = output

	return result
}

// attempt runs invoke under the per-attempt timeout. When the attempt
// hangs past its deadline the supervisor stops waiting and reports the
// timeout; the orphaned invocation may still finish in the background.
func (s *Supervisor) attempt(ctx context.Context, step *models.Step, invoke InvokeFunc) (map[string]any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, step.Timeout.Std())
	defer cancel()

	type outcome struct {
		output map[string]any
		err    error
	}

	done := make(chan outcome, 1)

	go func() {
		output, err := invoke(attemptCtx)
		done <- outcome{output: output, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if ctx.Err() != nil {
				return nil, ErrCancelled
			}

			return nil, &StepExecutionError{StepID: step.ID, Err: o.err}
		}

		return o.output, nil
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}

		return nil, fmt.Errorf("%w after %s", ErrStepTimeout, step.Timeout)
	}
}

func (s *Supervisor) wait(ctx context.Context) error {
	timer := time.NewTimer(s.backoff)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ErrCancelled
	}
}
