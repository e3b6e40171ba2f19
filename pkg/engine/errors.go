// Package engine implements the workflow execution controller: the state
// machine that walks a step sequence under retry/timeout supervision with
// pause, resume and cancel.
package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning rejects a duplicate start for a workflow that
	// already has an active execution. The engine guarantees at most one
	// concurrent run per workflow id.
	ErrAlreadyRunning = errors.New("workflow execution already running")

	// ErrStepTimeout marks a step attempt that exceeded its timeout.
	ErrStepTimeout = errors.New("step attempt timed out")

	// ErrRetriesExhausted wraps the last attempt error once the retry
	// budget is spent.
	ErrRetriesExhausted = errors.New("step retries exhausted")

	// ErrCancelled marks work interrupted by an engine-level cancel.
	ErrCancelled = errors.New("execution cancelled")

	// ErrInvalidTransition rejects pause/resume/cancel calls that are not
	// legal in the execution's current state.
	ErrInvalidTransition = errors.New("invalid execution state transition")

	// ErrNoPendingInput is returned when input is provided for a step
	// that is not waiting for one.
	ErrNoPendingInput = errors.New("no step is waiting for input")
)

// StepExecutionError wraps a failure reported by a step executor
// collaborator.
type StepExecutionError struct {
	StepID string
	Err    error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %s execution failed: %v", e.StepID, e.Err)
}

func (e *StepExecutionError) Unwrap() error {
	return e.Err
}
