// Package protocol defines the boundary contracts between the execution
// engine and its collaborators: step executors and trigger sources.
package protocol

import (
	"context"
	"log/slog"

	"github.com/taskweave/taskweave/pkg/models"
)

// StepExecutor performs the actual side effect of one step type and
// returns its output mapping or a failure. Executors receive parameters
// already interpolated against the variable store. They must honor ctx
// cancellation and must not retry internally; retrying is the
// supervisor's job.
type StepExecutor interface {
	Execute(ctx context.Context, params map[string]any, logger *slog.Logger) (map[string]any, error)
}

// ExecutorFactory creates step executor instances for one step type tag.
type ExecutorFactory interface {
	Create(config map[string]any) (StepExecutor, error)
	ID() models.StepType
}
