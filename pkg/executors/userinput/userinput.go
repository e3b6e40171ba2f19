// Package userinput implements the user-input step: the run suspends at
// the step until an external caller provides a value, which becomes the
// step's output.
package userinput

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/protocol"
)

// Awaiter parks the calling step until input for it arrives. The engine's
// input coordinator satisfies this.
type Awaiter interface {
	Await(ctx context.Context, executionID, stepID string) (any, error)
}

type Factory struct {
	awaiter Awaiter
}

func NewFactory(awaiter Awaiter) *Factory {
	return &Factory{awaiter: awaiter}
}

func (*Factory) ID() models.StepType {
	return models.StepTypeUserInput
}

func (f *Factory) Create(_ map[string]any) (protocol.StepExecutor, error) {
	if f.awaiter == nil {
		return nil, fmt.Errorf("user-input steps require an input coordinator")
	}

	return &Executor{awaiter: f.awaiter}, nil
}

type Executor struct {
	awaiter Awaiter
}

func (e *Executor) Execute(ctx context.Context, params map[string]any, logger *slog.Logger) (map[string]any, error) {
	executionID, _ := params["execution_id"].(string)
	stepID, _ := params["step_id"].(string)

	if executionID == "" || stepID == "" {
		return nil, fmt.Errorf("user-input step is missing its dispatch identity")
	}

	prompt, _ := params["prompt"].(string)

	logger.Info("Waiting for user input", "prompt", prompt)

	// The wait is bounded by the step's attempt context; authors give
	// user-input steps a generous timeout.
	value, err := e.awaiter.Await(ctx, executionID, stepID)
	if err != nil {
		return nil, fmt.Errorf("no input received: %w", err)
	}

	logger.Info("User input received")

	return map[string]any{"value": value}, nil
}
