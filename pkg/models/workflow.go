// Package models defines the core domain models for declarative workflow automation.
package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ExecutionStatus represents the lifecycle state of a workflow run.
type ExecutionStatus string

const (
	ExecutionStatusIdle      ExecutionStatus = "idle"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusPaused    ExecutionStatus = "paused"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// Terminal reports whether no further transitions are possible from s.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusCancelled || s == ExecutionStatusFailed
}

var (
	ErrNoSteps          = errors.New("workflow has no steps")
	ErrDuplicateStepIDs = errors.New("workflow step IDs must be unique")
)

// Workflow is the immutable-until-edited description of an automation.
// Edits happen by whole-definition replacement; the engine always operates
// on a snapshot and never mutates a definition mid-run.
type Workflow struct {
	ID          string         `json:"id"`
	Version     int64          `json:"version"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Steps       []*Step        `json:"steps"`
	Variables   map[string]any `json:"variables,omitempty"`
	Triggers    []*Trigger     `json:"triggers,omitempty"`
	Enabled     bool           `json:"enabled"`
	Tags        []string       `json:"tags,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural invariants required for an executable
// workflow: non-empty step sequence, unique step IDs and valid steps.
func (w *Workflow) Validate() error {
	if err := validate.Struct(w); err != nil {
		return fmt.Errorf("invalid workflow: %w", err)
	}

	if len(w.Steps) == 0 {
		return ErrNoSteps
	}

	seen := make(map[string]struct{}, len(w.Steps))

	for _, step := range w.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("invalid step %q: %w", step.ID, err)
		}

		if _, dup := seen[step.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateStepIDs, step.ID)
		}

		seen[step.ID] = struct{}{}
	}

	return nil
}

// StepByID returns the step with the given ID, if present.
func (w *Workflow) StepByID(id string) (*Step, bool) {
	for _, step := range w.Steps {
		if step.ID == id {
			return step, true
		}
	}

	return nil, false
}
