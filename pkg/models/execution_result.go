package models

import "time"

// StepStatus is the terminal outcome of one attempted (or skipped) step.
type StepStatus string

const (
	StepStatusSuccess StepStatus = "success"
	StepStatusFailed  StepStatus = "failed"

	// StepStatusSkipped records a step whose gating condition evaluated
	// false. Skipped steps appear in the result list in sequence order;
	// they are never omitted.
	StepStatusSkipped StepStatus = "skipped"
)

// StepResult is the immutable record of one step of a run.
type StepResult struct {
	StepID   string         `json:"step_id"`
	StepName string         `json:"step_name"`
	Status   StepStatus     `json:"status"`
	Output   map[string]any `json:"output,omitempty"`
	Error    string         `json:"error,omitempty"`
	Retries  int            `json:"retries"`
	Duration time.Duration  `json:"duration"`
}

func (r StepResult) Success() bool {
	return r.Status == StepStatusSuccess
}

// ExecutionResult is the immutable historical record of a finished run.
// Once produced it is owned by the history store and never mutated again.
type ExecutionResult struct {
	ExecutionID    string          `json:"execution_id"`
	WorkflowID     string          `json:"workflow_id"`
	Status         ExecutionStatus `json:"status"`
	StartedAt      time.Time       `json:"started_at"`
	Duration       time.Duration   `json:"duration"`
	CompletedSteps int             `json:"completed_steps"`
	TotalSteps     int             `json:"total_steps"`
	Error          string          `json:"error,omitempty"`
	StepResults    []StepResult    `json:"step_results"`
}

func (r *ExecutionResult) Succeeded() bool {
	return r.Status == ExecutionStatusCompleted
}
