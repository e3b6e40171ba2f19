package models

import "time"

// ExecutionContext is the mutable state of one in-flight run. It is owned
// exclusively by its execution controller for the run's lifetime and is
// summarized into an ExecutionResult at the terminal transition.
type ExecutionContext struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	Status      ExecutionStatus `json:"status"`
	StepIndex   int             `json:"step_index"`
	Variables   map[string]any  `json:"variables,omitempty"`
	TriggerData map[string]any  `json:"trigger_data,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	Error       string          `json:"error,omitempty"`
}
