// Package events defines the discrete progress events the execution
// controller emits instead of exposing mutable shared state. Hosts
// subscribe through the event bus.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskweave/taskweave/pkg/models"
)

type EventType string

const Topic = "taskweave.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionPausedEvent    EventType = "execution.paused"
	ExecutionResumedEvent   EventType = "execution.resumed"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionCancelledEvent EventType = "execution.cancelled"
	ExecutionFailedEvent    EventType = "execution.failed"

	StepStartedEvent  EventType = "step.started"
	StepFinishedEvent EventType = "step.finished"
	StepSkippedEvent  EventType = "step.skipped"
)

type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	WorkflowID  string    `json:"workflow_id"`
	ExecutionID string    `json:"execution_id"`
}

func NewBaseEvent(eventType EventType, workflowID, executionID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		WorkflowID:  workflowID,
		ExecutionID: executionID,
	}
}

type ExecutionStarted struct {
	BaseEvent

	WorkflowName string         `json:"workflow_name"`
	TotalSteps   int            `json:"total_steps"`
	Variables    map[string]any `json:"variables,omitempty"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type ExecutionPaused struct {
	BaseEvent

	StepIndex int `json:"step_index"`
}

func (e ExecutionPaused) GetType() EventType { return ExecutionPausedEvent }

type ExecutionResumed struct {
	BaseEvent

	StepIndex int `json:"step_index"`
}

func (e ExecutionResumed) GetType() EventType { return ExecutionResumedEvent }

// ExecutionFinished carries the terminal result for completed, cancelled
// and failed runs; the three event types share its shape.
type ExecutionFinished struct {
	BaseEvent

	Status         models.ExecutionStatus `json:"status"`
	DurationMs     int64                  `json:"duration_ms"`
	CompletedSteps int                    `json:"completed_steps"`
	TotalSteps     int                    `json:"total_steps"`
	Error          string                 `json:"error,omitempty"`
}

func (e ExecutionFinished) GetType() EventType {
	switch e.Status {
	case models.ExecutionStatusCancelled:
		return ExecutionCancelledEvent
	case models.ExecutionStatusFailed:
		return ExecutionFailedEvent
	default:
		return ExecutionCompletedEvent
	}
}

type StepStarted struct {
	BaseEvent

	StepID    string          `json:"step_id"`
	StepName  string          `json:"step_name"`
	StepType  models.StepType `json:"step_type"`
	StepIndex int             `json:"step_index"`
}

func (e StepStarted) GetType() EventType { return StepStartedEvent }

type StepFinished struct {
	BaseEvent

	StepID     string            `json:"step_id"`
	StepName   string            `json:"step_name"`
	Status     models.StepStatus `json:"status"`
	Retries    int               `json:"retries"`
	DurationMs int64             `json:"duration_ms"`
	Error      string            `json:"error,omitempty"`
}

func (e StepFinished) GetType() EventType { return StepFinishedEvent }

type StepSkipped struct {
	BaseEvent

	StepID    string `json:"step_id"`
	StepName  string `json:"step_name"`
	StepIndex int    `json:"step_index"`
}

func (e StepSkipped) GetType() EventType { return StepSkippedEvent }
