package models

import (
	"errors"
	"fmt"
	"time"
)

// StepType tags one unit of work with the executor capability it requires.
// The engine is polymorphic over this set: it only ever dispatches by tag.
type StepType string

const (
	StepTypeFileOperation  StepType = "file-operation"
	StepTypeAppControl     StepType = "app-control"
	StepTypeSystemQuery    StepType = "system-query"
	StepTypeUserInput      StepType = "user-input"
	StepTypeConditional    StepType = "conditional"
	StepTypeDelay          StepType = "delay"
	StepTypeTextProcessing StepType = "text-processing"
	StepTypeNotification   StepType = "notification"
)

// DefaultStepTimeout applies when a step definition omits its timeout.
// The supervisor has no "no-timeout" mode; every attempt is bounded.
const DefaultStepTimeout = 30 * time.Second

// OutputVariableParam is the reserved parameter naming the variable a
// step's output is stored under, making it visible to later steps.
const OutputVariableParam = "outputVariable"

var (
	ErrMissingStepID      = errors.New("step ID is required")
	ErrUnknownStepType    = errors.New("unknown step type")
	ErrNegativeRetryCount = errors.New("retry count must be >= 0")
)

var knownStepTypes = map[StepType]struct{}{
	StepTypeFileOperation:  {},
	StepTypeAppControl:     {},
	StepTypeSystemQuery:    {},
	StepTypeUserInput:      {},
	StepTypeConditional:    {},
	StepTypeDelay:          {},
	StepTypeTextProcessing: {},
	StepTypeNotification:   {},
}

// Step is one declared unit of work within a workflow. Parameters may
// contain ${var} placeholders which are interpolated against the variable
// store immediately before dispatch.
type Step struct {
	ID              string         `json:"id"              validate:"required"`
	Name            string         `json:"name"            validate:"required"`
	Type            StepType       `json:"type"            validate:"required"`
	Parameters      map[string]any `json:"parameters,omitempty"`
	ContinueOnError bool           `json:"continue_on_error"`
	RetryCount      int            `json:"retry_count"     validate:"min=0"`
	Timeout         Duration       `json:"timeout"`
	Condition       *Condition     `json:"condition,omitempty"`
}

// Validate checks a single step definition and fills in the default
// timeout so the retry/timeout supervisor never sees an unbounded step.
func (s *Step) Validate() error {
	if s.ID == "" {
		return ErrMissingStepID
	}

	if _, ok := knownStepTypes[s.Type]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStepType, s.Type)
	}

	if s.RetryCount < 0 {
		return ErrNegativeRetryCount
	}

	if s.Timeout <= 0 {
		s.Timeout = Duration(DefaultStepTimeout)
	}

	return nil
}

// OutputVariable returns the variable name the step's output should be
// stored under, if the step declares one.
func (s *Step) OutputVariable() (string, bool) {
	name, ok := s.Parameters[OutputVariableParam].(string)

	return name, ok && name != ""
}
