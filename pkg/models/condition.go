package models

// ConditionType identifies the predicate a condition applies.
type ConditionType string

const (
	ConditionEquals      ConditionType = "equals"
	ConditionNotEquals   ConditionType = "notEquals"
	ConditionContains    ConditionType = "contains"
	ConditionGreaterThan ConditionType = "greaterThan"
	ConditionLessThan    ConditionType = "lessThan"
	ConditionFileExists  ConditionType = "fileExists"
	ConditionAppRunning  ConditionType = "appRunning"

	// ConditionExpression evaluates an expr-lang expression against the
	// current variable snapshot. Evaluation errors degrade to false.
	ConditionExpression ConditionType = "expression"
)

// Condition is a boolean predicate over execution state. Comparison
// conditions read the named variable from the store; fileExists and
// appRunning delegate to caller-supplied environment probes, since the
// engine itself holds no filesystem or process knowledge.
type Condition struct {
	Type       ConditionType `json:"type" validate:"required"`
	Variable   string        `json:"variable,omitempty"`
	Value      string        `json:"value,omitempty"`
	Expression string        `json:"expression,omitempty"`
}
