package models

// TriggerType identifies what kind of condition starts a run. The engine
// only consumes triggers as metadata; firing is the dispatcher's job.
type TriggerType string

const (
	TriggerTypeManual      TriggerType = "manual"
	TriggerTypeScheduled   TriggerType = "scheduled"
	TriggerTypeFileChanged TriggerType = "fileChanged"
	TriggerTypeAppLaunched TriggerType = "appLaunched"
	TriggerTypeSystemEvent TriggerType = "systemEvent"
	TriggerTypeHotkey      TriggerType = "hotkey"
	TriggerTypeWebhook     TriggerType = "webhook"
	TriggerTypeQueue       TriggerType = "queue"
)

// Trigger is the definition of what starts a run of its workflow.
type Trigger struct {
	ID            string         `json:"id"   validate:"required"`
	Type          TriggerType    `json:"type" validate:"required"`
	Configuration map[string]any `json:"configuration,omitempty"`
	Enabled       bool           `json:"enabled"`
}
