package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validWorkflow() *Workflow {
	return &Workflow{
		ID:   "wf-1",
		Name: "nightly cleanup",
		Steps: []*Step{
			{ID: "s1", Name: "remove temp files", Type: StepTypeFileOperation},
			{ID: "s2", Name: "notify", Type: StepTypeNotification},
		},
		Enabled: true,
	}
}

func TestWorkflow_Validate(t *testing.T) {
	t.Run("valid workflow passes", func(t *testing.T) {
		require.NoError(t, validWorkflow().Validate())
	})

	t.Run("rejects empty step list", func(t *testing.T) {
		workflow := validWorkflow()
		workflow.Steps = nil

		assert.ErrorIs(t, workflow.Validate(), ErrNoSteps)
	})

	t.Run("rejects duplicate step IDs", func(t *testing.T) {
		workflow := validWorkflow()
		workflow.Steps[1].ID = "s1"

		assert.ErrorIs(t, workflow.Validate(), ErrDuplicateStepIDs)
	})

	t.Run("rejects missing step ID", func(t *testing.T) {
		workflow := validWorkflow()
		workflow.Steps[0].ID = ""

		assert.ErrorIs(t, workflow.Validate(), ErrMissingStepID)
	})

	t.Run("rejects unknown step type", func(t *testing.T) {
		workflow := validWorkflow()
		workflow.Steps[0].Type = "teleport"

		assert.ErrorIs(t, workflow.Validate(), ErrUnknownStepType)
	})

	t.Run("rejects short name", func(t *testing.T) {
		workflow := validWorkflow()
		workflow.Name = "ab"

		assert.Error(t, workflow.Validate())
	})

	t.Run("fills default timeout", func(t *testing.T) {
		workflow := validWorkflow()
		require.NoError(t, workflow.Validate())

		for _, step := range workflow.Steps {
			assert.Equal(t, Duration(DefaultStepTimeout), step.Timeout)
		}
	})

	t.Run("keeps explicit timeout", func(t *testing.T) {
		workflow := validWorkflow()
		workflow.Steps[0].Timeout = Duration(2 * time.Minute)
		require.NoError(t, workflow.Validate())

		assert.Equal(t, Duration(2*time.Minute), workflow.Steps[0].Timeout)
	})
}

func TestWorkflow_StepByID(t *testing.T) {
	workflow := validWorkflow()

	step, ok := workflow.StepByID("s2")
	require.True(t, ok)
	assert.Equal(t, "notify", step.Name)

	_, ok = workflow.StepByID("nope")
	assert.False(t, ok)
}

func TestStep_OutputVariable(t *testing.T) {
	step := &Step{Parameters: map[string]any{"outputVariable": "result"}}

	name, ok := step.OutputVariable()
	require.True(t, ok)
	assert.Equal(t, "result", name)

	step.Parameters = map[string]any{"outputVariable": ""}
	_, ok = step.OutputVariable()
	assert.False(t, ok)

	step.Parameters = nil
	_, ok = step.OutputVariable()
	assert.False(t, ok)
}

func TestDuration_JSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Duration
	}{
		{name: "duration string", in: `"90s"`, want: Duration(90 * time.Second)},
		{name: "composite string", in: `"1m30s"`, want: Duration(90 * time.Second)},
		{name: "number of seconds", in: `5`, want: Duration(5 * time.Second)},
		{name: "fractional seconds", in: `0.5`, want: Duration(500 * time.Millisecond)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			require.NoError(t, json.Unmarshal([]byte(tt.in), &d))
			assert.Equal(t, tt.want, d)
		})
	}

	t.Run("rejects malformed string", func(t *testing.T) {
		var d Duration
		assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	})

	t.Run("marshals as string", func(t *testing.T) {
		data, err := json.Marshal(Duration(30 * time.Second))
		require.NoError(t, err)
		assert.Equal(t, `"30s"`, string(data))
	})
}
