package file

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/persistence"
)

func sampleWorkflow(id string) *models.Workflow {
	return &models.Workflow{
		ID:   id,
		Name: "workflow " + id,
		Steps: []*models.Step{
			{ID: "s1", Name: "step one", Type: models.StepTypeDelay},
		},
		Enabled: true,
	}
}

func TestFilePersistence_SaveAndLoad(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := context.Background()

	workflow := sampleWorkflow("wf-1")
	require.NoError(t, p.SaveWorkflow(ctx, workflow))
	assert.False(t, workflow.CreatedAt.IsZero())

	loaded, err := p.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	require.Len(t, loaded.Steps, 1)
	assert.Equal(t, models.StepTypeDelay, loaded.Steps[0].Type)
}

func TestFilePersistence_ListAll(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := context.Background()

	require.NoError(t, p.SaveWorkflow(ctx, sampleWorkflow("wf-a")))
	require.NoError(t, p.SaveWorkflow(ctx, sampleWorkflow("wf-b")))

	workflows, err := p.Workflows(ctx)
	require.NoError(t, err)
	assert.Len(t, workflows, 2)
}

func TestFilePersistence_EmptyRoot(t *testing.T) {
	p := NewPersistence(t.TempDir())

	workflows, err := p.Workflows(context.Background())
	require.NoError(t, err)
	assert.Empty(t, workflows)
}

func TestFilePersistence_NotFound(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.WorkflowByID(context.Background(), "missing")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	err = p.DeleteWorkflow(context.Background(), "missing")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestFilePersistence_Delete(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := context.Background()

	require.NoError(t, p.SaveWorkflow(ctx, sampleWorkflow("wf-1")))
	require.NoError(t, p.DeleteWorkflow(ctx, "wf-1"))

	_, err := p.WorkflowByID(ctx, "wf-1")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestFilePersistence_FileURLPrefix(t *testing.T) {
	dir := t.TempDir()
	p := NewPersistence("file://" + dir)

	require.NoError(t, p.SaveWorkflow(context.Background(), sampleWorkflow("wf-1")))
	require.NoError(t, p.HealthCheck(context.Background()))
}
