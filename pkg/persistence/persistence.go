// Package persistence provides the storage abstraction for workflow
// definitions.
package persistence

import (
	"context"
	"errors"

	"github.com/taskweave/taskweave/pkg/models"
)

var ErrWorkflowNotFound = errors.New("workflow not found")

type Persistence interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
