// Package history stores the append-only log of completed execution
// results, keyed by workflow identity. Results are immutable once
// appended; the write path is safe under concurrent append from several
// execution controllers.
package history

import (
	"context"

	"github.com/taskweave/taskweave/pkg/models"
)

type Store interface {
	// Append records one terminal execution result. It never mutates or
	// replaces an existing record.
	Append(ctx context.Context, result *models.ExecutionResult) error

	// Query returns the recorded results for a workflow, most recent
	// first.
	Query(ctx context.Context, workflowID string) ([]*models.ExecutionResult, error)

	Close(ctx context.Context) error
}
