// Package file provides file-based persistence: one JSON document per
// workflow under <root>/workflows/.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/persistence"
)

type Persistence struct {
	root string
}

func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

func (p *Persistence) workflowsDir() string {
	return path.Join(p.root, "workflows")
}

func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	root := os.DirFS(p.workflowsDir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workflowID := strings.TrimSuffix(file, ".json")

		workflow, err := p.WorkflowByID(ctx, workflowID)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (p *Persistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	filePath := filepath.Clean(path.Join(p.workflowsDir(), id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrWorkflowNotFound, id)
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", id, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(body, &workflow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}

	return &workflow, nil
}

func (p *Persistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	if err := os.MkdirAll(p.workflowsDir(), 0o750); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	return os.WriteFile(path.Join(p.workflowsDir(), workflow.ID+".json"), data, 0o600)
}

func (p *Persistence) DeleteWorkflow(_ context.Context, id string) error {
	err := os.Remove(path.Join(p.workflowsDir(), id+".json"))
	if err != nil && os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", persistence.ErrWorkflowNotFound, id)
	}

	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return err
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}
