package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/taskweave/taskweave/pkg/models"
)

// FileStore persists one JSON file per execution result under
// <root>/history/<workflowID>/. A single mutex serializes appends; reads
// go straight to the filesystem.
type FileStore struct {
	root string
	mu   sync.Mutex
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: strings.Replace(root, "file://", "", 1)}
}

func (s *FileStore) Append(_ context.Context, result *models.ExecutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, "history", result.WorkflowID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode execution result %s: %w", result.ExecutionID, err)
	}

	// StartedAt leads the file name so lexical order matches run order.
	name := fmt.Sprintf("%020d-%s.json", result.StartedAt.UnixNano(), result.ExecutionID)

	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write execution result %s: %w", result.ExecutionID, err)
	}

	return nil
}

func (s *FileStore) Query(_ context.Context, workflowID string) ([]*models.ExecutionResult, error) {
	dir := filepath.Join(s.root, "history", workflowID)

	entries, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil || len(entries) == 0 {
		return []*models.ExecutionResult{}, nil
	}

	sort.Sort(sort.Reverse(sort.StringSlice(entries)))

	results := make([]*models.ExecutionResult, 0, len(entries))

	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(dir, entry))
		if err != nil {
			return nil, fmt.Errorf("failed to read execution result %s: %w", entry, err)
		}

		var result models.ExecutionResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("failed to decode execution result %s: %w", entry, err)
		}

		results = append(results, &result)
	}

	return results, nil
}

func (s *FileStore) Close(_ context.Context) error {
	return nil
}
