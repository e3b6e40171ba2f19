package history

import (
	"context"
	"sort"
	"sync"

	"github.com/taskweave/taskweave/pkg/models"
)

// MemoryStore keeps execution results in process memory. Used by tests
// and by one-shot CLI runs that do not need durable history.
type MemoryStore struct {
	mu      sync.Mutex
	results map[string][]*models.ExecutionResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string][]*models.ExecutionResult)}
}

func (s *MemoryStore) Append(_ context.Context, result *models.ExecutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[result.WorkflowID] = append(s.results[result.WorkflowID], result)

	return nil
}

func (s *MemoryStore) Query(_ context.Context, workflowID string) ([]*models.ExecutionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.results[workflowID]

	results := make([]*models.ExecutionResult, len(stored))
	copy(results, stored)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})

	return results, nil
}

func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}
