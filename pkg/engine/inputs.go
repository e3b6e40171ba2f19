package engine

import (
	"context"
	"sync"
)

// InputCoordinator parks user-input steps until an external value arrives.
// Await is a genuine suspend on a channel, not a poll; the waiting step
// consumes no resources beyond its goroutine.
type InputCoordinator struct {
	mu      sync.Mutex
	waiters map[string]chan any
}

func NewInputCoordinator() *InputCoordinator {
	return &InputCoordinator{waiters: make(map[string]chan any)}
}

func waiterKey(executionID, stepID string) string {
	return executionID + "/" + stepID
}

// Await blocks until Provide delivers a value for the step or ctx is
// cancelled (step timeout or engine cancel).
func (c *InputCoordinator) Await(ctx context.Context, executionID, stepID string) (any, error) {
	key := waiterKey(executionID, stepID)
	ch := make(chan any, 1)

	c.mu.Lock()
	c.waiters[key] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.waiters, key)
		c.mu.Unlock()
	}()

	select {
	case value := <-ch:
		return value, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Provide delivers the external value a user-input step is waiting for.
func (c *InputCoordinator) Provide(executionID, stepID string, value any) error {
	key := waiterKey(executionID, stepID)

	c.mu.Lock()
	ch, ok := c.waiters[key]
	delete(c.waiters, key)
	c.mu.Unlock()

	if !ok {
		return ErrNoPendingInput
	}

	ch <- value

	return nil
}
