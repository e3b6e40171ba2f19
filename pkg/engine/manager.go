package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskweave/taskweave/pkg/conditions"
	"github.com/taskweave/taskweave/pkg/eventbus"
	"github.com/taskweave/taskweave/pkg/history"
	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/registry"
	"github.com/taskweave/taskweave/pkg/variables"
)

// Config carries the collaborators a manager passes to every execution.
// Dependencies arrive at construction, not via ambient global state, so
// tests can substitute fakes for all of them.
type Config struct {
	Registry *registry.Registry
	Probes   conditions.Probes
	History  history.Store
	EventBus eventbus.EventBus
	Logger   *slog.Logger
	Tracer   trace.Tracer

	// Inputs is the coordinator user-input steps suspend on. Sharing one
	// instance between the manager and the user-input executor factory is
	// what connects ProvideInput to a waiting step; nil creates a fresh
	// coordinator.
	Inputs *InputCoordinator

	// RetryBackoff overrides the supervisor's fixed delay between step
	// attempts. Zero selects DefaultRetryBackoff.
	RetryBackoff time.Duration
}

// Manager owns the set of active executions and enforces the at most one
// concurrent run per workflow id invariant, no matter how many times a
// trigger dispatcher fires. Distinct workflows run concurrently, each
// under its own controller.
type Manager struct {
	cfg    Config
	inputs *InputCoordinator

	mu     sync.Mutex
	active map[string]*Execution
}

func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Probes == nil {
		cfg.Probes = conditions.NoProbes{}
	}

	if cfg.History == nil {
		cfg.History = history.NewMemoryStore()
	}

	if cfg.Inputs == nil {
		cfg.Inputs = NewInputCoordinator()
	}

	return &Manager{
		cfg:    cfg,
		inputs: cfg.Inputs,
		active: make(map[string]*Execution),
	}
}

// StartExecution creates an execution context at step index 0 and starts
// the step loop. It fails with ErrAlreadyRunning when an execution for
// the same workflow id is still active.
func (m *Manager) StartExecution(ctx context.Context, workflow *models.Workflow, seed map[string]any) (*Execution, error) {
	if err := workflow.Validate(); err != nil {
		return nil, err
	}

	store := variables.New(workflow.Variables)
	for name, value := range seed {
		store.Set(name, value)
	}

	execution := &Execution{
		id:         "exec-" + uuid.New().String()[:8],
		workflow:   workflow,
		store:      store,
		registry:   m.cfg.Registry,
		probes:     m.cfg.Probes,
		historyLog: m.cfg.History,
		bus:        m.cfg.EventBus,
		tracer:     m.cfg.Tracer,
		inputs:     m.inputs,
		status:     models.ExecutionStatusIdle,
		done:       make(chan struct{}),
		onFinish:   m.release,
	}

	execution.logger = m.cfg.Logger.With(
		"module", "engine",
		"workflow_id", workflow.ID,
		"execution_id", execution.id,
	)
	execution.supervisor = NewSupervisor(execution.logger, m.cfg.RetryBackoff, execution.gate)

	m.mu.Lock()

	if _, running := m.active[workflow.ID]; running {
		m.mu.Unlock()

		return nil, fmt.Errorf("%w: workflow %s", ErrAlreadyRunning, workflow.ID)
	}

	m.active[workflow.ID] = execution
	m.mu.Unlock()

	go execution.run(ctx)

	return execution, nil
}

// ActiveExecution returns the running or paused execution for a workflow,
// if any.
func (m *Manager) ActiveExecution(workflowID string) (*Execution, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	execution, ok := m.active[workflowID]

	return execution, ok
}

// ProvideInput delivers an external value to a suspended user-input step.
func (m *Manager) ProvideInput(executionID, stepID string, value any) error {
	return m.inputs.Provide(executionID, stepID, value)
}

// Inputs exposes the coordinator so executor factories can share it.
func (m *Manager) Inputs() *InputCoordinator {
	return m.inputs
}

func (m *Manager) release(execution *Execution) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Only remove the entry if it still belongs to this execution; a new
	// run may have been admitted in the meantime.
	if current, ok := m.active[execution.workflow.ID]; ok && current == execution {
		delete(m.active, execution.workflow.ID)
	}
}
