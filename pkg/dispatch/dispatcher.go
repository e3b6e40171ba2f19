// Package dispatch runs the trigger side of the system: it loads enabled
// workflow definitions, starts their declared triggers and requests a
// run when one fires. Starting runs is delegated so the dispatcher never
// owns execution state.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"

	"github.com/taskweave/taskweave/pkg/engine"
	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/persistence"
	"github.com/taskweave/taskweave/pkg/protocol"
	"github.com/taskweave/taskweave/pkg/registry"
	"github.com/taskweave/taskweave/pkg/triggers/webhook"
)

// StartFunc requests a run of a workflow with trigger data as seed
// variables. Implementations returning engine.ErrAlreadyRunning signal
// that a run is still in flight; the dispatcher drops the fire.
type StartFunc func(ctx context.Context, workflow *models.Workflow, seed map[string]any) error

type Dispatcher struct {
	id          string
	persistence persistence.Persistence
	registry    *registry.Registry
	start       StartFunc
	webhooks    *webhook.ServerManager
	logger      *slog.Logger

	mu      sync.Mutex
	running []protocol.Trigger
}

func NewDispatcher(
	id string,
	store persistence.Persistence,
	reg *registry.Registry,
	start StartFunc,
	webhooks *webhook.ServerManager,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		id:          id,
		persistence: store,
		registry:    reg,
		start:       start,
		webhooks:    webhooks,
		logger:      logger.With("module", "dispatcher", "dispatcher_id", id),
	}
}

// Start loads all enabled workflows and brings up their enabled triggers.
// It returns once setup is complete; triggers fire in the background until
// ctx is cancelled or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) error {
	if d.webhooks != nil {
		if err := d.webhooks.Start(ctx); err != nil {
			return err
		}
	}

	workflows, err := d.persistence.Workflows(ctx)
	if err != nil {
		return err
	}

	d.logger.InfoContext(ctx, "Fetched workflows", "count", len(workflows))

	for _, workflow := range workflows {
		if !workflow.Enabled {
			d.logger.InfoContext(ctx, "Skipping disabled workflow", "workflow_id", workflow.ID)

			continue
		}

		d.startWorkflowTriggers(ctx, workflow)
	}

	return nil
}

func (d *Dispatcher) startWorkflowTriggers(ctx context.Context, workflow *models.Workflow) {
	logger := d.logger.With("workflow_id", workflow.ID)

	for _, definition := range workflow.Triggers {
		if !definition.Enabled {
			logger.InfoContext(ctx, "Skipping disabled trigger", "trigger_id", definition.ID)

			continue
		}

		config := make(map[string]any)
		maps.Copy(config, definition.Configuration)
		config["id"] = definition.ID
		config["workflow_id"] = workflow.ID

		trigger, err := d.registry.CreateTrigger(definition.Type, config)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to create trigger", "trigger_id", definition.ID, "error", err)

			continue
		}

		callback := d.callback(workflow, definition.ID)

		if err := trigger.Start(ctx, callback); err != nil {
			logger.ErrorContext(ctx, "Failed to start trigger", "trigger_id", definition.ID, "error", err)

			continue
		}

		d.mu.Lock()
		d.running = append(d.running, trigger)
		d.mu.Unlock()

		logger.InfoContext(ctx, "Started trigger", "trigger_id", definition.ID, "trigger_type", string(definition.Type))
	}
}

func (d *Dispatcher) callback(workflow *models.Workflow, triggerID string) protocol.TriggerCallback {
	return func(ctx context.Context, data map[string]any) error {
		logger := d.logger.With("workflow_id", workflow.ID, "trigger_id", triggerID)
		logger.InfoContext(ctx, "Trigger fired")

		err := d.start(ctx, workflow, data)
		if errors.Is(err, engine.ErrAlreadyRunning) {
			// One run per workflow at a time; overlapping fires are dropped,
			// not queued.
			logger.WarnContext(ctx, "Run already in flight, dropping trigger fire")

			return nil
		}

		return err
	}
}

// Stop shuts down every running trigger and the shared webhook listener.
func (d *Dispatcher) Stop(ctx context.Context) {
	d.logger.InfoContext(ctx, "Stopping dispatcher")

	d.mu.Lock()
	running := d.running
	d.running = nil
	d.mu.Unlock()

	for _, trigger := range running {
		if err := trigger.Stop(ctx); err != nil {
			d.logger.ErrorContext(ctx, "Error stopping trigger", "error", err)
		}
	}

	if d.webhooks != nil {
		if err := d.webhooks.Stop(ctx); err != nil {
			d.logger.ErrorContext(ctx, "Error stopping webhook server", "error", err)
		}
	}
}
