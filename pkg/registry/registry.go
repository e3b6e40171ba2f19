// Package registry maps step-type and trigger-type tags to the factories
// that create their executors. The engine never special-cases a step type
// beyond this dispatch.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/protocol"
)

type Registry struct {
	logger            *slog.Logger
	executorFactories map[models.StepType]protocol.ExecutorFactory
	triggerFactories  map[models.TriggerType]protocol.TriggerFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:            logger,
		executorFactories: make(map[models.StepType]protocol.ExecutorFactory),
		triggerFactories:  make(map[models.TriggerType]protocol.TriggerFactory),
	}
}

func (r *Registry) RegisterExecutor(factory protocol.ExecutorFactory) {
	r.executorFactories[factory.ID()] = factory
}

func (r *Registry) RegisterTrigger(factory protocol.TriggerFactory) {
	r.triggerFactories[factory.ID()] = factory
}

// CreateExecutor builds a step executor for the given step type. An
// unregistered type is an error at dispatch, never a panic.
func (r *Registry) CreateExecutor(stepType models.StepType, config map[string]any) (protocol.StepExecutor, error) {
	factory, ok := r.executorFactories[stepType]
	if !ok {
		return nil, fmt.Errorf("step type %q not registered", stepType)
	}

	return factory.Create(config)
}

func (r *Registry) CreateTrigger(triggerType models.TriggerType, config map[string]any) (protocol.Trigger, error) {
	factory, ok := r.triggerFactories[triggerType]
	if !ok {
		return nil, fmt.Errorf("trigger type %q not registered", triggerType)
	}

	return factory.Create(config, r.logger)
}

// ExecutorTypes lists the registered step type tags.
func (r *Registry) ExecutorTypes() []models.StepType {
	types := make([]models.StepType, 0, len(r.executorFactories))
	for stepType := range r.executorFactories {
		types = append(types, stepType)
	}

	return types
}
