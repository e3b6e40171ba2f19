package applaunch

import (
	"fmt"
	"log/slog"

	"github.com/taskweave/taskweave/pkg/conditions"
	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/protocol"
)

type Factory struct {
	probes conditions.Probes
}

func NewFactory(probes conditions.Probes) *Factory {
	return &Factory{probes: probes}
}

func (*Factory) ID() models.TriggerType {
	return models.TriggerTypeAppLaunched
}

func (f *Factory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	if config == nil {
		config = map[string]any{}
	}

	probes := f.probes
	if probes == nil {
		probes = conditions.NoProbes{}
	}

	trigger, err := NewTrigger(config, probes, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create applaunch trigger: %w", err)
	}

	return trigger, nil
}
