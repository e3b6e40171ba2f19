package webhook

import (
	"fmt"
	"log/slog"

	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/protocol"
)

type Factory struct {
	manager *ServerManager
}

func NewFactory(manager *ServerManager) *Factory {
	return &Factory{manager: manager}
}

func (*Factory) ID() models.TriggerType {
	return models.TriggerTypeWebhook
}

func (f *Factory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	if config == nil {
		config = map[string]any{}
	}

	trigger, err := NewTrigger(config, f.manager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook trigger: %w", err)
	}

	return trigger, nil
}
