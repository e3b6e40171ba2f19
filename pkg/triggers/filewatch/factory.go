package filewatch

import (
	"fmt"
	"log/slog"

	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() models.TriggerType {
	return models.TriggerTypeFileChanged
}

func (*Factory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	if config == nil {
		config = map[string]any{}
	}

	trigger, err := NewTrigger(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create filewatch trigger: %w", err)
	}

	return trigger, nil
}
