package schedule

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/protocol"
)

var ErrConfigNil = errors.New("config cannot be nil")

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() models.TriggerType {
	return models.TriggerTypeScheduled
}

func (*Factory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	if config == nil {
		return nil, ErrConfigNil
	}

	trigger, err := NewTrigger(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule trigger: %w", err)
	}

	return trigger, nil
}
