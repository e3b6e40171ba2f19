package protocol

import (
	"context"
	"log/slog"

	"github.com/taskweave/taskweave/pkg/models"
)

// TriggerCallback is invoked by a trigger when it fires. The data map is
// merged into the execution's seed variables.
type TriggerCallback func(ctx context.Context, data map[string]any) error

// Trigger is a long-running watcher for one trigger definition. Start
// blocks only for setup; firing happens on the callback until ctx is
// cancelled or Stop is called.
type Trigger interface {
	Start(ctx context.Context, callback TriggerCallback) error
	Stop(ctx context.Context) error
	Validate() error
}

// TriggerFactory creates trigger instances for one trigger type tag.
type TriggerFactory interface {
	Create(config map[string]any, logger *slog.Logger) (Trigger, error)
	ID() models.TriggerType
}
