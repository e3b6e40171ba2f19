// Package notification implements the notification step. Messages are
// emitted through the structured logger and, when an event bus sink is
// attached at wiring time, forwarded there as well.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/protocol"
)

// Sink receives rendered notifications. The default factory logs only;
// daemons attach a bus-backed sink.
type Sink func(ctx context.Context, title, message, level string) error

type Factory struct {
	sink Sink
}

func NewFactory() *Factory {
	return &Factory{}
}

// NewFactoryWithSink forwards each notification to an external sink in
// addition to logging it.
func NewFactoryWithSink(sink Sink) *Factory {
	return &Factory{sink: sink}
}

func (*Factory) ID() models.StepType {
	return models.StepTypeNotification
}

func (f *Factory) Create(_ map[string]any) (protocol.StepExecutor, error) {
	return &Executor{sink: f.sink}, nil
}

type Executor struct {
	sink Sink
}

func (e *Executor) Execute(ctx context.Context, params map[string]any, logger *slog.Logger) (map[string]any, error) {
	message, _ := params["message"].(string)
	if message == "" {
		return nil, fmt.Errorf("notification step requires a %q parameter", "message")
	}

	title, _ := params["title"].(string)

	level, _ := params["level"].(string)
	if level == "" {
		level = "info"
	}

	logger = logger.With("title", title, "level", level)

	switch level {
	case "warn", "warning":
		logger.Warn(message)
	case "error":
		logger.Error(message)
	default:
		logger.Info(message)
	}

	if e.sink != nil {
		if err := e.sink(ctx, title, message, level); err != nil {
			return nil, fmt.Errorf("failed to deliver notification: %w", err)
		}
	}

	return map[string]any{"delivered": true, "message": message}, nil
}
