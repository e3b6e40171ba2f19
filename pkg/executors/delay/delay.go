// Package delay implements the delay step: it pauses the run for a
// configured duration while staying responsive to cancellation.
package delay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() models.StepType {
	return models.StepTypeDelay
}

func (*Factory) Create(_ map[string]any) (protocol.StepExecutor, error) {
	return &Executor{}, nil
}

type Executor struct{}

func (e *Executor) Execute(ctx context.Context, params map[string]any, logger *slog.Logger) (map[string]any, error) {
	duration, err := parseDuration(params["duration"])
	if err != nil {
		return nil, err
	}

	logger.Info("Delaying", "duration", duration)

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return map[string]any{"delayed": duration.String()}, nil
}

// parseDuration accepts a duration string ("1m30s") or a number of
// seconds, matching the workflow document's duration convention.
func parseDuration(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case string:
		duration, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid delay duration %q: %w", v, err)
		}

		return duration, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case int:
		return time.Duration(v) * time.Second, nil
	case nil:
		return 0, fmt.Errorf("delay step requires a %q parameter", "duration")
	default:
		return 0, fmt.Errorf("invalid delay duration %v (%T)", raw, raw)
	}
}
