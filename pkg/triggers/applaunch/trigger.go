// Package applaunch provides the app-launched trigger: it polls for a
// process by name and fires when the process appears.
package applaunch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/taskweave/taskweave/pkg/conditions"
	"github.com/taskweave/taskweave/pkg/protocol"
)

const defaultInterval = 2 * time.Second

type Trigger struct {
	Application string
	Interval    time.Duration
	Enabled     bool

	probes   conditions.Probes
	callback protocol.TriggerCallback
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewTrigger(config map[string]any, probes conditions.Probes, logger *slog.Logger) (*Trigger, error) {
	application, _ := config["application"].(string)

	interval := defaultInterval

	if raw, ok := config["interval"].(string); ok && raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid poll interval %q: %w", raw, err)
		}

		interval = parsed
	}

	trigger := &Trigger{
		Application: application,
		Interval:    interval,
		Enabled:     true,
		probes:      probes,
		stopCh:      make(chan struct{}),
		logger: logger.With(
			"module", "applaunch_trigger",
			"application", application,
		),
	}

	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.Application == "" {
		return errors.New("app-launched trigger application name is required")
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	if !t.Enabled {
		t.logger.InfoContext(ctx, "Applaunch trigger is disabled")

		return nil
	}

	t.logger.InfoContext(ctx, "Starting applaunch trigger", "interval", t.Interval)
	t.callback = callback

	t.wg.Add(1)

	go t.watch(ctx)

	return nil
}

func (t *Trigger) watch(ctx context.Context) {
	defer t.wg.Done()

	wasRunning := t.probes.AppRunning(t.Application)

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			running := t.probes.AppRunning(t.Application)

			// Fire on the absent -> running edge only.
			if running && !wasRunning {
				t.fire(ctx)
			}

			wasRunning = running
		}
	}
}

func (t *Trigger) fire(ctx context.Context) {
	t.logger.Info("Application launched")

	data := map[string]any{
		"application": t.Application,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}

	go func() {
		if err := t.callback(ctx, data); err != nil {
			t.logger.Error("Error starting run for applaunch trigger", "error", err)
		}
	}()
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping applaunch trigger")

	close(t.stopCh)
	t.wg.Wait()

	return nil
}
