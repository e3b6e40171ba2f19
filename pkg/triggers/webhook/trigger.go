// Package webhook provides the HTTP webhook trigger. All webhook triggers
// of a process share one listener through the ServerManager.
package webhook

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/taskweave/taskweave/pkg/protocol"
)

type Trigger struct {
	Path    string
	Enabled bool

	manager *ServerManager
	logger  *slog.Logger
}

func NewTrigger(config map[string]any, manager *ServerManager, logger *slog.Logger) (*Trigger, error) {
	path, _ := config["path"].(string)
	if path == "" {
		path = "/webhook"
	}

	trigger := &Trigger{
		Path:    path,
		Enabled: true,
		manager: manager,
		logger: logger.With(
			"module", "webhook_trigger",
			"path", path,
		),
	}

	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if !strings.HasPrefix(t.Path, "/") {
		return errors.New("webhook trigger path must start with '/'")
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	if !t.Enabled {
		t.logger.InfoContext(ctx, "Webhook trigger is disabled")

		return nil
	}

	if t.manager == nil {
		return errors.New("webhook server manager not configured")
	}

	handler := &Handler{
		TriggerID: t.Path,
		Callback:  callback,
		Logger:    t.logger,
	}

	if err := t.manager.Register(t.Path, handler); err != nil {
		return err
	}

	t.logger.InfoContext(ctx, "Webhook trigger started")

	return nil
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping webhook trigger")

	if t.manager != nil {
		t.manager.Unregister(t.Path)
	}

	return nil
}
