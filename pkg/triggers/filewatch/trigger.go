// Package filewatch provides the file-changed trigger: it polls a path's
// modification time and fires when it moves.
package filewatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/taskweave/taskweave/pkg/protocol"
)

const defaultInterval = 2 * time.Second

type Trigger struct {
	Path     string
	Interval time.Duration
	Enabled  bool

	callback protocol.TriggerCallback
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	path, _ := config["path"].(string)

	interval := defaultInterval

	if raw, ok := config["interval"].(string); ok && raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid watch interval %q: %w", raw, err)
		}

		interval = parsed
	}

	trigger := &Trigger{
		Path:     path,
		Interval: interval,
		Enabled:  true,
		stopCh:   make(chan struct{}),
		logger: logger.With(
			"module", "filewatch_trigger",
			"path", path,
		),
	}

	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.Path == "" {
		return errors.New("file-changed trigger path is required")
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	if !t.Enabled {
		t.logger.InfoContext(ctx, "Filewatch trigger is disabled")

		return nil
	}

	t.logger.InfoContext(ctx, "Starting filewatch trigger", "interval", t.Interval)
	t.callback = callback

	t.wg.Add(1)

	go t.watch(ctx)

	return nil
}

func (t *Trigger) watch(ctx context.Context) {
	defer t.wg.Done()

	lastModTime, lastExists := t.stat()

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			modTime, exists := t.stat()

			changed := exists != lastExists || (exists && !modTime.Equal(lastModTime))
			if changed {
				t.fire(ctx, exists, modTime)
			}

			lastModTime, lastExists = modTime, exists
		}
	}
}

func (t *Trigger) stat() (time.Time, bool) {
	info, err := os.Stat(t.Path)
	if err != nil {
		return time.Time{}, false
	}

	return info.ModTime(), true
}

func (t *Trigger) fire(ctx context.Context, exists bool, modTime time.Time) {
	t.logger.Info("Watched path changed", "exists", exists)

	data := map[string]any{
		"path":      t.Path,
		"exists":    exists,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if exists {
		data["modified"] = modTime.Format(time.RFC3339)
	}

	go func() {
		if err := t.callback(ctx, data); err != nil {
			t.logger.Error("Error starting run for filewatch trigger", "error", err)
		}
	}()
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping filewatch trigger")

	close(t.stopCh)
	t.wg.Wait()

	return nil
}
