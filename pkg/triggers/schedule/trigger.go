// Package schedule provides the cron-based trigger.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taskweave/taskweave/pkg/protocol"
)

type Trigger struct {
	ID       string
	CronExpr string
	Enabled  bool

	cron     *cron.Cron
	callback protocol.TriggerCallback
	logger   *slog.Logger
}

func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	id, _ := config["id"].(string)
	cronExpr, _ := config["cron"].(string)

	trigger := &Trigger{
		ID:       id,
		CronExpr: cronExpr,
		Enabled:  true,
		logger: logger.With(
			"module", "schedule_trigger",
			"trigger_id", id,
			"cron", cronExpr,
		),
	}

	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.CronExpr == "" {
		return errors.New("schedule trigger cron expression is required")
	}

	if _, err := cron.ParseStandard(t.CronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", t.CronExpr, err)
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	if !t.Enabled {
		t.logger.InfoContext(ctx, "Schedule trigger is disabled")

		return nil
	}

	t.logger.InfoContext(ctx, "Starting schedule trigger")
	t.callback = callback

	t.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := t.cron.AddFunc(t.CronExpr, t.fire); err != nil {
		return fmt.Errorf("failed to add cron job for trigger %s: %w", t.ID, err)
	}

	t.cron.Start()

	return nil
}

func (t *Trigger) fire() {
	t.logger.Info("Cron schedule fired")

	data := map[string]any{
		"trigger_id": t.ID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}

	go func() {
		if err := t.callback(context.Background(), data); err != nil {
			t.logger.Error("Error starting run for schedule trigger", "error", err)
		}
	}()
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping schedule trigger")

	if t.cron != nil {
		t.cron.Stop()
	}

	return nil
}
