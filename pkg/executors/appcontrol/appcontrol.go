// Package appcontrol implements the app-control step: starting, stopping
// and checking external processes through the operating system.
package appcontrol

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() models.StepType {
	return models.StepTypeAppControl
}

func (*Factory) Create(config map[string]any) (protocol.StepExecutor, error) {
	action, _ := config["action"].(string)
	if action == "" {
		return nil, fmt.Errorf("app-control step requires an %q parameter", "action")
	}

	return &Executor{action: action}, nil
}

type Executor struct {
	action string
}

func (e *Executor) Execute(ctx context.Context, params map[string]any, logger *slog.Logger) (map[string]any, error) {
	application, _ := params["application"].(string)
	if application == "" {
		return nil, fmt.Errorf("app-control step requires an %q parameter", "application")
	}

	logger.Info("Controlling application", "action", e.action, "application", application)

	switch e.action {
	case "start":
		return e.start(ctx, application, params)

	case "stop":
		// pkill matches on the full command line; a zero exit means at
		// least one process was signalled.
		if err := exec.CommandContext(ctx, "pkill", "-f", application).Run(); err != nil {
			return nil, fmt.Errorf("failed to stop %q: %w", application, err)
		}

		return map[string]any{"stopped": application}, nil

	case "check":
		running := exec.CommandContext(ctx, "pgrep", "-f", application).Run() == nil

		return map[string]any{"value": running, "application": application}, nil

	case "run":
		return e.runAndCapture(ctx, application, params)

	default:
		return nil, fmt.Errorf("unknown app-control action %q", e.action)
	}
}

// start launches the application detached: the step succeeds once the
// process has been spawned, without waiting for it to exit.
func (e *Executor) start(ctx context.Context, application string, params map[string]any) (map[string]any, error) {
	cmd := exec.CommandContext(ctx, application, arguments(params)...)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %q: %w", application, err)
	}

	pid := cmd.Process.Pid

	// Reap the child in the background so it never lingers as a zombie.
	go func() { _ = cmd.Wait() }()

	return map[string]any{"started": application, "pid": pid}, nil
}

// runAndCapture executes the application to completion and captures its
// combined output, bounded by the step's attempt context.
func (e *Executor) runAndCapture(ctx context.Context, application string, params map[string]any) (map[string]any, error) {
	cmd := exec.CommandContext(ctx, application, arguments(params)...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("command %q failed: %w: %s", application, err, strings.TrimSpace(string(out)))
	}

	return map[string]any{"value": strings.TrimSpace(string(out))}, nil
}

func arguments(params map[string]any) []string {
	raw, _ := params["arguments"].([]any)
	args := make([]string, 0, len(raw))

	for _, item := range raw {
		if s, ok := item.(string); ok {
			args = append(args, s)
		}
	}

	return args
}
