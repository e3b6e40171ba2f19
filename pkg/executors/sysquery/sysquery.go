// Package sysquery implements the system-query step: read-only probes of
// the host environment exposed as step output.
package sysquery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() models.StepType {
	return models.StepTypeSystemQuery
}

func (*Factory) Create(config map[string]any) (protocol.StepExecutor, error) {
	query, _ := config["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("system-query step requires a %q parameter", "query")
	}

	return &Executor{query: query}, nil
}

type Executor struct {
	query string
}

func (e *Executor) Execute(_ context.Context, params map[string]any, logger *slog.Logger) (map[string]any, error) {
	logger.Info("Querying system", "query", e.query)

	switch e.query {
	case "hostname":
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("failed to query hostname: %w", err)
		}

		return map[string]any{"value": hostname}, nil

	case "env":
		name, _ := params["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("env query requires a %q parameter", "name")
		}

		value, found := os.LookupEnv(name)

		return map[string]any{"value": value, "found": found}, nil

	case "time":
		layout, _ := params["format"].(string)
		if layout == "" {
			layout = time.RFC3339
		}

		return map[string]any{"value": time.Now().Format(layout)}, nil

	case "platform":
		return map[string]any{"value": runtime.GOOS, "arch": runtime.GOARCH}, nil

	case "file-info":
		path, _ := params["path"].(string)
		if path == "" {
			return nil, fmt.Errorf("file-info query requires a %q parameter", "path")
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %q: %w", path, err)
		}

		return map[string]any{
			"value":    info.Size(),
			"size":     info.Size(),
			"modified": info.ModTime().Format(time.RFC3339),
			"is_dir":   info.IsDir(),
		}, nil

	case "working-directory":
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to query working directory: %w", err)
		}

		return map[string]any{"value": wd}, nil

	default:
		return nil, fmt.Errorf("unknown system query %q", e.query)
	}
}
