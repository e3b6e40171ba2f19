// Package fileop implements the file-operation step: copy, move, delete,
// read and write on the local filesystem.
package fileop

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() models.StepType {
	return models.StepTypeFileOperation
}

func (*Factory) Create(config map[string]any) (protocol.StepExecutor, error) {
	operation, _ := config["operation"].(string)
	if operation == "" {
		return nil, fmt.Errorf("file-operation step requires an %q parameter", "operation")
	}

	return &Executor{operation: operation}, nil
}

type Executor struct {
	operation string
}

func (e *Executor) Execute(_ context.Context, params map[string]any, logger *slog.Logger) (map[string]any, error) {
	path, _ := params["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("file-operation step requires a %q parameter", "path")
	}

	logger.Info("Executing file operation", "operation", e.operation, "path", path)

	switch e.operation {
	case "read":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}

		return map[string]any{"value": string(data)}, nil

	case "write", "append":
		content, _ := params["content"].(string)

		return e.write(path, content)

	case "copy":
		destination, _ := params["destination"].(string)
		if destination == "" {
			return nil, fmt.Errorf("copy requires a %q parameter", "destination")
		}

		written, err := copyFile(path, destination)
		if err != nil {
			return nil, err
		}

		return map[string]any{"destination": destination, "bytes_copied": written}, nil

	case "move":
		destination, _ := params["destination"].(string)
		if destination == "" {
			return nil, fmt.Errorf("move requires a %q parameter", "destination")
		}

		if err := os.Rename(path, destination); err != nil {
			return nil, fmt.Errorf("failed to move %q to %q: %w", path, destination, err)
		}

		return map[string]any{"destination": destination}, nil

	case "delete":
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to delete %q: %w", path, err)
		}

		return map[string]any{"deleted": path}, nil

	case "mkdir":
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %q: %w", path, err)
		}

		return map[string]any{"created": path}, nil

	default:
		return nil, fmt.Errorf("unknown file operation %q", e.operation)
	}
}

func (e *Executor) write(path, content string) (map[string]any, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %q: %w", path, err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if e.operation == "append" {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer file.Close()

	written, err := file.WriteString(content)
	if err != nil {
		return nil, fmt.Errorf("failed to write %q: %w", path, err)
	}

	return map[string]any{"path": path, "bytes_written": written}, nil
}

func copyFile(source, destination string) (int64, error) {
	in, err := os.Open(source)
	if err != nil {
		return 0, fmt.Errorf("failed to open %q: %w", source, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory for %q: %w", destination, err)
	}

	out, err := os.Create(destination)
	if err != nil {
		return 0, fmt.Errorf("failed to create %q: %w", destination, err)
	}
	defer out.Close()

	written, err := io.Copy(out, in)
	if err != nil {
		return 0, fmt.Errorf("failed to copy %q to %q: %w", source, destination, err)
	}

	return written, nil
}
