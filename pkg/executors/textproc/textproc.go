// Package textproc implements the text-processing step: string
// transformations over already-interpolated input.
package textproc

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/protocol"
	"github.com/taskweave/taskweave/pkg/variables"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() models.StepType {
	return models.StepTypeTextProcessing
}

func (*Factory) Create(config map[string]any) (protocol.StepExecutor, error) {
	operation, _ := config["operation"].(string)
	if operation == "" {
		return nil, fmt.Errorf("text-processing step requires an %q parameter", "operation")
	}

	return &Executor{operation: operation}, nil
}

type Executor struct {
	operation string
}

func (e *Executor) Execute(_ context.Context, params map[string]any, logger *slog.Logger) (map[string]any, error) {
	input := variables.Stringify(params["input"])

	logger.Info("Processing text", "operation", e.operation, "input_length", len(input))

	switch e.operation {
	case "uppercase":
		return output(strings.ToUpper(input)), nil

	case "lowercase":
		return output(strings.ToLower(input)), nil

	case "trim":
		return output(strings.TrimSpace(input)), nil

	case "replace":
		search := variables.Stringify(params["search"])
		if search == "" {
			return nil, fmt.Errorf("replace requires a %q parameter", "search")
		}

		replacement := variables.Stringify(params["replacement"])

		return output(strings.ReplaceAll(input, search, replacement)), nil

	case "split":
		separator := variables.Stringify(params["separator"])
		if separator == "" {
			separator = ","
		}

		parts := strings.Split(input, separator)
		values := make([]any, len(parts))

		for i, part := range parts {
			values[i] = part
		}

		return map[string]any{"value": values, "count": len(values)}, nil

	case "extract":
		pattern := variables.Stringify(params["pattern"])

		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid extract pattern %q: %w", pattern, err)
		}

		match := re.FindStringSubmatch(input)
		if match == nil {
			return map[string]any{"value": "", "matched": false}, nil
		}

		// With a capture group, return the first group; otherwise the
		// whole match.
		value := match[0]
		if len(match) > 1 {
			value = match[1]
		}

		return map[string]any{"value": value, "matched": true}, nil

	default:
		return nil, fmt.Errorf("unknown text operation %q", e.operation)
	}
}

func output(value string) map[string]any {
	return map[string]any{"value": value, "length": len(value)}
}
