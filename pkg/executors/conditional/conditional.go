// Package conditional implements the conditional step: it compares two
// already-interpolated values and exposes the verdict as its output, so
// later steps can branch on it through their own gating conditions.
package conditional

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/protocol"
	"github.com/taskweave/taskweave/pkg/variables"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() models.StepType {
	return models.StepTypeConditional
}

func (*Factory) Create(_ map[string]any) (protocol.StepExecutor, error) {
	return &Executor{}, nil
}

type Executor struct{}

func (e *Executor) Execute(_ context.Context, params map[string]any, logger *slog.Logger) (map[string]any, error) {
	operator, _ := params["operator"].(string)
	if operator == "" {
		operator = "equals"
	}

	left := variables.Stringify(params["left"])
	right := variables.Stringify(params["right"])

	result, err := compare(operator, left, right)
	if err != nil {
		return nil, err
	}

	logger.Info("Conditional evaluated", "operator", operator, "result", result)

	return map[string]any{"value": result}, nil
}

func compare(operator, left, right string) (bool, error) {
	switch operator {
	case "equals":
		return left == right, nil
	case "notEquals":
		return left != right, nil
	case "greaterThan", "lessThan":
		l, errL := strconv.ParseFloat(left, 64)
		r, errR := strconv.ParseFloat(right, 64)

		if errL != nil || errR != nil {
			return false, fmt.Errorf("operator %q requires numeric operands, got %q and %q", operator, left, right)
		}

		if operator == "greaterThan" {
			return l > r, nil
		}

		return l < r, nil
	default:
		return false, fmt.Errorf("unknown conditional operator %q", operator)
	}
}
