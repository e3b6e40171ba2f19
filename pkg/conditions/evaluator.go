// Package conditions evaluates boolean predicates over execution state.
// Evaluation never panics and never returns an error to the step loop: a
// malformed comparison degrades to false and simply does not gate the
// step open.
package conditions

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/variables"
)

// Probes supplies the live environment checks the engine itself cannot
// perform. Implementations must be synchronous and side-effect free.
type Probes interface {
	FileExists(path string) bool
	AppRunning(name string) bool
}

// NoProbes is used when the caller supplies no environment access; the
// fileExists and appRunning conditions then evaluate to false.
type NoProbes struct{}

func (NoProbes) FileExists(string) bool { return false }

func (NoProbes) AppRunning(string) bool { return false }

// Evaluate resolves a condition against the current variable store and
// the caller-supplied probes. A nil condition gates nothing and returns
// true.
func Evaluate(cond *models.Condition, store *variables.Store, probes Probes, logger *slog.Logger) bool {
	if cond == nil {
		return true
	}

	if probes == nil {
		probes = NoProbes{}
	}

	switch cond.Type {
	case models.ConditionEquals:
		return stringValue(store, cond.Variable) == cond.Value
	case models.ConditionNotEquals:
		return stringValue(store, cond.Variable) != cond.Value
	case models.ConditionContains:
		return contains(store, cond)
	case models.ConditionGreaterThan:
		return compareNumeric(store, cond, func(a, b float64) bool { return a > b })
	case models.ConditionLessThan:
		return compareNumeric(store, cond, func(a, b float64) bool { return a < b })
	case models.ConditionFileExists:
		return probes.FileExists(store.Interpolate(cond.Value))
	case models.ConditionAppRunning:
		return probes.AppRunning(store.Interpolate(cond.Value))
	case models.ConditionExpression:
		return evaluateExpression(cond.Expression, store, logger)
	default:
		if logger != nil {
			logger.Warn("Unknown condition type, evaluating to false", "type", cond.Type)
		}

		return false
	}
}

func stringValue(store *variables.Store, name string) string {
	value, ok := store.Get(name)
	if !ok {
		return ""
	}

	return variables.Stringify(value)
}

// contains checks substring containment for scalar values and membership
// for list values.
func contains(store *variables.Store, cond *models.Condition) bool {
	value, ok := store.Get(cond.Variable)
	if !ok {
		return false
	}

	if list, isList := value.([]any); isList {
		for _, item := range list {
			if variables.Stringify(item) == cond.Value {
				return true
			}
		}

		return false
	}

	return strings.Contains(variables.Stringify(value), cond.Value)
}

// compareNumeric coerces both operands to float64 and fails closed to
// false when either side is non-numeric.
func compareNumeric(store *variables.Store, cond *models.Condition, cmp func(a, b float64) bool) bool {
	left, ok := toFloat(stringValue(store, cond.Variable))
	if !ok {
		return false
	}

	right, ok := toFloat(cond.Value)
	if !ok {
		return false
	}

	return cmp(left, right)
}

func toFloat(s string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}

	return value, true
}

// evaluateExpression runs an expr-lang expression against the variable
// snapshot. Compile and runtime errors degrade to false.
func evaluateExpression(expression string, store *variables.Store, logger *slog.Logger) bool {
	if expression == "" {
		return false
	}

	env := store.Snapshot()

	program, err := expr.Compile(expression, expr.Env(env), expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		if logger != nil {
			logger.Warn("Condition expression failed to compile", "expression", expression, "error", err)
		}

		return false
	}

	output, err := expr.Run(program, env)
	if err != nil {
		if logger != nil {
			logger.Warn("Condition expression failed to evaluate", "expression", expression, "error", err)
		}

		return false
	}

	result, ok := output.(bool)

	return ok && result
}
