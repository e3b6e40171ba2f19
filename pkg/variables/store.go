// Package variables implements the per-execution variable store and the
// ${name} interpolation applied to step parameters.
package variables

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.-]*)\}`)

// Store maps variable names to typed values for a single execution.
// Values are one of: string, float64, bool, []any or map[string]any.
// The store is owned exclusively by its execution controller; steps of
// one run execute sequentially, so no internal locking is needed.
type Store struct {
	values map[string]any
}

// New creates a store seeded with the given initial variables.
func New(seed map[string]any) *Store {
	values := make(map[string]any, len(seed))
	for name, value := range seed {
		values[name] = value
	}

	return &Store{values: values}
}

func (s *Store) Get(name string) (any, bool) {
	value, ok := s.values[name]

	return value, ok
}

func (s *Store) Set(name string, value any) {
	s.values[name] = value
}

// Snapshot returns a shallow copy of the current variable mapping.
func (s *Store) Snapshot() map[string]any {
	snapshot := make(map[string]any, len(s.values))
	for name, value := range s.values {
		snapshot[name] = value
	}

	return snapshot
}

// Interpolate substitutes every ${name} occurrence in the template with
// the stringified current value of that variable. Unresolved placeholders
// are left verbatim so a malformed reference degrades to visible text
// instead of aborting the run. Interpolate never fails.
func (s *Store) Interpolate(template string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]

		value, ok := s.values[name]
		if !ok {
			return match
		}

		return Stringify(value)
	})
}

// InterpolateParams applies Interpolate to every string leaf of a
// parameter mapping, recursing into nested maps and lists. The input is
// never mutated; interpolation happens on a copy taken at dispatch time.
func (s *Store) InterpolateParams(params map[string]any) map[string]any {
	result := make(map[string]any, len(params))
	for key, value := range params {
		result[key] = s.interpolateValue(value)
	}

	return result
}

func (s *Store) interpolateValue(value any) any {
	switch v := value.(type) {
	case string:
		return s.Interpolate(v)
	case map[string]any:
		return s.InterpolateParams(v)
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = s.interpolateValue(item)
		}

		return items
	default:
		return value
	}
}

// Stringify renders a variable value the way interpolation and condition
// comparison see it. Numbers drop a trailing ".0" so integer-valued
// floats compare naturally against literals like "42".
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(data)
	}
}
