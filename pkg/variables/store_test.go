package variables

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_GetSet(t *testing.T) {
	store := New(map[string]any{"seeded": "yes"})

	value, ok := store.Get("seeded")
	assert.True(t, ok)
	assert.Equal(t, "yes", value)

	_, ok = store.Get("missing")
	assert.False(t, ok)

	store.Set("count", 3.0)

	value, ok = store.Get("count")
	assert.True(t, ok)
	assert.InEpsilon(t, 3.0, value, 0.0001)
}

func TestStore_Interpolate(t *testing.T) {
	store := New(map[string]any{
		"name":    "report",
		"count":   float64(42),
		"enabled": true,
	})

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "single placeholder",
			template: "file: ${name}.txt",
			expected: "file: report.txt",
		},
		{
			name:     "multiple placeholders",
			template: "${name}-${count}",
			expected: "report-42",
		},
		{
			name:     "boolean value",
			template: "enabled=${enabled}",
			expected: "enabled=true",
		},
		{
			name:     "unresolved placeholder left verbatim",
			template: "missing: ${nope}",
			expected: "missing: ${nope}",
		},
		{
			name:     "no placeholders",
			template: "plain text",
			expected: "plain text",
		},
		{
			name:     "malformed placeholder untouched",
			template: "${not closed",
			expected: "${not closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, store.Interpolate(tt.template))
		})
	}
}

func TestStore_InterpolateParams_Nested(t *testing.T) {
	store := New(map[string]any{"dir": "/tmp/out", "user": "ana"})

	params := map[string]any{
		"path": "${dir}/result.txt",
		"meta": map[string]any{
			"owner": "${user}",
			"depth": 2,
		},
		"targets": []any{"${dir}/a", "${dir}/b"},
	}

	interpolated := store.InterpolateParams(params)

	assert.Equal(t, "/tmp/out/result.txt", interpolated["path"])

	meta, ok := interpolated["meta"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "ana", meta["owner"])
	assert.Equal(t, 2, meta["depth"])

	targets, ok := interpolated["targets"].([]any)
	assert.True(t, ok)
	assert.Equal(t, []any{"/tmp/out/a", "/tmp/out/b"}, targets)

	// Original params must stay untouched.
	assert.Equal(t, "${dir}/result.txt", params["path"])
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{name: "string", value: "abc", expected: "abc"},
		{name: "integer float", value: float64(7), expected: "7"},
		{name: "fractional float", value: 1.5, expected: "1.5"},
		{name: "bool", value: false, expected: "false"},
		{name: "nil", value: nil, expected: ""},
		{name: "list", value: []any{"a", "b"}, expected: `["a","b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Stringify(tt.value))
		})
	}
}
