// Package schema validates workflow documents against the canonical JSON
// schema before they are imported or saved.
package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var workflowSchema = map[string]any{
	"type":     "object",
	"required": []any{"id", "name", "steps"},
	"properties": map[string]any{
		"id":          map[string]any{"type": "string", "minLength": 1},
		"name":        map[string]any{"type": "string", "minLength": 3},
		"description": map[string]any{"type": "string"},
		"version":     map[string]any{"type": "integer"},
		"enabled":     map[string]any{"type": "boolean"},
		"variables":   map[string]any{"type": "object"},
		"tags": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"steps": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "name", "type"},
				"properties": map[string]any{
					"id":   map[string]any{"type": "string", "minLength": 1},
					"name": map[string]any{"type": "string", "minLength": 1},
					"type": map[string]any{
						"type": "string",
						"enum": []any{
							"file-operation", "app-control", "system-query",
							"user-input", "conditional", "delay",
							"text-processing", "notification",
						},
					},
					"parameters":        map[string]any{"type": "object"},
					"continue_on_error": map[string]any{"type": "boolean"},
					"retry_count":       map[string]any{"type": "integer", "minimum": 0},
					"timeout":           map[string]any{"type": []any{"string", "number"}},
					"condition": map[string]any{
						"type":     "object",
						"required": []any{"type"},
						"properties": map[string]any{
							"type": map[string]any{
								"type": "string",
								"enum": []any{
									"equals", "notEquals", "contains",
									"greaterThan", "lessThan",
									"fileExists", "appRunning", "expression",
								},
							},
							"variable":   map[string]any{"type": "string"},
							"value":      map[string]any{"type": "string"},
							"expression": map[string]any{"type": "string"},
						},
					},
				},
			},
		},
		"triggers": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "type"},
				"properties": map[string]any{
					"id": map[string]any{"type": "string", "minLength": 1},
					"type": map[string]any{
						"type": "string",
						"enum": []any{
							"manual", "scheduled", "fileChanged", "appLaunched",
							"systemEvent", "hotkey", "webhook", "queue",
						},
					},
					"configuration": map[string]any{"type": "object"},
					"enabled":       map[string]any{"type": "boolean"},
				},
			},
		},
	},
}

// ValidateDocument checks raw workflow JSON against the schema. A nil
// return means the document is structurally valid; semantic rules (unique
// step IDs, known executors) are checked by models.Workflow.Validate.
func ValidateDocument(document []byte) error {
	schemaLoader := gojsonschema.NewGoLoader(workflowSchema)
	dataLoader := gojsonschema.NewBytesLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate workflow document: %w", err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, issue := range result.Errors() {
			messages = append(messages, issue.String())
		}

		return fmt.Errorf("workflow document is invalid: %s", strings.Join(messages, "; "))
	}

	return nil
}
