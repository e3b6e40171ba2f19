package models

import (
	"encoding/json"
	"fmt"
)

// ExportWorkflow renders a workflow definition as its canonical JSON
// document. The document shape mirrors the model exactly so that an
// export/import cycle is lossless.
func ExportWorkflow(w *Workflow) ([]byte, error) {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to export workflow %s: %w", w.ID, err)
	}

	return data, nil
}

// ImportWorkflow decodes and validates a workflow document produced by
// ExportWorkflow or authored by hand.
func ImportWorkflow(data []byte) (*Workflow, error) {
	var workflow Workflow

	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to parse workflow document: %w", err)
	}

	if err := workflow.Validate(); err != nil {
		return nil, err
	}

	return &workflow, nil
}
