// Package web provides the REST handlers for workflow management and
// execution control.
package web

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/taskweave/taskweave/pkg/engine"
	"github.com/taskweave/taskweave/pkg/history"
	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/persistence"
	"github.com/taskweave/taskweave/pkg/schema"
)

type APIHandlers struct {
	persistence persistence.Persistence
	manager     *engine.Manager
	history     history.Store
	logger      *slog.Logger
}

func NewAPIHandlers(
	store persistence.Persistence,
	manager *engine.Manager,
	historyStore history.Store,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		persistence: store,
		manager:     manager,
		history:     historyStore,
		logger:      logger.With("module", "web"),
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.Workflows(c.Context())
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(workflow)
}

// CreateWorkflow imports a workflow document: schema check first, then
// the model-level structural validation.
func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	body := c.Body()

	if err := schema.ValidateDocument(body); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := models.ImportWorkflow(body)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.SaveWorkflow(c.Context(), workflow); err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

// UpdateWorkflow replaces a workflow definition wholesale. Edits never
// touch a running execution, which operates on its own snapshot.
func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")

	if _, err := h.persistence.WorkflowByID(c.Context(), id); err != nil {
		return handleError(c, err)
	}

	body := c.Body()

	if err := schema.ValidateDocument(body); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := models.ImportWorkflow(body)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if workflow.ID != id {
		return badRequest(c, "workflow id in document does not match path")
	}

	workflow.Version++

	if err := h.persistence.SaveWorkflow(c.Context(), workflow); err != nil {
		return handleError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.persistence.DeleteWorkflow(c.Context(), c.Params("id")); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExportWorkflow returns the canonical JSON document for a workflow.
func (h *APIHandlers) ExportWorkflow(c fiber.Ctx) error {
	workflow, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	document, err := models.ExportWorkflow(workflow)
	if err != nil {
		return internalError(c, err)
	}

	c.Set("Content-Type", "application/json")

	return c.Send(document)
}

// StartExecution starts a run of a workflow. The optional request body
// carries seed variables merged over the workflow's declared variables.
func (h *APIHandlers) StartExecution(c fiber.Ctx) error {
	workflow, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	var seed map[string]any

	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &seed); err != nil {
			return badRequest(c, "seed variables must be a JSON object")
		}
	}

	execution, err := h.manager.StartExecution(c.Context(), workflow, seed)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"execution_id": execution.ID(),
		"workflow_id":  execution.WorkflowID(),
		"status":       execution.Status(),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, ok := h.manager.ActiveExecution(c.Params("id"))
	if !ok {
		return notFound(c, "no active execution for workflow")
	}

	return c.JSON(fiber.Map{
		"execution_id": execution.ID(),
		"workflow_id":  execution.WorkflowID(),
		"status":       execution.Status(),
	})
}

func (h *APIHandlers) PauseExecution(c fiber.Ctx) error {
	return h.transition(c, func(execution *engine.Execution) error {
		return execution.Pause()
	})
}

func (h *APIHandlers) ResumeExecution(c fiber.Ctx) error {
	return h.transition(c, func(execution *engine.Execution) error {
		return execution.Resume()
	})
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	return h.transition(c, func(execution *engine.Execution) error {
		return execution.Cancel()
	})
}

func (h *APIHandlers) transition(c fiber.Ctx, apply func(*engine.Execution) error) error {
	execution, ok := h.manager.ActiveExecution(c.Params("id"))
	if !ok {
		return notFound(c, "no active execution for workflow")
	}

	if err := apply(execution); err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"execution_id": execution.ID(),
		"status":       execution.Status(),
	})
}

type provideInputRequest struct {
	StepID string `json:"step_id"`
	Value  any    `json:"value"`
}

// ProvideInput resumes a user-input step of an active execution.
func (h *APIHandlers) ProvideInput(c fiber.Ctx) error {
	execution, ok := h.manager.ActiveExecution(c.Params("id"))
	if !ok {
		return notFound(c, "no active execution for workflow")
	}

	var req provideInputRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid input payload")
	}

	if req.StepID == "" {
		return badRequest(c, "step_id is required")
	}

	if err := execution.ProvideInput(req.StepID, req.Value); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

// GetHistory lists a workflow's past runs, most recent first.
func (h *APIHandlers) GetHistory(c fiber.Ctx) error {
	results, err := h.history.Query(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  results,
		"total_count": len(results),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
