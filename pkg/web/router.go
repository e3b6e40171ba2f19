package web

import (
	"github.com/gofiber/fiber/v3"
)

// Register mounts every API route on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	workflows := app.Group("/workflows")
	workflows.Get("/", h.GetWorkflows)
	workflows.Post("/", h.CreateWorkflow)
	workflows.Get("/:id", h.GetWorkflow)
	workflows.Put("/:id", h.UpdateWorkflow)
	workflows.Delete("/:id", h.DeleteWorkflow)
	workflows.Get("/:id/export", h.ExportWorkflow)
	workflows.Get("/:id/history", h.GetHistory)

	executions := workflows.Group("/:id/executions")
	executions.Post("/", h.StartExecution)
	executions.Get("/current", h.GetExecution)
	executions.Post("/current/pause", h.PauseExecution)
	executions.Post("/current/resume", h.ResumeExecution)
	executions.Post("/current/cancel", h.CancelExecution)
	executions.Post("/current/input", h.ProvideInput)

	app.Get("/health", h.HealthCheck)
}
