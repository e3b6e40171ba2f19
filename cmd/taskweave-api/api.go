// Package main provides the Taskweave API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/taskweave/taskweave/pkg/engine"
	"github.com/taskweave/taskweave/pkg/history"
	"github.com/taskweave/taskweave/pkg/persistence"
	"github.com/taskweave/taskweave/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	manager     *engine.Manager
	history     history.Store
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	manager *engine.Manager,
	historyStore history.Store,
) *API {
	return &API{
		logger:      logger,
		persistence: store,
		manager:     manager,
		history:     historyStore,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.persistence, a.manager, a.history, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Taskweave API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
