package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/taskweave/taskweave/pkg/cmd"
	"github.com/taskweave/taskweave/pkg/engine"
	"github.com/taskweave/taskweave/pkg/log"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "taskweave-api",
		Usage:                 "Serve the workflow management and execution API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Taskweave API")

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			historyStore, err := cmd.NewHistoryStore(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := historyStore.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close history store", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			inputs := engine.NewInputCoordinator()
			registry := cmd.NewRegistry(logger, inputs)

			manager := engine.NewManager(engine.Config{
				Registry: registry,
				History:  historyStore,
				EventBus: eventBus,
				Logger:   logger,
				Inputs:   inputs,
			})

			api := NewAPI(logger, store, manager, historyStore)

			return api.Start(command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
