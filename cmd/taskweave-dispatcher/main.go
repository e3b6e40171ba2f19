// Package main runs the trigger dispatcher: it watches every enabled
// workflow's triggers and starts executions when they fire.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/taskweave/taskweave/pkg/cmd"
	"github.com/taskweave/taskweave/pkg/dispatch"
	"github.com/taskweave/taskweave/pkg/engine"
	"github.com/taskweave/taskweave/pkg/log"
	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/otelhelper"
	"github.com/taskweave/taskweave/pkg/probes"
	"github.com/taskweave/taskweave/pkg/triggers/webhook"
)

const defaultWebhookPort = 8085

func main() {
	command := &cli.Command{
		Name:                  "taskweave-dispatcher",
		Usage:                 "Start the Taskweave trigger dispatcher",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dispatcher-id",
				Aliases: []string{"id"},
				Usage:   "Custom dispatcher ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("DISPATCHER_ID"),
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
			&cli.IntFlag{
				Name:    "webhook-port",
				Usage:   "Port for the webhook HTTP server",
				Value:   defaultWebhookPort,
				Sources: cli.EnvVars("WEBHOOK_PORT"),
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

			dispatcherID := command.String("dispatcher-id")
			if dispatcherID == "" {
				dispatcherID = fmt.Sprintf("dispatcher-%s", uuid.New().String()[:8])
			}

			logger := log.WithModule("dispatcher").With("dispatcher_id", dispatcherID)
			logger.InfoContext(ctx, "Initializing Taskweave dispatcher")

			tracer, err := otelhelper.NewTracer(ctx, "taskweave-dispatcher")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}

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

			hostProbes := probes.OS{}
			webhooks := webhook.NewServerManager(command.Int("webhook-port"), logger)

			inputs := engine.NewInputCoordinator()
			registry := cmd.NewRegistry(logger, inputs)
			cmd.RegisterNativeTriggers(registry, hostProbes, webhooks)

			manager := engine.NewManager(engine.Config{
				Registry: registry,
				Probes:   hostProbes,
				History:  historyStore,
				EventBus: eventBus,
				Logger:   logger,
				Tracer:   tracer,
				Inputs:   inputs,
			})

			start := func(ctx context.Context, workflow *models.Workflow, seed map[string]any) error {
				_, err := manager.StartExecution(ctx, workflow, seed)

				return err
			}

			dispatcher := dispatch.NewDispatcher(
				dispatcherID,
				store,
				registry,
				start,
				webhooks,
				logger,
			)

			runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := dispatcher.Start(runCtx); err != nil {
				return err
			}

			<-runCtx.Done()

			dispatcher.Stop(context.WithoutCancel(runCtx))

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
