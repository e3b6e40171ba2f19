// Package main provides the taskweave command line tool for validating,
// inspecting and running workflow documents.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/taskweave/taskweave/pkg/cmd"
	"github.com/taskweave/taskweave/pkg/engine"
	"github.com/taskweave/taskweave/pkg/log"
	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/probes"
	"github.com/taskweave/taskweave/pkg/schema"
)

var errMissingArgument = errors.New("missing required argument")

func main() {
	command := &cli.Command{
		Name:                  "taskweave",
		Usage:                 "Create, validate and run workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			newValidateCommand(),
			newRunCommand(),
			newListCommand(),
			newHistoryCommand(),
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate a workflow document",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				return fmt.Errorf("%w: workflow file", errMissingArgument)
			}

			workflow, err := loadDocument(path)
			if err != nil {
				return err
			}

			fmt.Printf("%s: valid (%d steps, %d triggers)\n", workflow.ID, len(workflow.Steps), len(workflow.Triggers))

			return nil
		},
	}
}

func newRunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Aliases:   []string{"r"},
		Usage:     "Execute a workflow document and wait for it to finish",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "var",
				Usage:   "Seed variable as name=value (repeatable)",
				Aliases: []string{"V"},
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			path := command.Args().First()
			if path == "" {
				return fmt.Errorf("%w: workflow file", errMissingArgument)
			}

			workflow, err := loadDocument(path)
			if err != nil {
				return err
			}

			seed, err := parseSeed(command.StringSlice("var"))
			if err != nil {
				return err
			}

			logger := log.WithModule("cli")

			inputs := engine.NewInputCoordinator()
			manager := engine.NewManager(engine.Config{
				Registry: cmd.NewRegistry(logger, inputs),
				Probes:   probes.OS{},
				Logger:   logger,
				Inputs:   inputs,
			})

			execution, err := manager.StartExecution(ctx, workflow, seed)
			if err != nil {
				return err
			}

			<-execution.Done()

			result := execution.Result()

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			if err := encoder.Encode(result); err != nil {
				return err
			}

			if !result.Succeeded() {
				return fmt.Errorf("execution finished with status %s", result.Status)
			}

			return nil
		},
	}
}

func newListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List stored workflows",
		Flags:   []cli.Flag{databaseURLFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("cli")

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			workflows, err := store.Workflows(ctx)
			if err != nil {
				return err
			}

			for _, workflow := range workflows {
				state := "disabled"
				if workflow.Enabled {
					state = "enabled"
				}

				fmt.Printf("%s\t%s\t%s\t%d steps\n", workflow.ID, workflow.Name, state, len(workflow.Steps))
			}

			return nil
		},
	}
}

func newHistoryCommand() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show past executions of a workflow",
		ArgsUsage: "<workflow-id>",
		Flags:     []cli.Flag{databaseURLFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workflowID := command.Args().First()
			if workflowID == "" {
				return fmt.Errorf("%w: workflow id", errMissingArgument)
			}

			logger := log.WithModule("cli")

			store, err := cmd.NewHistoryStore(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close history store", "error", err)
				}
			}()

			results, err := store.Query(ctx, workflowID)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			return encoder.Encode(results)
		},
	}
}

func databaseURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "database-url",
		Usage:    "Database connection URL for persistence",
		Required: true,
		Sources:  cli.EnvVars("DATABASE_URL"),
	}
}

// loadDocument reads a workflow document and runs both validation
// layers: the JSON schema first, then the structural model checks.
func loadDocument(path string) (*models.Workflow, error) {
	document, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := schema.ValidateDocument(document); err != nil {
		return nil, err
	}

	return models.ImportWorkflow(document)
}

func parseSeed(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	seed := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid variable %q, expected name=value", pair)
		}

		seed[name] = value
	}

	return seed, nil
}
