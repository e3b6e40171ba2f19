// Package cmd provides common initialization for the command-line
// entrypoints: registry, event bus and storage construction.
package cmd

import (
	"log/slog"

	"github.com/taskweave/taskweave/pkg/conditions"
	"github.com/taskweave/taskweave/pkg/executors/appcontrol"
	"github.com/taskweave/taskweave/pkg/executors/conditional"
	"github.com/taskweave/taskweave/pkg/executors/delay"
	"github.com/taskweave/taskweave/pkg/executors/fileop"
	"github.com/taskweave/taskweave/pkg/executors/notification"
	"github.com/taskweave/taskweave/pkg/executors/sysquery"
	"github.com/taskweave/taskweave/pkg/executors/textproc"
	"github.com/taskweave/taskweave/pkg/executors/userinput"
	"github.com/taskweave/taskweave/pkg/registry"
	"github.com/taskweave/taskweave/pkg/triggers/applaunch"
	"github.com/taskweave/taskweave/pkg/triggers/filewatch"
	"github.com/taskweave/taskweave/pkg/triggers/queue"
	"github.com/taskweave/taskweave/pkg/triggers/schedule"
	"github.com/taskweave/taskweave/pkg/triggers/webhook"
)

// NewRegistry builds a registry with every native step executor
// registered. The awaiter wires user-input steps to the engine's input
// coordinator.
func NewRegistry(logger *slog.Logger, awaiter userinput.Awaiter) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterExecutor(delay.NewFactory())
	reg.RegisterExecutor(notification.NewFactory())
	reg.RegisterExecutor(conditional.NewFactory())
	reg.RegisterExecutor(textproc.NewFactory())
	reg.RegisterExecutor(fileop.NewFactory())
	reg.RegisterExecutor(sysquery.NewFactory())
	reg.RegisterExecutor(appcontrol.NewFactory())
	reg.RegisterExecutor(userinput.NewFactory(awaiter))

	return reg
}

// RegisterNativeTriggers adds the built-in trigger factories. The webhook
// manager may be nil when the process serves no webhooks.
func RegisterNativeTriggers(reg *registry.Registry, probes conditions.Probes, webhooks *webhook.ServerManager) {
	reg.RegisterTrigger(schedule.NewFactory())
	reg.RegisterTrigger(queue.NewFactory())
	reg.RegisterTrigger(filewatch.NewFactory())
	reg.RegisterTrigger(applaunch.NewFactory(probes))
	reg.RegisterTrigger(webhook.NewFactory(webhooks))
}
