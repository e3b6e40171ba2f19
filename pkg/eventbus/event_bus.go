// Package eventbus delivers execution progress events to subscribed
// hosts over a watermill publisher/subscriber pair.
package eventbus

import (
	"context"

	"github.com/taskweave/taskweave/pkg/events"
)

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	Publish(ctx context.Context, key string, event events.Event) error
	Subscribe(ctx context.Context) error
	Handle(eventType events.EventType, handler EventHandler) error
	GenerateID() string
	Close() error
}
