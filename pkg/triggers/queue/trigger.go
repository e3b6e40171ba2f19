// Package queue provides the message-queue trigger backed by Redis lists.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/taskweave/taskweave/pkg/protocol"
)

type Trigger struct {
	Queue      string
	Connection map[string]string
	Enabled    bool

	client   redis.UniversalClient
	callback protocol.TriggerCallback
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	queue, _ := config["queue"].(string)

	connection := make(map[string]string)
	if raw, ok := config["connection"].(map[string]any); ok {
		for key, value := range raw {
			if s, ok := value.(string); ok {
				connection[key] = s
			}
		}
	}

	trigger := &Trigger{
		Queue:      queue,
		Connection: connection,
		Enabled:    true,
		stopCh:     make(chan struct{}),
		logger: logger.With(
			"module", "queue_trigger",
			"queue", queue,
		),
	}

	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.Queue == "" {
		return errors.New("queue trigger queue name is required")
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	if !t.Enabled {
		t.logger.InfoContext(ctx, "Queue trigger is disabled")

		return nil
	}

	t.logger.InfoContext(ctx, "Starting queue trigger")
	t.callback = callback

	if err := t.connect(ctx); err != nil {
		return fmt.Errorf("failed to initialize queue client: %w", err)
	}

	t.wg.Add(1)

	go t.consume(ctx)

	return nil
}

func (t *Trigger) connect(ctx context.Context) error {
	addr := t.Connection["addr"]
	if addr == "" {
		addr = "localhost:6379"
	}

	db := 0

	if raw := t.Connection["db"]; raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid db value %q: %w", raw, err)
		}

		db = parsed
	}

	t.client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: t.Connection["password"],
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := t.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	t.logger.InfoContext(ctx, "Connected to Redis", "addr", addr, "db", db)

	return nil
}

func (t *Trigger) consume(ctx context.Context) {
	defer t.wg.Done()

	t.logger.InfoContext(ctx, "Starting queue consumer")

	for {
		select {
		case <-t.stopCh:
			return
		case <-ctx.Done():
			return
		default:
			if err := t.pop(ctx); err != nil {
				t.logger.ErrorContext(ctx, "Error processing queue message", "error", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (t *Trigger) pop(ctx context.Context) error {
	result, err := t.client.BLPop(ctx, time.Second, t.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	message := result[1]
	t.logger.InfoContext(ctx, "Received queue message")

	var data map[string]any
	if err := json.Unmarshal([]byte(message), &data); err != nil {
		// Non-JSON payloads are passed through as a raw message.
		data = map[string]any{"message": message}
	}

	if data["timestamp"] == nil {
		data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	}

	go func() {
		if err := t.callback(ctx, data); err != nil {
			t.logger.ErrorContext(ctx, "Error starting run for queue trigger", "error", err)
		}
	}()

	return nil
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping queue trigger")

	close(t.stopCh)
	t.wg.Wait()

	if t.client != nil {
		if err := t.client.Close(); err != nil {
			t.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
