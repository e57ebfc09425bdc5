// Package events publishes task lifecycle notifications to a message broker.
// Publishing is best-effort: a broker failure is logged and never fails the
// request that produced the event.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskhub/apiserver/config"
	"github.com/taskhub/apiserver/types"
)

// NewBackend constructs the broker backend named by cfg.Backend.
// An empty backend name yields (nil, nil): event publishing is optional.
func NewBackend(ctx context.Context, cfg config.EventsConfig) (Backend, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		return NewRabbitMQBackend(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubBackend(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

// Channels carrying task lifecycle events. The channel name doubles as the
// event name in the payload.
const (
	TaskCreated       = "task.created"
	TaskUpdated       = "task.updated"
	TaskStatusChanged = "task.status_changed"
	TaskDeleted       = "task.deleted"
)

// Event is the JSON payload published for every task mutation.
type Event struct {
	Name       string       `json:"event"`
	TaskID     int          `json:"task_id"`
	UserID     int          `json:"user_id"`
	Status     types.Status `json:"status,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the publisher and
// by consumers such as the `events tail` command.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Publisher emits task events on a backend. A nil backend disables
// publishing entirely.
type Publisher struct {
	backend Backend
	logger  *slog.Logger
}

func NewPublisher(backend Backend, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{backend: backend, logger: logger}
}

// TaskEvent publishes one lifecycle event for task on the channel named by
// event. Failures are logged, not returned.
func (p *Publisher) TaskEvent(ctx context.Context, event string, task types.Task) {
	if p == nil || p.backend == nil {
		return
	}

	payload := Event{
		Name:       event,
		TaskID:     task.ID,
		UserID:     task.UserID,
		Status:     task.Status,
		OccurredAt: time.Now(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to encode task event", "event", event, "error", err)
		return
	}

	attrs := map[string]string{"event": event}
	if _, err := p.backend.Publish(ctx, event, data, attrs); err != nil {
		p.logger.Error("failed to publish task event",
			"event", event, "task_id", task.ID, "error", err)
	}
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	if p == nil || p.backend == nil {
		return nil
	}
	return p.backend.Close()
}
