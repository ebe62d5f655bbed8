package queue

import (
	"context"
	"time"
)

// MessageInterface defines the interface for queue messages
// This enables better testability by allowing mock implementations
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetEvent() *Event
}

// EventQueue is the interface for todo change event queues
type EventQueue interface {
	// Publish adds an event to the queue
	Publish(ctx context.Context, event *Event) error

	// Consume returns a channel of messages from the queue.
	// The caller is responsible for acknowledging each message.
	// prefetchCount controls how many unacknowledged messages the consumer can hold.
	// Both channels are closed when ctx is cancelled or the delivery channel closes.
	Consume(ctx context.Context, prefetchCount int) (<-chan MessageInterface, <-chan error, error)

	// Close closes the queue connection
	Close() error

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}

// DLQPurger removes dead-lettered messages older than a retention period
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
