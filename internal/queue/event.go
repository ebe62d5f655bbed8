package queue

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies what happened to the todo list
type EventType string

const (
	EventTodoCreated      EventType = "todo.created"
	EventTodoUpdated      EventType = "todo.updated"
	EventTodoDeleted      EventType = "todo.deleted"
	EventTodosBulkUpdated EventType = "todos.bulk_updated"
	EventTodosCleared     EventType = "todos.cleared"
)

// DefaultMaxRetries is how many times a failed event is redelivered before it is dead-lettered
const DefaultMaxRetries = 3

const (
	// RetryInitialDelay is the wait before the first redelivery; it doubles per retry
	RetryInitialDelay = 2 * time.Second
	// RetryMaxDelay caps the wait between redeliveries
	RetryMaxDelay = 30 * time.Second
	// RetryWindow is how long a retried event stays valid once it is due
	RetryWindow = 10 * time.Minute
)

// Event describes a change to the todo list
type Event struct {
	ID         uuid.UUID  `json:"id"`
	Type       EventType  `json:"type"`
	TodoIDs    []int64    `json:"todo_ids,omitempty"`   // empty for bulk changes
	NotBefore  *time.Time `json:"not_before,omitempty"` // earliest processing time (nil = immediate)
	NotAfter   *time.Time `json:"not_after,omitempty"`  // latest processing time (nil = no expiration)
	CreatedAt  time.Time  `json:"created_at"`
	RetryCount int        `json:"retry_count"`
	MaxRetries int        `json:"max_retries"`
}

// NewEvent creates a new event
func NewEvent(eventType EventType, todoIDs ...int64) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		TodoIDs:    todoIDs,
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}
}

// ShouldProcess checks if the event should be processed now
func (e *Event) ShouldProcess() bool {
	now := time.Now()

	if e.NotBefore != nil && now.Before(*e.NotBefore) {
		return false
	}

	if e.NotAfter != nil && now.After(*e.NotAfter) {
		return false
	}

	return true
}

// IsExpired checks if the event has expired
func (e *Event) IsExpired() bool {
	if e.NotAfter == nil {
		return false
	}
	return time.Now().After(*e.NotAfter)
}

// CanRetry checks if the event can be retried
func (e *Event) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// IncrementRetry increments the retry count
func (e *Event) IncrementRetry() {
	e.RetryCount++
}

// ScheduleRetry counts a retry and delays the next delivery with exponential
// backoff. The event expires RetryWindow after it becomes due.
func (e *Event) ScheduleRetry(now time.Time) {
	delay := backoffDelay(e.RetryCount, RetryInitialDelay, RetryMaxDelay)
	e.IncrementRetry()

	notBefore := now.Add(delay)
	notAfter := notBefore.Add(RetryWindow)
	e.NotBefore = &notBefore
	e.NotAfter = &notAfter
}

// holdDuration is how long a consumer should keep a delivery before handing it
// on, at most limit. Zero means the event is due.
func holdDuration(e *Event, now time.Time, limit time.Duration) time.Duration {
	if e.NotBefore == nil {
		return 0
	}
	wait := e.NotBefore.Sub(now)
	if wait <= 0 {
		return 0
	}
	return min(wait, limit)
}
