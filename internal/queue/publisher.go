package queue

import (
	"context"
	"fmt"

	"github.com/benvon/todomvc-api/internal/database"
)

// EventTypeFor maps a store mutation to the event published for it
func EventTypeFor(kind database.ChangeKind) (EventType, error) {
	switch kind {
	case database.ChangeCreated:
		return EventTodoCreated, nil
	case database.ChangeUpdated:
		return EventTodoUpdated, nil
	case database.ChangeDeleted:
		return EventTodoDeleted, nil
	case database.ChangeBulkUpdated:
		return EventTodosBulkUpdated, nil
	case database.ChangeCleared:
		return EventTodosCleared, nil
	default:
		return "", fmt.Errorf("unknown change kind %q", kind)
	}
}

// ChangePublisher returns a database.ChangeHandler that publishes one event per mutation
func ChangePublisher(q EventQueue) database.ChangeHandler {
	return func(ctx context.Context, kind database.ChangeKind, ids []int64) error {
		eventType, err := EventTypeFor(kind)
		if err != nil {
			return err
		}
		if err := q.Publish(ctx, NewEvent(eventType, ids...)); err != nil {
			return fmt.Errorf("publish %s: %w", eventType, err)
		}
		return nil
	}
}
