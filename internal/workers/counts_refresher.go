package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/todomvc-api/internal/cache"
	"github.com/benvon/todomvc-api/internal/database"
	"github.com/benvon/todomvc-api/internal/queue"
	"github.com/benvon/todomvc-api/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CountsRefresher recomputes the cached visibility counts whenever the todo list changes
type CountsRefresher struct {
	counter database.TodoCounter
	cache   cache.CountsStore
	queue   queue.EventQueue // for re-publishing failed events
	log     *zap.Logger
}

// NewCountsRefresher creates a new counts refresher. q may be nil, in which case failed
// events are requeued in place.
func NewCountsRefresher(counter database.TodoCounter, store cache.CountsStore, q queue.EventQueue, log *zap.Logger) *CountsRefresher {
	if log == nil {
		log = zap.NewNop()
	}
	return &CountsRefresher{
		counter: counter,
		cache:   store,
		queue:   q,
		log:     log,
	}
}

// Refresh reads counts from the store and writes them to the cache
func (r *CountsRefresher) Refresh(ctx context.Context) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "counts.refresh")
	defer func() { telemetry.EndSpan(span, err) }()

	counts, err := r.counter.Counts(ctx)
	if err != nil {
		return fmt.Errorf("failed to count todos: %w", err)
	}
	if err = r.cache.Set(ctx, counts); err != nil {
		return fmt.Errorf("failed to cache counts: %w", err)
	}
	span.SetAttributes(
		attribute.Int("todos.all", counts.All),
		attribute.Int("todos.active", counts.Active),
		attribute.Int("todos.completed", counts.Completed),
	)
	r.log.Debug("counts_refreshed",
		zap.Int("all", counts.All),
		zap.Int("active", counts.Active),
		zap.Int("completed", counts.Completed),
	)
	return nil
}

// ProcessMessage handles one delivered event and settles the message
func (r *CountsRefresher) ProcessMessage(ctx context.Context, msg queue.MessageInterface) error {
	event := msg.GetEvent()
	if event == nil {
		if nackErr := msg.Nack(false); nackErr != nil {
			r.log.Warn("failed_to_nack_empty_message", zap.Error(nackErr))
		}
		return fmt.Errorf("message carries no event")
	}

	if event.IsExpired() {
		r.log.Info("dropping_expired_event",
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", string(event.Type)),
		)
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack expired event: %w", ackErr)
		}
		return nil
	}

	switch event.Type {
	case queue.EventTodoCreated, queue.EventTodoUpdated, queue.EventTodoDeleted,
		queue.EventTodosBulkUpdated, queue.EventTodosCleared:
	default:
		if nackErr := msg.Nack(false); nackErr != nil {
			r.log.Warn("failed_to_nack_unknown_event", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err := r.Refresh(ctx); err != nil {
		return r.handleError(ctx, msg, event, err)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack event: %w", ackErr)
	}
	return nil
}

// handleError retries a failed event until its retries run out, then dead-letters it
func (r *CountsRefresher) handleError(ctx context.Context, msg queue.MessageInterface, event *queue.Event, err error) error {
	if !event.CanRetry() {
		r.log.Error("event_failed_sending_to_dlq",
			zap.String("event_id", event.ID.String()),
			zap.Int("max_retries", event.MaxRetries),
			zap.Error(err),
		)
		if nackErr := msg.Nack(false); nackErr != nil {
			r.log.Warn("failed_to_nack_event_to_dlq", zap.Error(nackErr))
		}
		return fmt.Errorf("event failed (max retries): %w", err)
	}

	retry := *event
	retry.ScheduleRetry(time.Now())

	if r.queue != nil {
		pubErr := r.queue.Publish(ctx, &retry)
		if pubErr == nil {
			if ackErr := msg.Ack(); ackErr != nil {
				r.log.Warn("failed_to_ack_republished_event", zap.Error(ackErr))
			}
			r.log.Warn("event_failed_republished",
				zap.String("event_id", event.ID.String()),
				zap.Int("retry_count", retry.RetryCount),
				zap.Time("not_before", *retry.NotBefore),
				zap.Error(err),
			)
			return fmt.Errorf("event failed (will retry): %w", err)
		}
		r.log.Warn("failed_to_republish_event", zap.Error(pubErr))
	}

	if nackErr := msg.Nack(true); nackErr != nil {
		r.log.Warn("failed_to_requeue_event", zap.Error(nackErr))
	}
	return fmt.Errorf("event failed (requeued): %w", err)
}

// Run consumes events until ctx is cancelled or the delivery channel closes
func (r *CountsRefresher) Run(ctx context.Context, messages <-chan queue.MessageInterface, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.log.Error("queue_error", zap.Error(err))
		case msg, ok := <-messages:
			if !ok {
				r.log.Info("message_channel_closed")
				return
			}
			if err := r.ProcessMessage(ctx, msg); err != nil {
				fields := []zap.Field{zap.Error(err)}
				if event := msg.GetEvent(); event != nil {
					fields = append(fields,
						zap.String("event_id", event.ID.String()),
						zap.String("event_type", string(event.Type)),
					)
				}
				r.log.Error("failed_to_process_event", fields...)
			}
		}
	}
}
