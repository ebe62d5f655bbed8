package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benvon/todomvc-api/internal/database"
	"github.com/google/uuid"
)

func TestNewEvent(t *testing.T) {
	t.Parallel()

	event := NewEvent(EventTodoCreated, 42)

	if event.ID == uuid.Nil {
		t.Error("Expected event ID to be set")
	}
	if event.Type != EventTodoCreated {
		t.Errorf("Expected type %s, got %s", EventTodoCreated, event.Type)
	}
	if len(event.TodoIDs) != 1 || event.TodoIDs[0] != 42 {
		t.Errorf("Expected todo ids [42], got %v", event.TodoIDs)
	}
	if event.RetryCount != 0 {
		t.Errorf("Expected retry count 0, got %d", event.RetryCount)
	}
	if event.MaxRetries != DefaultMaxRetries {
		t.Errorf("Expected max retries %d, got %d", DefaultMaxRetries, event.MaxRetries)
	}
	if event.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}

	bulk := NewEvent(EventTodosCleared)
	if len(bulk.TodoIDs) != 0 {
		t.Errorf("Expected no todo ids for bulk event, got %v", bulk.TodoIDs)
	}
}

func TestEvent_ShouldProcess(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name  string
		event *Event
		want  bool
	}{
		{"no time constraints", &Event{}, true},
		{"not before in the past", &Event{NotBefore: &past}, true},
		{"not before in the future", &Event{NotBefore: &future}, false},
		{"not after in the future", &Event{NotAfter: &future}, true},
		{"not after in the past", &Event{NotAfter: &past}, false},
		{"inside window", &Event{NotBefore: &past, NotAfter: &future}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.event.ShouldProcess(); got != tt.want {
				t.Errorf("ShouldProcess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvent_IsExpired(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Minute)

	if (&Event{}).IsExpired() {
		t.Error("Event without NotAfter should not expire")
	}
	if !(&Event{NotAfter: &past}).IsExpired() {
		t.Error("Event with past NotAfter should be expired")
	}
	if (&Event{NotAfter: &future}).IsExpired() {
		t.Error("Event with future NotAfter should not be expired")
	}
}

func TestEvent_Retry(t *testing.T) {
	t.Parallel()

	event := NewEvent(EventTodoUpdated, 1)
	for i := 0; i < DefaultMaxRetries; i++ {
		if !event.CanRetry() {
			t.Fatalf("Expected retry %d to be allowed", i+1)
		}
		event.IncrementRetry()
	}
	if event.CanRetry() {
		t.Error("Expected retries to be exhausted")
	}
}

func TestEvent_ScheduleRetry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		retryCount int
		wantDelay  time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{5, 30 * time.Second},
	}

	for _, tt := range tests {
		event := NewEvent(EventTodoUpdated, 1)
		event.RetryCount = tt.retryCount
		event.ScheduleRetry(now)

		if event.RetryCount != tt.retryCount+1 {
			t.Errorf("RetryCount = %d, want %d", event.RetryCount, tt.retryCount+1)
		}
		if got := event.NotBefore.Sub(now); got != tt.wantDelay {
			t.Errorf("retry %d: delay = %v, want %v", tt.retryCount, got, tt.wantDelay)
		}
		if got := event.NotAfter.Sub(*event.NotBefore); got != RetryWindow {
			t.Errorf("retry %d: window = %v, want %v", tt.retryCount, got, RetryWindow)
		}
	}
}

func TestHoldDuration(t *testing.T) {
	t.Parallel()

	now := time.Now()
	soon := now.Add(5 * time.Second)
	later := now.Add(time.Hour)
	past := now.Add(-time.Second)

	tests := []struct {
		name  string
		event *Event
		want  time.Duration
	}{
		{"no not before", &Event{}, 0},
		{"already due", &Event{NotBefore: &past}, 0},
		{"due soon", &Event{NotBefore: &soon}, 5 * time.Second},
		{"far future is capped", &Event{NotBefore: &later}, RetryMaxDelay},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := holdDuration(tt.event, now, RetryMaxDelay); got != tt.want {
				t.Errorf("holdDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventTypeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind database.ChangeKind
		want EventType
	}{
		{database.ChangeCreated, EventTodoCreated},
		{database.ChangeUpdated, EventTodoUpdated},
		{database.ChangeDeleted, EventTodoDeleted},
		{database.ChangeBulkUpdated, EventTodosBulkUpdated},
		{database.ChangeCleared, EventTodosCleared},
	}
	for _, tt := range tests {
		got, err := EventTypeFor(tt.kind)
		if err != nil {
			t.Errorf("EventTypeFor(%q) error: %v", tt.kind, err)
		}
		if got != tt.want {
			t.Errorf("EventTypeFor(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}

	if _, err := EventTypeFor(database.ChangeKind("renamed")); err == nil {
		t.Error("Expected error for unknown change kind")
	}
}

type recordingQueue struct {
	published []*Event
	err       error
}

func (r *recordingQueue) Publish(_ context.Context, event *Event) error {
	if r.err != nil {
		return r.err
	}
	r.published = append(r.published, event)
	return nil
}

func (r *recordingQueue) Consume(context.Context, int) (<-chan MessageInterface, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}
func (r *recordingQueue) Close() error                      { return nil }
func (r *recordingQueue) HealthCheck(context.Context) error { return nil }

func TestChangePublisher(t *testing.T) {
	t.Parallel()

	q := &recordingQueue{}
	publish := ChangePublisher(q)

	if err := publish(context.Background(), database.ChangeUpdated, []int64{7}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(q.published) != 1 {
		t.Fatalf("Expected 1 published event, got %d", len(q.published))
	}
	if q.published[0].Type != EventTodoUpdated || q.published[0].TodoIDs[0] != 7 {
		t.Errorf("Unexpected event: %+v", q.published[0])
	}

	failing := ChangePublisher(&recordingQueue{err: errors.New("broker down")})
	if err := failing(context.Background(), database.ChangeCleared, nil); err == nil {
		t.Error("Expected publish error to be returned")
	}
}

func TestBackoffDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{3, 16 * time.Second},
		{4, 30 * time.Second},
		{40, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := backoffDelay(tt.attempt, 2*time.Second, 30*time.Second); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBuildPublishing(t *testing.T) {
	t.Parallel()

	q := &RabbitMQQueue{
		exchangeName:        DefaultExchangeName,
		delayedExchangeName: DefaultDelayedExchangeName,
		delayedAvailable:    true,
	}

	event := NewEvent(EventTodoCreated, 1)
	pub, exchange, err := q.buildPublishing(event)
	if err != nil {
		t.Fatalf("buildPublishing: %v", err)
	}
	if exchange != DefaultExchangeName {
		t.Errorf("Expected exchange %s, got %s", DefaultExchangeName, exchange)
	}
	if pub.MessageId != event.ID.String() || pub.Type != string(EventTodoCreated) {
		t.Errorf("Unexpected publishing metadata: %+v", pub)
	}
	if pub.Expiration != "" {
		t.Errorf("Expected no expiration, got %q", pub.Expiration)
	}

	notBefore := time.Now().Add(time.Minute)
	notAfter := time.Now().Add(time.Hour)
	delayed := NewEvent(EventTodosCleared)
	delayed.NotBefore = &notBefore
	delayed.NotAfter = &notAfter
	pub, exchange, err = q.buildPublishing(delayed)
	if err != nil {
		t.Fatalf("buildPublishing: %v", err)
	}
	if exchange != DefaultDelayedExchangeName {
		t.Errorf("Expected delayed exchange, got %s", exchange)
	}
	if _, ok := pub.Headers["x-delay"]; !ok {
		t.Error("Expected x-delay header")
	}
	if pub.Expiration == "" {
		t.Error("Expected expiration to be set from NotAfter")
	}

	q.delayedAvailable = false
	_, exchange, _ = q.buildPublishing(delayed)
	if exchange != DefaultExchangeName {
		t.Errorf("Expected fallback to main exchange without plugin, got %s", exchange)
	}
}
