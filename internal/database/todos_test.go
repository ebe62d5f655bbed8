package database

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/benvon/todomvc-api/internal/models"
)

func TestVisibilityClause(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		visibility models.Visibility
		want       string
		wantErr    bool
	}{
		{"all has no filter", models.VisibilityAll, "", false},
		{"active selects incomplete", models.VisibilityActive, " WHERE completed = FALSE", false},
		{"completed selects done", models.VisibilityCompleted, " WHERE completed = TRUE", false},
		{"invalid is rejected", models.Visibility("done"), "", true},
		{"empty is rejected", models.Visibility(""), "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := visibilityClause(tt.visibility)
			if (err != nil) != tt.wantErr {
				t.Fatalf("visibilityClause(%q) error = %v, wantErr %v", tt.visibility, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, models.ErrInvalidVisibility) {
				t.Errorf("Expected ErrInvalidVisibility, got %v", err)
			}
			if got != tt.want {
				t.Errorf("visibilityClause(%q) = %q, want %q", tt.visibility, got, tt.want)
			}
		})
	}
}

func TestOffsetFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		page, pageSize, want int
	}{
		{1, 100, 0},
		{2, 100, 100},
		{3, 25, 50},
		{0, 100, 0},
		{-1, 100, 0},
		{2, 0, 0},
		{1 << 62, 500, math.MaxInt},
		{math.MaxInt, 2, math.MaxInt},
		{math.MaxInt/500 + 1, 500, math.MaxInt / 500 * 500},
	}

	for _, tt := range tests {
		if got := offsetFor(tt.page, tt.pageSize); got != tt.want {
			t.Errorf("offsetFor(%d, %d) = %d, want %d", tt.page, tt.pageSize, got, tt.want)
		}
	}
}

type fakeResult struct {
	rows int64
	err  error
}

func (f fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (f fakeResult) RowsAffected() (int64, error) { return f.rows, f.err }

func TestExpectRows(t *testing.T) {
	t.Parallel()

	if err := expectRows(fakeResult{rows: 1}, 7); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := expectRows(fakeResult{rows: 0}, 7); !errors.Is(err, ErrTodoNotFound) {
		t.Errorf("Expected ErrTodoNotFound, got %v", err)
	}
	if err := expectRows(fakeResult{err: errors.New("driver")}, 7); err == nil || errors.Is(err, ErrTodoNotFound) {
		t.Errorf("Expected driver error, got %v", err)
	}
}

func TestTodoRepository_NotifyWithoutHandler(t *testing.T) {
	t.Parallel()

	repo := NewTodoRepository(nil)
	// Must not panic when no handler is registered
	repo.notify(context.Background(), ChangeCreated, 1)
}

func TestTodoRepository_NotifyCallsHandler(t *testing.T) {
	t.Parallel()

	repo := NewTodoRepository(nil)
	var gotKind ChangeKind
	var gotIDs []int64
	repo.SetChangeHandler(func(_ context.Context, kind ChangeKind, ids []int64) error {
		gotKind = kind
		gotIDs = ids
		return errors.New("publish failed")
	})

	// Handler errors are logged, not returned
	repo.notify(context.Background(), ChangeDeleted, 3)

	if gotKind != ChangeDeleted {
		t.Errorf("Expected kind %q, got %q", ChangeDeleted, gotKind)
	}
	if len(gotIDs) != 1 || gotIDs[0] != 3 {
		t.Errorf("Expected ids [3], got %v", gotIDs)
	}
}
