package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/benvon/todomvc-api/internal/models"
	"go.uber.org/zap"
)

// ErrTodoNotFound is returned when no todo has the requested id
var ErrTodoNotFound = errors.New("todo not found")

// ChangeKind describes a mutation applied to the todos table
type ChangeKind string

const (
	ChangeCreated     ChangeKind = "created"
	ChangeUpdated     ChangeKind = "updated"
	ChangeDeleted     ChangeKind = "deleted"
	ChangeBulkUpdated ChangeKind = "bulk_updated"
	ChangeCleared     ChangeKind = "cleared"
)

// ChangeHandler is invoked after a successful mutation. ids is empty for bulk changes.
type ChangeHandler func(ctx context.Context, kind ChangeKind, ids []int64) error

// TodoRepository handles todo database operations
type TodoRepository struct {
	db            *DB
	log           *zap.Logger
	changeHandler ChangeHandler
}

// NewTodoRepository creates a new todo repository
func NewTodoRepository(db *DB) *TodoRepository {
	return &TodoRepository{db: db, log: zap.NewNop()}
}

// SetLogger sets the logger used for change notification failures
func (r *TodoRepository) SetLogger(log *zap.Logger) {
	if log != nil {
		r.log = log
	}
}

// SetChangeHandler registers the callback run after every mutation
func (r *TodoRepository) SetChangeHandler(h ChangeHandler) {
	r.changeHandler = h
}

func (r *TodoRepository) notify(ctx context.Context, kind ChangeKind, ids ...int64) {
	if r.changeHandler == nil {
		return
	}
	// The write already committed; a failed notification is logged and not surfaced.
	if err := r.changeHandler(ctx, kind, ids); err != nil {
		r.log.Warn("todo_change_handler_failed",
			zap.String("kind", string(kind)),
			zap.Int64s("todo_ids", ids),
			zap.Error(err),
		)
	}
}

// Create inserts a todo. The database assigns the id, which is written back into todo.
func (r *TodoRepository) Create(ctx context.Context, todo *models.Todo) error {
	query := `
		INSERT INTO todos (title, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query, todo.Title, todo.Completed, time.Now()).Scan(&todo.ID)
	if err != nil {
		return fmt.Errorf("failed to create todo: %w", err)
	}

	r.notify(ctx, ChangeCreated, todo.ID)
	return nil
}

// GetByID retrieves a todo by ID
func (r *TodoRepository) GetByID(ctx context.Context, id int64) (*models.Todo, error) {
	todo := &models.Todo{}

	query := `SELECT id, title, completed FROM todos WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(&todo.ID, &todo.Title, &todo.Completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("todo %d: %w", id, ErrTodoNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}

	return todo, nil
}

// List returns one page of the todos visible under visibility, ordered by id,
// together with the total number of matching todos.
func (r *TodoRepository) List(ctx context.Context, visibility models.Visibility, page, pageSize int) ([]models.Todo, int, error) {
	where, err := visibilityClause(visibility)
	if err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM todos` + where
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count todos: %w", err)
	}

	query := `SELECT id, title, completed FROM todos` + where + ` ORDER BY id ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, pageSize, offsetFor(page, pageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	todos := make([]models.Todo, 0, pageSize)
	for rows.Next() {
		var todo models.Todo
		if err := rows.Scan(&todo.ID, &todo.Title, &todo.Completed); err != nil {
			return nil, 0, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, todo)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating todos: %w", err)
	}

	return todos, total, nil
}

// Update writes the title and completion flag of an existing todo
func (r *TodoRepository) Update(ctx context.Context, todo *models.Todo) error {
	query := `UPDATE todos SET title = $2, completed = $3, updated_at = $4 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, todo.ID, todo.Title, todo.Completed, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}
	if err := expectRows(result, todo.ID); err != nil {
		return err
	}

	r.notify(ctx, ChangeUpdated, todo.ID)
	return nil
}

// Delete deletes a todo by ID
func (r *TodoRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	if err := expectRows(result, id); err != nil {
		return err
	}

	r.notify(ctx, ChangeDeleted, id)
	return nil
}

// SetAllCompleted marks every todo as completed or active and returns how many rows changed
func (r *TodoRepository) SetAllCompleted(ctx context.Context, completed bool) (int64, error) {
	query := `UPDATE todos SET completed = $1, updated_at = $2 WHERE completed <> $1`

	result, err := r.db.ExecContext(ctx, query, completed, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to toggle todos: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if n > 0 {
		r.notify(ctx, ChangeBulkUpdated)
	}
	return n, nil
}

// DeleteCompleted removes every completed todo and returns how many were removed
func (r *TodoRepository) DeleteCompleted(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE completed = TRUE`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear completed todos: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if n > 0 {
		r.notify(ctx, ChangeCleared)
	}
	return n, nil
}

// Counts returns the number of todos under each visibility
func (r *TodoRepository) Counts(ctx context.Context) (models.Counts, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE NOT completed),
		       COUNT(*) FILTER (WHERE completed)
		FROM todos
	`

	var c models.Counts
	if err := r.db.QueryRowContext(ctx, query).Scan(&c.All, &c.Active, &c.Completed); err != nil {
		return models.Counts{}, fmt.Errorf("failed to count todos: %w", err)
	}
	return c, nil
}

// visibilityClause maps a visibility to the WHERE clause that selects its todos
func visibilityClause(v models.Visibility) (string, error) {
	switch v {
	case models.VisibilityAll:
		return "", nil
	case models.VisibilityActive:
		return " WHERE completed = FALSE", nil
	case models.VisibilityCompleted:
		return " WHERE completed = TRUE", nil
	default:
		return "", fmt.Errorf("list todos: %w: %q", models.ErrInvalidVisibility, string(v))
	}
}

// offsetFor converts a 1-based page number into a row offset, saturating at math.MaxInt
func offsetFor(page, pageSize int) int {
	if page < 1 || pageSize < 1 {
		return 0
	}
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}

func expectRows(result sql.Result, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("todo %d: %w", id, ErrTodoNotFound)
	}
	return nil
}
