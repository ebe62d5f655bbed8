package database

import (
	"context"

	"github.com/benvon/todomvc-api/internal/models"
)

// TodoRepositoryInterface defines the todo store operations used by handlers and workers.
// It allows tests to substitute an in-memory implementation.
type TodoRepositoryInterface interface {
	Create(ctx context.Context, todo *models.Todo) error
	GetByID(ctx context.Context, id int64) (*models.Todo, error)
	List(ctx context.Context, visibility models.Visibility, page, pageSize int) ([]models.Todo, int, error)
	Update(ctx context.Context, todo *models.Todo) error
	Delete(ctx context.Context, id int64) error
	SetAllCompleted(ctx context.Context, completed bool) (int64, error)
	DeleteCompleted(ctx context.Context) (int64, error)
	Counts(ctx context.Context) (models.Counts, error)
}

// TodoCounter is the read-only subset needed to refresh cached counts
type TodoCounter interface {
	Counts(ctx context.Context) (models.Counts, error)
}

// CorsConfigRepositoryInterface defines CORS config storage
type CorsConfigRepositoryInterface interface {
	Get(ctx context.Context) (*models.CorsConfig, error)
	Set(ctx context.Context, c *models.CorsConfig) error
}

// RatelimitConfigRepositoryInterface defines rate limit config storage
type RatelimitConfigRepositoryInterface interface {
	Get(ctx context.Context) (*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

// Ensure concrete types implement the interfaces
var (
	_ TodoRepositoryInterface = (*TodoRepository)(nil)
	_ TodoCounter             = (*TodoRepository)(nil)
)
