package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/benvon/todomvc-api/internal/cache"
	"github.com/benvon/todomvc-api/internal/database"
	"github.com/benvon/todomvc-api/internal/logger"
	"github.com/benvon/todomvc-api/internal/models"
	"github.com/benvon/todomvc-api/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	// DefaultPageSize is the default page size for pagination
	DefaultPageSize = 100
	// MaxPageSize is the maximum page size for pagination
	MaxPageSize = 500
)

// TodoHandler handles todo-related requests
type TodoHandler struct {
	todoRepo          database.TodoRepositoryInterface
	counts            cache.CountsStore
	defaultVisibility models.Visibility
	log               *zap.Logger
}

// TodoHandlerOption configures a TodoHandler
type TodoHandlerOption func(*TodoHandler)

// WithCountsCache serves counts from store and invalidates it on every mutation
func WithCountsCache(store cache.CountsStore) TodoHandlerOption {
	return func(h *TodoHandler) {
		h.counts = store
	}
}

// WithDefaultVisibility sets the visibility used when a list request names none
func WithDefaultVisibility(v models.Visibility) TodoHandlerOption {
	return func(h *TodoHandler) {
		if v.IsValid() {
			h.defaultVisibility = v
		}
	}
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(todoRepo database.TodoRepositoryInterface, log *zap.Logger, opts ...TodoHandlerOption) *TodoHandler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &TodoHandler{
		todoRepo:          todoRepo,
		defaultVisibility: models.VisibilityAll,
		log:               log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers todo routes on the given router.
// The router should already carry the /todos prefix. Fixed paths are registered
// before /{id} so they are not captured as ids.
func (h *TodoHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTodos).Methods("GET")
	r.HandleFunc("", h.CreateTodo).Methods("POST")
	r.HandleFunc("/counts", h.GetCounts).Methods("GET")
	r.HandleFunc("/toggle-all", h.ToggleAll).Methods("POST")
	r.HandleFunc("/completed", h.ClearCompleted).Methods("DELETE")
	r.HandleFunc("/{id}", h.GetTodo).Methods("GET")
	r.HandleFunc("/{id}", h.PatchTodo).Methods("PATCH")
	r.HandleFunc("/{id}", h.ReplaceTodo).Methods("PUT")
	r.HandleFunc("/{id}", h.DeleteTodo).Methods("DELETE")
	r.HandleFunc("/{id}/toggle", h.ToggleTodo).Methods("POST")
}

// CreateTodoRequest represents a create todo request
type CreateTodoRequest struct {
	Title     string `json:"title" validate:"required,max=10000"`
	Completed bool   `json:"completed"`
}

// PatchTodoRequest represents a partial todo update
type PatchTodoRequest struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// ToggleAllRequest sets every todo to the same completion state
type ToggleAllRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// ListTodosResponse represents the paginated response for listing todos
type ListTodosResponse struct {
	Todos      []models.Todo     `json:"todos"`
	Visibility models.Visibility `json:"visibility"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	Total      int               `json:"total"`
	TotalPages int               `json:"total_pages"`
}

// ListTodos lists the todos visible under the requested visibility, with pagination
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	visibility := h.defaultVisibility
	if raw, ok := query["visibility"]; ok {
		v, err := validation.ValidateVisibility(firstValue(raw))
		if err != nil {
			h.log.Debug("invalid_visibility_filter", zap.String("error", logger.SanitizeError(err)))
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		visibility = v
	}

	page, pageSize := pagination(query.Get("page"), query.Get("page_size"))

	todos, total, err := h.todoRepo.List(r.Context(), visibility, page, pageSize)
	if err != nil {
		h.log.Error("failed_to_list_todos",
			zap.String("visibility", string(visibility)),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve todos")
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	respondJSON(w, http.StatusOK, ListTodosResponse{
		Todos:      todos,
		Visibility: visibility,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	})
}

// CreateTodo creates a new todo. The store assigns its id.
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var req CreateTodoRequest
	if !decodeBody(w, r, &req) || !validateBody(w, req) {
		return
	}

	title, err := validation.ValidateTitle(req.Title)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	todo := &models.Todo{Title: title, Completed: req.Completed}
	if err := h.todoRepo.Create(r.Context(), todo); err != nil {
		h.log.Error("failed_to_create_todo", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create todo")
		return
	}

	h.log.Debug("todo_created",
		zap.Int64("todo_id", todo.ID),
		zap.String("title", logger.SanitizeTitle(todo.Title)),
	)
	h.invalidateCounts(r.Context())
	respondJSON(w, http.StatusCreated, todo)
}

// GetTodo retrieves a todo by ID
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	todo, ok := h.loadTodo(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, todo)
}

// PatchTodo updates the fields present in the request body
func (h *TodoHandler) PatchTodo(w http.ResponseWriter, r *http.Request) {
	todo, ok := h.loadTodo(w, r)
	if !ok {
		return
	}

	var req PatchTodoRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Title != nil {
		title, err := validation.ValidateTitle(*req.Title)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		todo.Title = title
	}
	if req.Completed != nil {
		todo.Completed = *req.Completed
	}

	h.saveTodo(w, r, todo)
}

// ReplaceTodo overwrites a todo with a complete document
func (h *TodoHandler) ReplaceTodo(w http.ResponseWriter, r *http.Request) {
	id, err := todoIDFromPath(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid todo ID")
		return
	}

	var todo models.Todo
	if !decodeTodo(w, r, &todo) {
		return
	}
	if todo.ID != id {
		respondJSONError(w, http.StatusBadRequest, "Bad Request",
			fmt.Sprintf("Todo id %d does not match path id %d", todo.ID, id))
		return
	}

	title, err := validation.ValidateTitle(todo.Title)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	todo.Title = title

	h.saveTodo(w, r, &todo)
}

// ToggleTodo flips the completion flag of a todo
func (h *TodoHandler) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	todo, ok := h.loadTodo(w, r)
	if !ok {
		return
	}
	toggled := todo.Toggled()
	h.saveTodo(w, r, &toggled)
}

// DeleteTodo deletes a todo
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := todoIDFromPath(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid todo ID")
		return
	}

	if err := h.todoRepo.Delete(r.Context(), id); err != nil {
		h.respondStoreError(w, err, "Failed to delete todo")
		return
	}

	h.invalidateCounts(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ToggleAll marks every todo completed or active
func (h *TodoHandler) ToggleAll(w http.ResponseWriter, r *http.Request) {
	var req ToggleAllRequest
	if !decodeBody(w, r, &req) || !validateBody(w, req) {
		return
	}

	updated, err := h.todoRepo.SetAllCompleted(r.Context(), *req.Completed)
	if err != nil {
		h.log.Error("failed_to_toggle_all_todos", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update todos")
		return
	}

	h.invalidateCounts(r.Context())
	respondJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

// ClearCompleted deletes every completed todo
func (h *TodoHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.todoRepo.DeleteCompleted(r.Context())
	if err != nil {
		h.log.Error("failed_to_clear_completed_todos", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to clear completed todos")
		return
	}

	h.invalidateCounts(r.Context())
	respondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// GetCounts returns how many todos fall under each visibility. The cache is
// only read here; the worker repopulates it after each change.
func (h *TodoHandler) GetCounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.counts != nil {
		cached, ok, err := h.counts.Get(ctx)
		if err != nil {
			h.log.Warn("failed_to_read_cached_counts", zap.Error(err))
		} else if ok {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	counts, err := h.todoRepo.Counts(ctx)
	if err != nil {
		h.log.Error("failed_to_count_todos", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to count todos")
		return
	}

	respondJSON(w, http.StatusOK, counts)
}

// loadTodo resolves the {id} route variable to a stored todo, writing the error response on failure
func (h *TodoHandler) loadTodo(w http.ResponseWriter, r *http.Request) (*models.Todo, bool) {
	id, err := todoIDFromPath(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid todo ID")
		return nil, false
	}

	todo, err := h.todoRepo.GetByID(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "Failed to retrieve todo")
		return nil, false
	}
	return todo, true
}

func (h *TodoHandler) saveTodo(w http.ResponseWriter, r *http.Request, todo *models.Todo) {
	if err := h.todoRepo.Update(r.Context(), todo); err != nil {
		h.respondStoreError(w, err, "Failed to update todo")
		return
	}

	h.invalidateCounts(r.Context())
	respondJSON(w, http.StatusOK, todo)
}

// respondStoreError maps repository errors to HTTP responses
func (h *TodoHandler) respondStoreError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, database.ErrTodoNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Todo not found")
		return
	}
	h.log.Error("todo_store_error", zap.String("operation", message), zap.Error(err))
	respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", message)
}

// invalidateCounts drops cached counts after a mutation. Failures only delay freshness until the TTL.
func (h *TodoHandler) invalidateCounts(ctx context.Context) {
	if h.counts == nil {
		return
	}
	if err := h.counts.Invalidate(ctx); err != nil {
		h.log.Warn("failed_to_invalidate_cached_counts", zap.Error(err))
	}
}

// decodeTodo decodes a complete Todo document; missing or mistyped fields are a 400
func decodeTodo(w http.ResponseWriter, r *http.Request, todo *models.Todo) bool {
	if err := json.NewDecoder(r.Body).Decode(todo); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large",
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		if errors.Is(err, models.ErrMissingField) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid todo document")
		return false
	}
	return true
}

// pagination parses page and page_size, falling back to defaults on bad input
func pagination(rawPage, rawPageSize string) (int, int) {
	page := 1
	if rawPage != "" {
		if parsed, err := strconv.Atoi(rawPage); err == nil && parsed > 0 {
			page = parsed
		}
	}

	pageSize := DefaultPageSize
	if rawPageSize != "" {
		if parsed, err := strconv.Atoi(rawPageSize); err == nil && parsed > 0 {
			pageSize = min(parsed, MaxPageSize)
		}
	}
	// keeps the row offset (page-1)*pageSize within an int
	page = min(page, math.MaxInt/pageSize)
	return page, pageSize
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
