package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/todomvc-api/internal/models"
)

const defaultSettingsKey = "default"

// settingsTable is a table holding one row per config_key. columns lists the
// value columns; config_key, created_at and updated_at are implied.
type settingsTable struct {
	name    string
	columns []string
}

var (
	corsSettingsTable      = settingsTable{name: "cors_config", columns: []string{"allowed_origins", "allow_credentials", "max_age"}}
	ratelimitSettingsTable = settingsTable{name: "ratelimit_config", columns: []string{"rate"}}
)

func (t settingsTable) selectSQL() string {
	return fmt.Sprintf("SELECT config_key, %s, created_at, updated_at FROM %s WHERE config_key = $1",
		strings.Join(t.columns, ", "), t.name)
}

func (t settingsTable) upsertSQL() string {
	placeholders := make([]string, len(t.columns))
	updates := make([]string, len(t.columns))
	for i, col := range t.columns {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}
	now := fmt.Sprintf("$%d", len(t.columns)+2)
	return fmt.Sprintf(
		"INSERT INTO %s (config_key, %s, created_at, updated_at) VALUES ($1, %s, %s, %s) "+
			"ON CONFLICT (config_key) DO UPDATE SET %s, updated_at = EXCLUDED.updated_at",
		t.name, strings.Join(t.columns, ", "), strings.Join(placeholders, ", "), now, now,
		strings.Join(updates, ", "),
	)
}

// SettingsRepository stores runtime settings that servers hot-reload
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Cors returns the CORS settings view
func (r *SettingsRepository) Cors() CorsSettings {
	return CorsSettings{repo: r}
}

// Ratelimit returns the rate limit settings view
func (r *SettingsRepository) Ratelimit() RatelimitSettings {
	return RatelimitSettings{repo: r}
}

// get scans the default row of t into dest. found is false when no row is stored.
func (r *SettingsRepository) get(ctx context.Context, t settingsTable, dest ...any) (bool, error) {
	err := r.db.QueryRowContext(ctx, t.selectSQL(), defaultSettingsKey).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", t.name, err)
	}
	return true, nil
}

// put upserts the default row of t. values follow t.columns.
func (r *SettingsRepository) put(ctx context.Context, t settingsTable, values ...any) error {
	args := make([]any, 0, len(values)+2)
	args = append(args, defaultSettingsKey)
	args = append(args, values...)
	args = append(args, time.Now())
	if _, err := r.db.ExecContext(ctx, t.upsertSQL(), args...); err != nil {
		return fmt.Errorf("set %s: %w", t.name, err)
	}
	return nil
}

// CorsSettings reads and writes the CORS row
type CorsSettings struct {
	repo *SettingsRepository
}

// Get returns the stored CORS config, or nil, nil when none is stored
func (s CorsSettings) Get(ctx context.Context) (*models.CorsConfig, error) {
	c := &models.CorsConfig{}
	found, err := s.repo.get(ctx, corsSettingsTable,
		&c.ConfigKey, &c.AllowedOrigins, &c.AllowCredentials, &c.MaxAge, &c.CreatedAt, &c.UpdatedAt)
	if err != nil || !found {
		return nil, err
	}
	return c, nil
}

// Set stores c with its origins normalized
func (s CorsSettings) Set(ctx context.Context, c *models.CorsConfig) error {
	origins := models.SplitOrigins(c.AllowedOrigins)
	if len(origins) == 0 {
		return fmt.Errorf("allowed_origins cannot be empty")
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("max_age cannot be negative")
	}
	return s.repo.put(ctx, corsSettingsTable, strings.Join(origins, ","), c.AllowCredentials, c.MaxAge)
}

// RatelimitSettings reads and writes the rate limit row
type RatelimitSettings struct {
	repo *SettingsRepository
}

// Get returns the stored rate limit, or nil, nil when none is stored
func (s RatelimitSettings) Get(ctx context.Context) (*models.RatelimitConfig, error) {
	c := &models.RatelimitConfig{}
	found, err := s.repo.get(ctx, ratelimitSettingsTable, &c.ConfigKey, &c.Rate, &c.CreatedAt, &c.UpdatedAt)
	if err != nil || !found {
		return nil, err
	}
	return c, nil
}

// Set stores the rate. Callers validate its format.
func (s RatelimitSettings) Set(ctx context.Context, c *models.RatelimitConfig) error {
	rate := strings.TrimSpace(c.Rate)
	if rate == "" {
		return fmt.Errorf("rate cannot be empty")
	}
	return s.repo.put(ctx, ratelimitSettingsTable, rate)
}

var (
	_ CorsConfigRepositoryInterface      = CorsSettings{}
	_ RatelimitConfigRepositoryInterface = RatelimitSettings{}
)
