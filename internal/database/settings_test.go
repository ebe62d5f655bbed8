package database

import (
	"context"
	"strings"
	"testing"

	"github.com/benvon/todomvc-api/internal/models"
)

func TestSettingsTable_SQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		table      settingsTable
		wantSelect string
		wantUpsert string
	}{
		{
			name:       "ratelimit",
			table:      ratelimitSettingsTable,
			wantSelect: "SELECT config_key, rate, created_at, updated_at FROM ratelimit_config WHERE config_key = $1",
			wantUpsert: "INSERT INTO ratelimit_config (config_key, rate, created_at, updated_at) VALUES ($1, $2, $3, $3) " +
				"ON CONFLICT (config_key) DO UPDATE SET rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at",
		},
		{
			name:  "cors",
			table: corsSettingsTable,
			wantSelect: "SELECT config_key, allowed_origins, allow_credentials, max_age, created_at, updated_at " +
				"FROM cors_config WHERE config_key = $1",
			wantUpsert: "INSERT INTO cors_config (config_key, allowed_origins, allow_credentials, max_age, created_at, updated_at) " +
				"VALUES ($1, $2, $3, $4, $5, $5) ON CONFLICT (config_key) DO UPDATE SET " +
				"allowed_origins = EXCLUDED.allowed_origins, allow_credentials = EXCLUDED.allow_credentials, " +
				"max_age = EXCLUDED.max_age, updated_at = EXCLUDED.updated_at",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.table.selectSQL(); got != tt.wantSelect {
				t.Errorf("selectSQL() =\n%s\nwant\n%s", got, tt.wantSelect)
			}
			if got := tt.table.upsertSQL(); got != tt.wantUpsert {
				t.Errorf("upsertSQL() =\n%s\nwant\n%s", got, tt.wantUpsert)
			}
		})
	}
}

// Invalid input is rejected before the database is touched, so a nil DB is safe here.
func TestSettings_SetRejectsInvalid(t *testing.T) {
	t.Parallel()

	settings := NewSettingsRepository(nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		set     func() error
		wantErr string
	}{
		{"blank origins", func() error {
			return settings.Cors().Set(ctx, &models.CorsConfig{AllowedOrigins: " , "})
		}, "allowed_origins"},
		{"negative max age", func() error {
			return settings.Cors().Set(ctx, &models.CorsConfig{AllowedOrigins: "http://a", MaxAge: -1})
		}, "max_age"},
		{"blank rate", func() error {
			return settings.Ratelimit().Set(ctx, &models.RatelimitConfig{Rate: "  "})
		}, "rate cannot be empty"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.set()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Set() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
