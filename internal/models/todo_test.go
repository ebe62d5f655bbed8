package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodo_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		want        Todo
		wantErr     bool
		wantMissing bool
	}{
		{
			name:  "complete document",
			input: `{"id": 1, "title": "Buy milk", "completed": false}`,
			want:  Todo{ID: 1, Title: "Buy milk", Completed: false},
		},
		{
			name:  "completed todo",
			input: `{"id": 2, "title": "Pay bills", "completed": true}`,
			want:  Todo{ID: 2, Title: "Pay bills", Completed: true},
		},
		{
			name:  "empty title is allowed",
			input: `{"id": 3, "title": "", "completed": false}`,
			want:  Todo{ID: 3, Title: "", Completed: false},
		},
		{
			name:  "unknown keys are ignored",
			input: `{"id": 4, "title": "x", "completed": true, "color": "red"}`,
			want:  Todo{ID: 4, Title: "x", Completed: true},
		},
		{
			name:        "missing id",
			input:       `{"title": "x", "completed": false}`,
			wantErr:     true,
			wantMissing: true,
		},
		{
			name:        "missing title",
			input:       `{"id": 1, "completed": false}`,
			wantErr:     true,
			wantMissing: true,
		},
		{
			name:        "missing completed",
			input:       `{"id": 1, "title": "x"}`,
			wantErr:     true,
			wantMissing: true,
		},
		{
			name:        "null field counts as missing",
			input:       `{"id": 1, "title": null, "completed": false}`,
			wantErr:     true,
			wantMissing: true,
		},
		{
			name:    "string id",
			input:   `{"id": "1", "title": "x", "completed": false}`,
			wantErr: true,
		},
		{
			name:    "fractional id",
			input:   `{"id": 1.5, "title": "x", "completed": false}`,
			wantErr: true,
		},
		{
			name:    "numeric title",
			input:   `{"id": 1, "title": 7, "completed": false}`,
			wantErr: true,
		},
		{
			name:    "string completed",
			input:   `{"id": 1, "title": "x", "completed": "yes"}`,
			wantErr: true,
		},
		{
			name:    "not an object",
			input:   `[1, "x", false]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got Todo
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				require.Error(t, err)
				if tt.wantMissing {
					assert.ErrorIs(t, err, ErrMissingField)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTodo_UnmarshalJSON_ReportsAllMissingFields(t *testing.T) {
	t.Parallel()

	var got Todo
	err := json.Unmarshal([]byte(`{}`), &got)
	require.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "id")
	assert.Contains(t, err.Error(), "title")
	assert.Contains(t, err.Error(), "completed")
}

func TestTodo_MarshalJSON_Shape(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Todo{ID: 1, Title: "Buy milk"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"title":"Buy milk","completed":false}`, string(data))
}

func TestTodo_Toggled(t *testing.T) {
	t.Parallel()

	original := Todo{ID: 1, Title: "Buy milk"}
	toggled := original.Toggled()

	assert.True(t, toggled.Completed)
	assert.False(t, original.Completed, "original must not change")
	assert.Equal(t, original.ID, toggled.ID)
	assert.Equal(t, original.Title, toggled.Title)
}
