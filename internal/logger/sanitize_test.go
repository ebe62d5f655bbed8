package logger

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		maxLength int
		want      string
	}{
		{"empty", "", 10, ""},
		{"plain", "hello", 10, "hello"},
		{"control characters removed", "he\x00ll\x1bo", 10, "hello"},
		{"newline kept", "a\nb", 10, "a\nb"},
		{"truncated", "abcdefghij", 4, "abcd..."},
		{"invalid utf8 dropped", "ok\xffok", 10, "okok"},
		{"default max length", strings.Repeat("x", 10), 0, strings.Repeat("x", 10)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tt.input, tt.maxLength); got != tt.want {
				t.Errorf("SanitizeString(%q, %d) = %q, want %q", tt.input, tt.maxLength, got, tt.want)
			}
		})
	}
}

func TestSanitizeString_DoesNotSplitRunes(t *testing.T) {
	t.Parallel()

	got := SanitizeString("ééééé", 3)
	if !utf8.ValidString(got) {
		t.Errorf("Expected valid UTF-8, got %q", got)
	}
	if got != "é..." {
		t.Errorf("Expected 'é...', got %q", got)
	}
}

func TestSanitizeTitleAndPath(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("t", MaxTitleLength+10)
	if got := SanitizeTitle(long); len(got) != MaxTitleLength+3 {
		t.Errorf("Expected title truncated to %d bytes plus ellipsis, got %d", MaxTitleLength, len(got))
	}
	if got := SanitizePath("/api/v1/todos\x00"); got != "/api/v1/todos" {
		t.Errorf("SanitizePath() = %q", got)
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	if SanitizeError(nil) != "" {
		t.Error("Expected empty string for nil error")
	}
	if got := SanitizeError(errors.New("boom\x07")); got != "boom" {
		t.Errorf("SanitizeError() = %q", got)
	}
}
