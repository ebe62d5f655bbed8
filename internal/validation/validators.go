package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/benvon/todomvc-api/internal/models"
	"github.com/go-playground/validator/v10"
)

const (
	// MaxTitleLength is the maximum length for a todo title
	MaxTitleLength = 10000
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("visibility", validateVisibility); err != nil {
		panic(fmt.Sprintf("failed to register visibility validator: %v", err))
	}
}

// validateVisibility validates that a string field holds a Visibility value
func validateVisibility(fl validator.FieldLevel) bool {
	return models.Visibility(fl.Field().String()).IsValid()
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateVisibility validates a visibility query or config value
func ValidateVisibility(value string) (models.Visibility, error) {
	v, err := models.ParseVisibility(value)
	if err != nil {
		return "", fmt.Errorf("invalid visibility: %s (must be 'all', 'active', or 'completed'): %w", value, models.ErrInvalidVisibility)
	}
	return v, nil
}

// ValidateTodoID validates a todo identifier. Identifiers are assigned by the store starting at 1.
func ValidateTodoID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("invalid todo id: %d (must be positive)", id)
	}
	return nil
}

// ValidateTitle sanitizes and bounds a todo title
func ValidateTitle(title string) (string, error) {
	sanitized := SanitizeText(title)
	if sanitized == "" {
		return "", fmt.Errorf("title cannot be empty after sanitization")
	}
	if utf8.RuneCountInString(sanitized) > MaxTitleLength {
		return "", fmt.Errorf("title exceeds maximum length of %d characters", MaxTitleLength)
	}
	return sanitized, nil
}

// FirstError returns a readable message for the first validator failure in err
func FirstError(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			return fmt.Sprintf("Validation failed: %s", fieldError.Error())
		}
	}
	return "Validation failed"
}
