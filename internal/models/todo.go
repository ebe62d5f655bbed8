package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrMissingField is returned when a Todo document lacks one of its required fields
var ErrMissingField = errors.New("missing required field")

// shapeValidate checks required fields on decoded Todo documents.
var shapeValidate = newShapeValidator()

func newShapeValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Todo represents a single todo item
type Todo struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// todoDocument mirrors Todo with pointer fields so absent and null keys can be told apart
type todoDocument struct {
	ID        *int64  `json:"id" validate:"required"`
	Title     *string `json:"title" validate:"required"`
	Completed *bool   `json:"completed" validate:"required"`
}

// UnmarshalJSON decodes a Todo and rejects documents that miss a field or carry
// a field of the wrong kind. Unknown keys are ignored.
func (t *Todo) UnmarshalJSON(data []byte) error {
	var doc todoDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid todo: %w", err)
	}

	if err := shapeValidate.Struct(doc); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			missing := make([]string, 0, len(validationErrors))
			for _, fieldError := range validationErrors {
				missing = append(missing, fieldError.Field())
			}
			return fmt.Errorf("invalid todo: %w: %s", ErrMissingField, strings.Join(missing, ", "))
		}
		return fmt.Errorf("invalid todo: %w", err)
	}

	*t = Todo{
		ID:        *doc.ID,
		Title:     *doc.Title,
		Completed: *doc.Completed,
	}
	return nil
}

// Toggled returns a copy of the todo with its completion flag flipped
func (t Todo) Toggled() Todo {
	t.Completed = !t.Completed
	return t
}
