package models

import (
	"errors"
	"fmt"
)

// ErrInvalidVisibility is returned for any string outside the visibility set
var ErrInvalidVisibility = errors.New("invalid visibility")

// Visibility is the filter applied when displaying a list of todos
type Visibility string

const (
	VisibilityAll       Visibility = "all"
	VisibilityActive    Visibility = "active"
	VisibilityCompleted Visibility = "completed"
)

// Visibilities returns every valid visibility in display order
func Visibilities() []Visibility {
	return []Visibility{VisibilityAll, VisibilityActive, VisibilityCompleted}
}

// ParseVisibility converts s into a Visibility. Matching is exact and case-sensitive.
func ParseVisibility(s string) (Visibility, error) {
	v := Visibility(s)
	if !v.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidVisibility, s)
	}
	return v, nil
}

// IsValid reports whether v is one of the three defined values
func (v Visibility) IsValid() bool {
	switch v {
	case VisibilityAll, VisibilityActive, VisibilityCompleted:
		return true
	default:
		return false
	}
}

func (v Visibility) String() string {
	return string(v)
}

// MarshalText implements encoding.TextMarshaler.
func (v Visibility) MarshalText() ([]byte, error) {
	if !v.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVisibility, string(v))
	}
	return []byte(v), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Invalid values are rejected.
func (v *Visibility) UnmarshalText(text []byte) error {
	parsed, err := ParseVisibility(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Matches reports whether t is shown under v. An invalid visibility matches nothing.
func (v Visibility) Matches(t Todo) bool {
	switch v {
	case VisibilityAll:
		return true
	case VisibilityActive:
		return !t.Completed
	case VisibilityCompleted:
		return t.Completed
	default:
		return false
	}
}

// FilterTodos returns the todos visible under v, preserving input order.
// The result is never nil.
func FilterTodos(todos []Todo, v Visibility) []Todo {
	filtered := make([]Todo, 0, len(todos))
	for _, t := range todos {
		if v.Matches(t) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// Counts holds the number of todos visible under each visibility
type Counts struct {
	All       int `json:"all"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
}

// CountTodos tallies todos per visibility
func CountTodos(todos []Todo) Counts {
	c := Counts{All: len(todos)}
	for _, t := range todos {
		if t.Completed {
			c.Completed++
		} else {
			c.Active++
		}
	}
	return c
}

// For returns the count for v, or zero for an invalid visibility
func (c Counts) For(v Visibility) int {
	switch v {
	case VisibilityAll:
		return c.All
	case VisibilityActive:
		return c.Active
	case VisibilityCompleted:
		return c.Completed
	default:
		return 0
	}
}
