package serializers

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// NonFieldErrors is the key used for errors that do not belong to one field
const NonFieldErrors = "non_field_errors"

// ValidationError collects failure reasons per wire field.
// It encodes to JSON as {"field": ["reason", ...]}.
type ValidationError struct {
	Fields map[string][]string
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a reason for field
func (e *ValidationError) Add(field, reason string) {
	e.Fields[field] = append(e.Fields[field], reason)
}

// HasErrors reports whether any field failed
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Fields)
}
