package output

import (
	"encoding/json"
	"fmt"

	"github.com/jbweber/crucible/internal/descriptor"
	"github.com/jbweber/crucible/internal/diff"
	"github.com/jbweber/crucible/internal/domain"
	"github.com/jbweber/crucible/internal/validate"
)

// JSONFormatter formats reports as JSON.
type JSONFormatter struct{}

// FormatSummary formats a domain as JSON.
func (f *JSONFormatter) FormatSummary(d *domain.Domain) (string, error) {
	return marshalJSON(d)
}

// FormatWarnings formats parse warnings as a JSON array.
func (f *JSONFormatter) FormatWarnings(warnings []descriptor.Warning) (string, error) {
	if len(warnings) == 0 {
		return "[]\n", nil
	}
	return marshalJSON(warnings)
}

// FormatViolations formats violations as a JSON array.
func (f *JSONFormatter) FormatViolations(violations []validate.Violation) (string, error) {
	if len(violations) == 0 {
		return "[]\n", nil
	}
	return marshalJSON(violations)
}

// FormatDifferences formats differences as a JSON array.
func (f *JSONFormatter) FormatDifferences(differences []diff.Difference) (string, error) {
	if len(differences) == 0 {
		return "[]\n", nil
	}
	return marshalJSON(differences)
}

func marshalJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	return string(data) + "\n", nil
}
