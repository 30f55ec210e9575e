// Package output provides formatters for displaying crucible reports
// (domain summaries, parse warnings, violations, differences) in
// various formats (table, YAML, JSON).
package output

import (
	"fmt"

	"github.com/jbweber/crucible/internal/descriptor"
	"github.com/jbweber/crucible/internal/diff"
	"github.com/jbweber/crucible/internal/domain"
	"github.com/jbweber/crucible/internal/validate"
)

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable table format.
	FormatTable Format = "table"
	// FormatYAML is a YAML format for declarative consumption.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON format for machine consumption.
	FormatJSON Format = "json"
)

// Formatter formats crucible reports for output.
type Formatter interface {
	// FormatSummary formats a one-line-per-field domain summary.
	FormatSummary(d *domain.Domain) (string, error)

	// FormatWarnings formats parse warnings.
	FormatWarnings(warnings []descriptor.Warning) (string, error)

	// FormatViolations formats validation violations.
	FormatViolations(violations []validate.Violation) (string, error)

	// FormatDifferences formats structural differences.
	FormatDifferences(differences []diff.Difference) (string, error)
}

// Options contains options for formatting output.
type Options struct {
	// Format specifies the output format.
	Format Format
	// NoHeaders omits headers in table format.
	NoHeaders bool
}

// NewFormatter creates a new Formatter based on the specified format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, yaml, json)", opts.Format)
	}
}

// ValidateFormat checks if a format string is valid.
func ValidateFormat(format string) error {
	switch Format(format) {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid formats: table, yaml, json)", format)
	}
}
