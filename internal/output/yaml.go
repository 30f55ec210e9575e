package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/crucible/internal/descriptor"
	"github.com/jbweber/crucible/internal/diff"
	"github.com/jbweber/crucible/internal/domain"
	"github.com/jbweber/crucible/internal/validate"
)

// YAMLFormatter formats reports as YAML.
type YAMLFormatter struct{}

// FormatSummary formats a domain as YAML.
func (f *YAMLFormatter) FormatSummary(d *domain.Domain) (string, error) {
	return marshalYAML(d)
}

// FormatWarnings formats parse warnings as a YAML sequence.
func (f *YAMLFormatter) FormatWarnings(warnings []descriptor.Warning) (string, error) {
	if len(warnings) == 0 {
		return "[]\n", nil
	}
	return marshalYAML(warnings)
}

// FormatViolations formats violations as a YAML sequence.
func (f *YAMLFormatter) FormatViolations(violations []validate.Violation) (string, error) {
	if len(violations) == 0 {
		return "[]\n", nil
	}
	return marshalYAML(violations)
}

// FormatDifferences formats differences as a YAML sequence.
func (f *YAMLFormatter) FormatDifferences(differences []diff.Difference) (string, error) {
	if len(differences) == 0 {
		return "[]\n", nil
	}
	return marshalYAML(differences)
}

func marshalYAML(v interface{}) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	return string(data), nil
}
