// Package inspect ties descriptor retrieval, parsing, and validation
// together into a single report for a live libvirt domain.
package inspect

import (
	"fmt"

	"github.com/jbweber/crucible/internal/config"
	"github.com/jbweber/crucible/internal/descriptor"
	"github.com/jbweber/crucible/internal/domain"
	"github.com/jbweber/crucible/internal/validate"
)

// Source retrieves domain XML descriptors. *libvirt.Client satisfies
// this; tests supply a mock.
type Source interface {
	DomainXML(name string) (string, error)
}

// Report is the result of inspecting a single domain.
type Report struct {
	Domain     *domain.Domain       `json:"domain" yaml:"domain"`
	Warnings   []descriptor.Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Violations []validate.Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
}

// Clean reports whether the domain parsed without warnings and
// validated without violations.
func (r *Report) Clean() bool {
	return len(r.Warnings) == 0 && len(r.Violations) == 0
}

// Inspect retrieves the named domain's descriptor from src, parses it,
// and validates it against profile. A nil profile uses config.Default.
func Inspect(src Source, name string, profile *config.Profile) (*Report, error) {
	xml, err := src.DomainXML(name)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve descriptor for %s: %w", name, err)
	}

	d, warnings, err := descriptor.Parse([]byte(xml))
	if err != nil {
		return nil, fmt.Errorf("failed to parse descriptor for %s: %w", name, err)
	}

	return &Report{
		Domain:     d,
		Warnings:   warnings,
		Violations: validate.Check(d, profile),
	}, nil
}
