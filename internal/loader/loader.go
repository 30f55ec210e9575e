// Package loader provides functions for loading domain descriptors
// from XML files on disk.
package loader

import (
	"fmt"
	"os"

	"github.com/jbweber/crucible/internal/descriptor"
	"github.com/jbweber/crucible/internal/domain"
)

// LoadFromFile reads a libvirt domain XML file and parses it into the
// internal model. Parse warnings (unsupported constructs that were
// preserved verbatim) are returned alongside the domain.
func LoadFromFile(path string) (*domain.Domain, []descriptor.Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	d, warnings, err := descriptor.Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return d, warnings, nil
}

// SaveToFile serializes a domain back to XML and writes it to path.
func SaveToFile(d *domain.Domain, path string) error {
	out, err := descriptor.Serialize(d)
	if err != nil {
		return fmt.Errorf("failed to serialize domain: %w", err)
	}

	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}
