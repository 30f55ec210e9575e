package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/jbweber/crucible/internal/descriptor"
	"github.com/jbweber/crucible/internal/diff"
	"github.com/jbweber/crucible/internal/domain"
	"github.com/jbweber/crucible/internal/validate"
)

// TableFormatter formats reports as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatSummary formats a domain summary as aligned key/value lines.
func (f *TableFormatter) FormatSummary(d *domain.Domain) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "Name:\t%s\n", d.Name)
	_, _ = fmt.Fprintf(w, "UUID:\t%s\n", d.UUID)
	if d.Type != "" {
		_, _ = fmt.Fprintf(w, "Type:\t%s\n", d.Type)
	}
	if d.Emulator != "" {
		_, _ = fmt.Fprintf(w, "Emulator:\t%s\n", d.Emulator)
	}
	_, _ = fmt.Fprintf(w, "Memory:\t%d KiB\n", d.MemoryKiB)
	_, _ = fmt.Fprintf(w, "VCPUs:\t%d\n", d.VCPUs)
	_, _ = fmt.Fprintf(w, "Devices:\t%d\n", len(d.Devices))
	if len(d.Unknown) > 0 {
		names := make([]string, len(d.Unknown))
		for i, u := range d.Unknown {
			names[i] = u.Name
		}
		_, _ = fmt.Fprintf(w, "Unknown:\t%s\n", strings.Join(names, ", "))
	}

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to format summary: %w", err)
	}
	return buf.String(), nil
}

// FormatWarnings formats parse warnings as a table.
func (f *TableFormatter) FormatWarnings(warnings []descriptor.Warning) (string, error) {
	if len(warnings) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "KIND\tELEMENT\tDETAIL")
	}
	for _, warn := range warnings {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", warn.Kind, warn.Element, warn.Detail)
	}

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to format warnings: %w", err)
	}
	return buf.String(), nil
}

// FormatViolations formats violations as a table.
func (f *TableFormatter) FormatViolations(violations []validate.Violation) (string, error) {
	if len(violations) == 0 {
		return "No violations found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "KIND\tPATH\tDETAIL")
	}
	for _, v := range violations {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", v.Kind, v.Path, v.Detail)
	}

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to format violations: %w", err)
	}
	return buf.String(), nil
}

// FormatDifferences formats structural differences as a table.
func (f *TableFormatter) FormatDifferences(differences []diff.Difference) (string, error) {
	if len(differences) == 0 {
		return "No differences found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "PATH\tEXPECTED\tACTUAL")
	}
	for _, d := range differences {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", d.Path, d.Expected, d.Actual)
	}

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to format differences: %w", err)
	}
	return buf.String(), nil
}
