package descriptor

import "fmt"

// MalformedInputError reports a structurally invalid descriptor:
// unparseable XML or a missing/invalid required attribute. It is fatal
// to parsing and propagated to the caller, never recovered.
type MalformedInputError struct {
	// Field is the descriptor location that failed (e.g., "uuid").
	Field string

	// Reason describes what was wrong.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

func (e *MalformedInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed descriptor: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed descriptor: %s: %s", e.Field, e.Reason)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// WarningKind classifies a non-fatal parse finding.
type WarningKind string

// WarnUnsupportedConstruct marks a syntactically valid device element
// outside the supported set. The element is preserved opaquely; the
// warning only surfaces that it was not interpreted.
const WarnUnsupportedConstruct WarningKind = "UnsupportedConstruct"

// Warning is a non-fatal parse finding. Warnings are returned as data,
// never as errors.
type Warning struct {
	Kind    WarningKind `json:"kind" yaml:"kind"`
	Element string      `json:"element" yaml:"element"`
	Detail  string      `json:"detail" yaml:"detail"`
}
