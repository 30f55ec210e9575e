// Package domain defines the typed schema model for a libvirt domain
// descriptor.
//
// A Domain is built once from an external XML descriptor (see
// internal/descriptor), optionally normalized, and then treated as
// immutable for the remainder of a validation or comparison cycle.
//
// Device and Address are closed sets of tagged variants: each variant
// carries only the fields valid for that kind, so invalid field
// combinations cannot be constructed. Uniqueness constraints (aliases,
// addresses) are not enforced here; they are checked by explicit passes
// in internal/validate, keeping construction side-effect-free.
package domain
