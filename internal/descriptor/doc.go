// Package descriptor converts between raw libvirt domain XML and the
// typed schema model in internal/domain.
//
// The package provides three operations:
//   - Parse: decode a descriptor, returning the model plus warnings
//     for constructs outside the supported device set. Unknown
//     elements are preserved opaquely, never rejected.
//   - Normalize: assign deterministic aliases and canonical addresses
//     to devices that lack them.
//   - Serialize: render the model back to domain XML, re-injecting
//     preserved unknown elements.
//
// All operations are pure and in-memory; the caller supplies the raw
// document (see internal/loader for file acquisition).
package descriptor
