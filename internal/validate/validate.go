// Package validate checks cross-entity invariants of a domain
// descriptor: alias uniqueness, address uniqueness, controller
// references and capacity, and memory region overlap.
//
// Validation is pure and side-effect-free: violations are collected
// and returned as data, never raised as errors. An empty result means
// the domain is valid.
package validate

import (
	"fmt"
	"sort"

	"github.com/jbweber/crucible/internal/config"
	"github.com/jbweber/crucible/internal/domain"
	"github.com/jbweber/crucible/internal/naming"
)

// ViolationKind classifies an invariant violation.
type ViolationKind string

const (
	// DuplicateAlias: two or more devices share one alias.
	DuplicateAlias ViolationKind = "DuplicateAlias"

	// DuplicateAddress: two or more devices share an identical
	// address of the same kind.
	DuplicateAddress ViolationKind = "DuplicateAddress"

	// DanglingControllerRef: an address references a controller index
	// that no controller of the required type has.
	DanglingControllerRef ViolationKind = "DanglingControllerRef"

	// CapacityExceeded: an address uses a port or slot beyond its
	// controller's capacity.
	CapacityExceeded ViolationKind = "CapacityExceeded"

	// OverlappingRegion: two memory modules occupy intersecting
	// guest-physical regions.
	OverlappingRegion ViolationKind = "OverlappingRegion"
)

// Violation is one invariant failure. Keys carries the identifying
// keys involved: the duplicated alias or address key first, then the
// paths of every device implicated.
type Violation struct {
	Kind   ViolationKind `json:"kind" yaml:"kind"`
	Path   string        `json:"path" yaml:"path"`
	Keys   []string      `json:"keys" yaml:"keys"`
	Detail string        `json:"detail" yaml:"detail"`
}

// Check validates a domain against the machine profile and returns the
// ordered list of violations. A nil profile means the default profile.
func Check(d *domain.Domain, profile *config.Profile) []Violation {
	if profile == nil {
		profile = config.Default()
	}

	var out []Violation
	out = append(out, checkAliases(d)...)
	out = append(out, checkAddresses(d)...)
	out = append(out, checkControllerRefs(d, profile)...)
	out = append(out, checkMemoryRegions(d)...)
	return out
}

// checkAliases reports one violation per duplicated alias value,
// regardless of how many devices share it.
func checkAliases(d *domain.Domain) []Violation {
	byAlias := make(map[string][]int)
	var order []string
	for i := range d.Devices {
		a := d.Devices[i].Alias
		if a == "" {
			continue
		}
		if len(byAlias[a]) == 0 {
			order = append(order, a)
		}
		byAlias[a] = append(byAlias[a], i)
	}

	var out []Violation
	for _, a := range order {
		idx := byAlias[a]
		if len(idx) < 2 {
			continue
		}
		keys := []string{a}
		for _, i := range idx {
			keys = append(keys, domain.Path(d.Devices, i))
		}
		out = append(out, Violation{
			Kind:   DuplicateAlias,
			Path:   domain.Path(d.Devices, idx[0]),
			Keys:   keys,
			Detail: fmt.Sprintf("alias %q used by %d devices", a, len(idx)),
		})
	}
	return out
}

// checkAddresses reports one violation per address key shared by more
// than one device. Address identity is the canonical kind-qualified
// key, so addresses of different kinds never collide.
func checkAddresses(d *domain.Domain) []Violation {
	byKey := make(map[string][]int)
	var order []string
	for i := range d.Devices {
		key := d.Devices[i].Address.Key()
		if key == "" {
			continue
		}
		if len(byKey[key]) == 0 {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], i)
	}

	var out []Violation
	for _, key := range order {
		idx := byKey[key]
		if len(idx) < 2 {
			continue
		}
		keys := []string{key}
		names := make([]string, 0, len(idx))
		for _, i := range idx {
			p := domain.Path(d.Devices, i)
			keys = append(keys, p)
			names = append(names, d.Devices[i].ID())
		}
		out = append(out, Violation{
			Kind:   DuplicateAddress,
			Path:   domain.Path(d.Devices, idx[0]),
			Keys:   keys,
			Detail: fmt.Sprintf("address %s shared by %v", key, names),
		})
	}
	return out
}

// driveControllerTypes maps a disk target bus to the controller type a
// drive address on that bus references.
var driveControllerTypes = map[string]string{
	"scsi": "scsi",
	"ide":  "ide",
	"sata": "sata",
	"usb":  "usb",
	"fdc":  "fdc",
}

func checkControllerRefs(d *domain.Domain, profile *config.Profile) []Violation {
	var out []Violation

	for i := range d.Devices {
		dev := &d.Devices[i]
		if dev.Address == nil {
			continue
		}

		switch {
		case dev.Address.VirtioSerial != nil:
			addr := dev.Address.VirtioSerial
			ctrl := d.FindController("virtio-serial", addr.Controller)
			if ctrl == nil {
				out = append(out, dangling(d, i, "virtio-serial", addr.Controller))
				continue
			}
			ports := ctrl.Controller.Ports
			if ports == 0 {
				ports = profile.VirtioSerialPorts
			}
			if addr.Port >= ports {
				out = append(out, Violation{
					Kind: CapacityExceeded,
					Path: domain.Path(d.Devices, i),
					Keys: []string{naming.ControllerRef("virtio-serial", addr.Controller), dev.ID()},
					Detail: fmt.Sprintf("port %d exceeds virtio-serial controller %d capacity of %d ports",
						addr.Port, addr.Controller, ports),
				})
			}

		case dev.Address.CCID != nil:
			addr := dev.Address.CCID
			ctrl := d.FindController("ccid", addr.Controller)
			if ctrl == nil {
				out = append(out, dangling(d, i, "ccid", addr.Controller))
				continue
			}
			if addr.Slot >= profile.CCIDSlots {
				out = append(out, Violation{
					Kind: CapacityExceeded,
					Path: domain.Path(d.Devices, i),
					Keys: []string{naming.ControllerRef("ccid", addr.Controller), dev.ID()},
					Detail: fmt.Sprintf("slot %d exceeds ccid controller %d capacity of %d slots",
						addr.Slot, addr.Controller, profile.CCIDSlots),
				})
			}

		case dev.Address.Drive != nil:
			if dev.Kind != domain.KindDisk || dev.Disk == nil {
				continue
			}
			ctype := driveControllerTypes[dev.Disk.Bus]
			if ctype == "" {
				continue
			}
			if d.FindController(ctype, dev.Address.Drive.Controller) == nil {
				out = append(out, dangling(d, i, ctype, dev.Address.Drive.Controller))
			}
		}
	}

	return out
}

func dangling(d *domain.Domain, i int, ctype string, index uint) Violation {
	return Violation{
		Kind: DanglingControllerRef,
		Path: domain.Path(d.Devices, i),
		Keys: []string{naming.ControllerRef(ctype, index), d.Devices[i].ID()},
		Detail: fmt.Sprintf("address references %s controller %d, which does not exist",
			ctype, index),
	}
}

// checkMemoryRegions reports every pair of memory modules whose
// guest-physical regions [base, base+size) intersect. Modules without
// a base offset do not participate.
func checkMemoryRegions(d *domain.Domain) []Violation {
	type region struct {
		index      int
		start, end uint64
	}

	var regions []region
	for i := range d.Devices {
		dev := &d.Devices[i]
		if dev.Kind != domain.KindMemoryModule || dev.MemoryModule == nil {
			continue
		}
		if dev.Address == nil || dev.Address.DIMM == nil {
			continue
		}
		base := dev.Address.DIMM.Base
		size := dev.MemoryModule.SizeKiB * 1024
		if base == 0 || size == 0 {
			continue
		}
		regions = append(regions, region{index: i, start: base, end: base + size})
	}

	sort.Slice(regions, func(a, b int) bool {
		if regions[a].start != regions[b].start {
			return regions[a].start < regions[b].start
		}
		return regions[a].index < regions[b].index
	})

	var out []Violation
	for a := 0; a < len(regions); a++ {
		for b := a + 1; b < len(regions); b++ {
			if regions[b].start >= regions[a].end {
				break
			}
			ra, rb := regions[a], regions[b]
			out = append(out, Violation{
				Kind: OverlappingRegion,
				Path: domain.Path(d.Devices, ra.index),
				Keys: []string{
					domain.Path(d.Devices, ra.index),
					domain.Path(d.Devices, rb.index),
				},
				Detail: fmt.Sprintf("region [0x%x, 0x%x) overlaps region [0x%x, 0x%x)",
					ra.start, ra.end, rb.start, rb.end),
			})
		}
	}
	return out
}
