// Package config provides the machine profile: tunable limits the
// normalizer and validator apply when a descriptor leaves them
// unspecified (PCI slot range, default controller capacities).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile describes the virtual hardware limits of the machine type a
// descriptor targets.
type Profile struct {
	// PCI describes the default PCI bus used for slot allocation.
	PCI PCIBusProfile `yaml:"pci"`

	// VirtioSerialPorts is the port capacity assumed for a
	// virtio-serial controller that does not declare one.
	VirtioSerialPorts uint `yaml:"virtio_serial_ports"`

	// CCIDSlots is the slot capacity assumed for a CCID controller.
	CCIDSlots uint `yaml:"ccid_slots"`

	// DIMMSlots is the number of memory module slots.
	DIMMSlots uint `yaml:"dimm_slots"`
}

// PCIBusProfile describes the slot range available for address
// allocation on the default PCI bus.
type PCIBusProfile struct {
	Bus uint `yaml:"bus"`

	// MinSlot is the first allocatable slot. Slot 0x00 is always the
	// host bridge and never allocated.
	MinSlot uint `yaml:"min_slot"`

	// MaxSlot is the last allocatable slot (inclusive).
	MaxSlot uint `yaml:"max_slot"`
}

// Default returns the profile for the standard i440FX-style machine:
// one PCI bus with slots 0x01-0x1f allocatable, 31 virtio-serial
// ports, 8 CCID slots, and 16 DIMM slots.
func Default() *Profile {
	return &Profile{
		PCI: PCIBusProfile{
			Bus:     0,
			MinSlot: 0x01,
			MaxSlot: 0x1f,
		},
		VirtioSerialPorts: 31,
		CCIDSlots:         8,
		DIMMSlots:         16,
	}
}

// Load reads a profile from a YAML file. Fields absent from the file
// keep their default values.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}

	return p, nil
}

// Validate checks the profile for errors.
func (p *Profile) Validate() error {
	if p.PCI.MinSlot == 0 {
		return fmt.Errorf("pci.min_slot must be > 0 (slot 0x00 is the host bridge)")
	}
	if p.PCI.MaxSlot > 0x1f {
		return fmt.Errorf("pci.max_slot must be <= 0x1f, got %#02x", p.PCI.MaxSlot)
	}
	if p.PCI.MinSlot > p.PCI.MaxSlot {
		return fmt.Errorf("pci.min_slot %#02x exceeds pci.max_slot %#02x", p.PCI.MinSlot, p.PCI.MaxSlot)
	}
	if p.VirtioSerialPorts == 0 {
		return fmt.Errorf("virtio_serial_ports must be > 0")
	}
	if p.CCIDSlots == 0 {
		return fmt.Errorf("ccid_slots must be > 0")
	}
	if p.DIMMSlots == 0 {
		return fmt.Errorf("dimm_slots must be > 0")
	}
	return nil
}
