package descriptor

import (
	"fmt"

	"github.com/jbweber/crucible/internal/config"
	"github.com/jbweber/crucible/internal/domain"
	"github.com/jbweber/crucible/internal/naming"
)

// pciAttached reports whether a device kind sits on the PCI bus and
// should receive a PCI address when it has none. PCI root controllers
// are excluded: the bus itself has no slot.
func pciAttached(dev *domain.Device) bool {
	switch dev.Kind {
	case domain.KindInterface, domain.KindSound, domain.KindVideo,
		domain.KindWatchdog, domain.KindRNG:
		return true
	case domain.KindBalloon:
		// A "none" balloon disables the device; it occupies no slot.
		return dev.Balloon != nil && dev.Balloon.Model != "none"
	case domain.KindController:
		return dev.Controller != nil && dev.Controller.Type != "pci"
	case domain.KindDisk:
		return dev.Disk != nil && dev.Disk.Bus == "virtio"
	}
	return false
}

// Normalize assigns missing aliases and addresses in place, using the
// machine profile for bus geometry. Assignment is deterministic: given
// unchanged input ordering it always produces the same result.
//
// Aliases are generated as <type><ordinal> with the ordinal scoped per
// device type, skipping names the descriptor already uses. PCI-attached
// devices receive the lowest free slot on the default PCI bus; channels
// on a virtio-serial controller receive the lowest free port; memory
// modules receive the lowest free DIMM slot.
func Normalize(d *domain.Domain, profile *config.Profile) error {
	if profile == nil {
		profile = config.Default()
	}

	assignAliases(d)

	if err := assignPCISlots(d, profile); err != nil {
		return err
	}
	assignVirtioSerialPorts(d)
	return assignDIMMSlots(d, profile)
}

func assignAliases(d *domain.Domain) {
	taken := make(map[string]bool)
	for i := range d.Devices {
		if a := d.Devices[i].Alias; a != "" {
			taken[a] = true
		}
	}

	next := make(map[domain.DeviceKind]int)
	for i := range d.Devices {
		dev := &d.Devices[i]
		if dev.Alias != "" {
			continue
		}
		// Graphics devices carry no alias in domain XML; assigning
		// one would not survive serialization.
		if dev.Kind == domain.KindGraphics {
			continue
		}
		n := next[dev.Kind]
		for taken[naming.Alias(dev.Kind, n)] {
			n++
		}
		dev.Alias = naming.Alias(dev.Kind, n)
		taken[dev.Alias] = true
		next[dev.Kind] = n + 1
	}
}

func assignPCISlots(d *domain.Domain, profile *config.Profile) error {
	occupied := make(map[uint]bool)
	for i := range d.Devices {
		addr := d.Devices[i].Address
		if addr == nil || addr.PCI == nil {
			continue
		}
		if addr.PCI.Domain == 0 && addr.PCI.Bus == profile.PCI.Bus {
			occupied[addr.PCI.Slot] = true
		}
	}

	for i := range d.Devices {
		dev := &d.Devices[i]
		if dev.Address != nil || !pciAttached(dev) {
			continue
		}

		slot, found := uint(0), false
		for s := profile.PCI.MinSlot; s <= profile.PCI.MaxSlot; s++ {
			if !occupied[s] {
				slot, found = s, true
				break
			}
		}
		if !found {
			return fmt.Errorf("no free PCI slot on bus %d for device %s (range %s-%s exhausted)",
				profile.PCI.Bus, dev.ID(),
				naming.PCISlot(profile.PCI.MinSlot), naming.PCISlot(profile.PCI.MaxSlot))
		}

		occupied[slot] = true
		dev.Address = &domain.Address{PCI: &domain.PCIAddress{
			Domain: 0,
			Bus:    profile.PCI.Bus,
			Slot:   slot,
		}}
	}
	return nil
}

// assignVirtioSerialPorts places unaddressed virtio channels on the
// lowest-indexed virtio-serial controller. Port 0 is reserved for the
// console on that bus, so allocation starts at 1. Domains without a
// virtio-serial controller are left alone; the channel stays
// unaddressed.
func assignVirtioSerialPorts(d *domain.Domain) {
	ctrl := lowestVirtioSerial(d)
	if ctrl == nil {
		return
	}
	index := ctrl.Controller.Index

	occupied := make(map[uint]bool)
	for i := range d.Devices {
		addr := d.Devices[i].Address
		if addr != nil && addr.VirtioSerial != nil && addr.VirtioSerial.Controller == index {
			occupied[addr.VirtioSerial.Port] = true
		}
	}

	for i := range d.Devices {
		dev := &d.Devices[i]
		if dev.Kind != domain.KindChannel || dev.Address != nil {
			continue
		}
		if dev.Channel == nil || dev.Channel.TargetType != "virtio" {
			continue
		}

		port := uint(1)
		for occupied[port] {
			port++
		}
		occupied[port] = true
		dev.Address = &domain.Address{VirtioSerial: &domain.VirtioSerialAddress{
			Controller: index,
			Port:       port,
		}}
	}
}

func lowestVirtioSerial(d *domain.Domain) *domain.Device {
	var best *domain.Device
	for i := range d.Devices {
		dev := &d.Devices[i]
		if dev.Kind != domain.KindController || dev.Controller == nil {
			continue
		}
		if dev.Controller.Type != "virtio-serial" {
			continue
		}
		if best == nil || dev.Controller.Index < best.Controller.Index {
			best = dev
		}
	}
	return best
}

func assignDIMMSlots(d *domain.Domain, profile *config.Profile) error {
	occupied := make(map[uint]bool)
	for i := range d.Devices {
		addr := d.Devices[i].Address
		if addr != nil && addr.DIMM != nil {
			occupied[addr.DIMM.Slot] = true
		}
	}

	for i := range d.Devices {
		dev := &d.Devices[i]
		if dev.Kind != domain.KindMemoryModule || dev.Address != nil {
			continue
		}

		slot, found := uint(0), false
		for s := uint(0); s < profile.DIMMSlots; s++ {
			if !occupied[s] {
				slot, found = s, true
				break
			}
		}
		if !found {
			return fmt.Errorf("no free DIMM slot for device %s (%d slots)", dev.ID(), profile.DIMMSlots)
		}

		occupied[slot] = true
		dev.Address = &domain.Address{DIMM: &domain.DIMMAddress{Slot: slot}}
	}
	return nil
}
