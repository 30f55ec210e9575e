package descriptor

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"libvirt.org/go/libvirtxml"

	"github.com/jbweber/crucible/internal/domain"
)

// Parse decodes a libvirt domain XML descriptor into the schema model.
//
// Device elements outside the supported set are preserved opaquely on
// the returned Domain and reported as warnings. A structurally invalid
// document (bad XML, missing name, missing or non-hex UUID) returns a
// *MalformedInputError.
func Parse(data []byte) (*domain.Domain, []Warning, error) {
	x := &libvirtxml.Domain{}
	if err := x.Unmarshal(string(data)); err != nil {
		return nil, nil, &MalformedInputError{Field: "domain", Reason: "invalid XML", Err: err}
	}

	if x.Name == "" {
		return nil, nil, &MalformedInputError{Field: "name", Reason: "required attribute is absent"}
	}
	if x.UUID == "" {
		return nil, nil, &MalformedInputError{Field: "uuid", Reason: "required attribute is absent"}
	}
	if _, err := uuid.Parse(x.UUID); err != nil {
		return nil, nil, &MalformedInputError{Field: "uuid", Reason: fmt.Sprintf("%q is not a valid UUID", x.UUID), Err: err}
	}

	d := &domain.Domain{
		Type:       x.Type,
		Name:       x.Name,
		UUID:       x.UUID,
		OnPoweroff: domain.LifecycleAction(x.OnPoweroff),
		OnReboot:   domain.LifecycleAction(x.OnReboot),
		OnCrash:    domain.LifecycleAction(x.OnCrash),
	}

	if x.Memory != nil {
		kib, err := toKiB(uint64(x.Memory.Value), x.Memory.Unit)
		if err != nil {
			return nil, nil, &MalformedInputError{Field: "memory", Reason: "invalid unit", Err: err}
		}
		d.MemoryKiB = kib
	}
	if x.CurrentMemory != nil {
		kib, err := toKiB(uint64(x.CurrentMemory.Value), x.CurrentMemory.Unit)
		if err != nil {
			return nil, nil, &MalformedInputError{Field: "currentMemory", Reason: "invalid unit", Err: err}
		}
		d.CurrentMemoryKiB = kib
	}
	if x.VCPU != nil {
		d.VCPUs = uint(x.VCPU.Value)
	}

	if x.Devices != nil {
		d.Emulator = x.Devices.Emulator
		d.Devices = convertDevices(x.Devices)
	}

	unknown, warnings, err := collectUnknown(data)
	if err != nil {
		return nil, nil, &MalformedInputError{Field: "devices", Reason: "invalid XML", Err: err}
	}
	d.Unknown = unknown

	return d, warnings, nil
}

// convertDevices flattens the per-kind lists of a libvirtxml device
// list into the model's single ordered device sequence. The order is
// kind-grouped, matching the order libvirt itself emits.
func convertDevices(devs *libvirtxml.DomainDeviceList) []domain.Device {
	var out []domain.Device

	for i := range devs.Controllers {
		c := &devs.Controllers[i]
		ctrl := &domain.Controller{Type: c.Type, Model: c.Model}
		if c.Index != nil {
			ctrl.Index = *c.Index
		}
		if c.VirtIOSerial != nil && c.VirtIOSerial.Ports != nil {
			ctrl.Ports = *c.VirtIOSerial.Ports
		}
		out = append(out, domain.Device{
			Kind:       domain.KindController,
			Alias:      aliasName(c.Alias),
			Address:    convertAddress(c.Address),
			Controller: ctrl,
		})
	}

	for i := range devs.Disks {
		dk := &devs.Disks[i]
		disk := &domain.Disk{Device: dk.Device}
		if dk.Target != nil {
			disk.Target = dk.Target.Dev
			disk.Bus = dk.Target.Bus
		}
		if dk.Driver != nil {
			disk.Format = dk.Driver.Type
		}
		if dk.Source != nil {
			switch {
			case dk.Source.File != nil:
				disk.Source = dk.Source.File.File
			case dk.Source.Block != nil:
				disk.Source = dk.Source.Block.Dev
			case dk.Source.Volume != nil:
				disk.Source = dk.Source.Volume.Pool + "/" + dk.Source.Volume.Volume
			}
		}
		disk.ReadOnly = dk.ReadOnly != nil
		out = append(out, domain.Device{
			Kind:      domain.KindDisk,
			Alias:     aliasName(dk.Alias),
			Address:   convertAddress(dk.Address),
			BootOrder: bootOrder(dk.Boot),
			Disk:      disk,
		})
	}

	for i := range devs.Interfaces {
		in := &devs.Interfaces[i]
		iface := &domain.Interface{}
		if in.Source != nil {
			switch {
			case in.Source.Bridge != nil:
				iface.Type = "bridge"
				iface.Source = in.Source.Bridge.Bridge
			case in.Source.Network != nil:
				iface.Type = "network"
				iface.Source = in.Source.Network.Network
			case in.Source.User != nil:
				iface.Type = "user"
			}
		}
		if in.MAC != nil {
			iface.MAC = in.MAC.Address
		}
		if in.Model != nil {
			iface.Model = in.Model.Type
		}
		out = append(out, domain.Device{
			Kind:      domain.KindInterface,
			Alias:     aliasName(in.Alias),
			Address:   convertAddress(in.Address),
			BootOrder: bootOrder(in.Boot),
			Interface: iface,
		})
	}

	for i := range devs.Channels {
		ch := &devs.Channels[i]
		channel := &domain.Channel{Type: chardevKind(ch.Source)}
		if ch.Target != nil {
			switch {
			case ch.Target.VirtIO != nil:
				channel.TargetType = "virtio"
				channel.TargetName = ch.Target.VirtIO.Name
			case ch.Target.GuestFWD != nil:
				channel.TargetType = "guestfwd"
			case ch.Target.Xen != nil:
				channel.TargetType = "xen"
				channel.TargetName = ch.Target.Xen.Name
			}
		}
		out = append(out, domain.Device{
			Kind:    domain.KindChannel,
			Alias:   aliasName(ch.Alias),
			Address: convertAddress(ch.Address),
			Channel: channel,
		})
	}

	for i := range devs.Consoles {
		cn := &devs.Consoles[i]
		console := &domain.Console{Type: chardevKind(cn.Source)}
		if cn.Target != nil {
			console.TargetType = cn.Target.Type
		}
		out = append(out, domain.Device{
			Kind:    domain.KindConsole,
			Alias:   aliasName(cn.Alias),
			Address: convertAddress(cn.Address),
			Console: console,
		})
	}

	for i := range devs.Sounds {
		s := &devs.Sounds[i]
		out = append(out, domain.Device{
			Kind:    domain.KindSound,
			Alias:   aliasName(s.Alias),
			Address: convertAddress(s.Address),
			Sound:   &domain.Sound{Model: s.Model},
		})
	}

	for i := range devs.Videos {
		v := &devs.Videos[i]
		out = append(out, domain.Device{
			Kind:    domain.KindVideo,
			Alias:   aliasName(v.Alias),
			Address: convertAddress(v.Address),
			Video: &domain.Video{
				Model: v.Model.Type,
				VRAM:  v.Model.VRam,
				Heads: v.Model.Heads,
			},
		})
	}

	for i := range devs.Watchdogs {
		w := &devs.Watchdogs[i]
		out = append(out, domain.Device{
			Kind:     domain.KindWatchdog,
			Alias:    aliasName(w.Alias),
			Address:  convertAddress(w.Address),
			Watchdog: &domain.Watchdog{Model: w.Model, Action: w.Action},
		})
	}

	// Model "none" is kept: dropping it would flip the descriptor's
	// meaning, since libvirt adds a default balloon when the element
	// is absent.
	if devs.MemBalloon != nil {
		mb := devs.MemBalloon
		out = append(out, domain.Device{
			Kind:    domain.KindBalloon,
			Alias:   aliasName(mb.Alias),
			Address: convertAddress(mb.Address),
			Balloon: &domain.Balloon{Model: mb.Model},
		})
	}

	for i := range devs.RNGs {
		r := &devs.RNGs[i]
		rng := &domain.RNG{Model: r.Model}
		if r.Backend != nil {
			switch {
			case r.Backend.Random != nil:
				rng.Backend = "random"
				rng.Device = r.Backend.Random.Device
			case r.Backend.EGD != nil:
				rng.Backend = "egd"
			}
		}
		out = append(out, domain.Device{
			Kind:    domain.KindRNG,
			Alias:   aliasName(r.Alias),
			Address: convertAddress(r.Address),
			RNG:     rng,
		})
	}

	for i := range devs.Memorydevs {
		m := &devs.Memorydevs[i]
		mod := &domain.MemoryModule{Model: m.Model}
		if m.Target != nil {
			if m.Target.Size != nil {
				if kib, err := toKiB(uint64(m.Target.Size.Value), m.Target.Size.Unit); err == nil {
					mod.SizeKiB = kib
				}
			}
			if m.Target.Node != nil {
				mod.Node = m.Target.Node.Value
			}
		}
		out = append(out, domain.Device{
			Kind:         domain.KindMemoryModule,
			Alias:        aliasName(m.Alias),
			Address:      convertAddress(m.Address),
			MemoryModule: mod,
		})
	}

	for i := range devs.Graphics {
		g := &devs.Graphics[i]
		gfx := &domain.Graphics{}
		switch {
		case g.VNC != nil:
			gfx.Type = "vnc"
			gfx.Port = g.VNC.Port
			gfx.AutoPort = g.VNC.AutoPort == "yes"
		case g.Spice != nil:
			gfx.Type = "spice"
			gfx.Port = g.Spice.Port
			gfx.AutoPort = g.Spice.AutoPort == "yes"
		case g.SDL != nil:
			gfx.Type = "sdl"
		case g.RDP != nil:
			gfx.Type = "rdp"
			gfx.Port = g.RDP.Port
		case g.Desktop != nil:
			gfx.Type = "desktop"
		case g.EGLHeadless != nil:
			gfx.Type = "egl-headless"
		}
		out = append(out, domain.Device{
			Kind:     domain.KindGraphics,
			Graphics: gfx,
		})
	}

	for i := range devs.Inputs {
		in := &devs.Inputs[i]
		out = append(out, domain.Device{
			Kind:    domain.KindInput,
			Alias:   aliasName(in.Alias),
			Address: convertAddress(in.Address),
			Input:   &domain.Input{Type: in.Type, Bus: in.Bus},
		})
	}

	for i := range devs.Smartcards {
		sc := &devs.Smartcards[i]
		card := &domain.Smartcard{}
		switch {
		case sc.Passthrough != nil:
			card.Mode = "passthrough"
		case len(sc.HostCerts) > 0:
			card.Mode = "host-certificates"
			for _, cert := range sc.HostCerts {
				card.Certificates = append(card.Certificates, cert.File)
			}
		default:
			card.Mode = "host"
		}
		out = append(out, domain.Device{
			Kind:      domain.KindSmartcard,
			Alias:     aliasName(sc.Alias),
			Address:   convertAddress(sc.Address),
			Smartcard: card,
		})
	}

	return out
}

// convertAddress maps a libvirtxml address to the model's tagged
// variant. Address kinds outside the supported set (usb, ccw, isa)
// convert to nil; the device itself is still interpreted.
func convertAddress(a *libvirtxml.DomainAddress) *domain.Address {
	if a == nil {
		return nil
	}
	switch {
	case a.PCI != nil:
		return &domain.Address{PCI: &domain.PCIAddress{
			Domain:   derefUint(a.PCI.Domain),
			Bus:      derefUint(a.PCI.Bus),
			Slot:     derefUint(a.PCI.Slot),
			Function: derefUint(a.PCI.Function),
		}}
	case a.Drive != nil:
		return &domain.Address{Drive: &domain.DriveAddress{
			Controller: derefUint(a.Drive.Controller),
			Bus:        derefUint(a.Drive.Bus),
			Target:     derefUint(a.Drive.Target),
			Unit:       derefUint(a.Drive.Unit),
		}}
	case a.CCID != nil:
		return &domain.Address{CCID: &domain.CCIDAddress{
			Controller: derefUint(a.CCID.Controller),
			Slot:       derefUint(a.CCID.Slot),
		}}
	case a.VirtioSerial != nil:
		return &domain.Address{VirtioSerial: &domain.VirtioSerialAddress{
			Controller: derefUint(a.VirtioSerial.Controller),
			Bus:        derefUint(a.VirtioSerial.Bus),
			Port:       derefUint(a.VirtioSerial.Port),
		}}
	case a.DIMM != nil:
		addr := &domain.DIMMAddress{Slot: derefUint(a.DIMM.Slot)}
		if a.DIMM.Base != nil {
			addr.Base = *a.DIMM.Base
		}
		return &domain.Address{DIMM: addr}
	}
	return nil
}

// chardevKind names the host-side chardev variant of a channel,
// console, or smartcard source.
func chardevKind(s *libvirtxml.DomainChardevSource) string {
	if s == nil {
		return ""
	}
	switch {
	case s.UNIX != nil:
		return "unix"
	case s.Pty != nil:
		return "pty"
	case s.SpiceVMC != nil:
		return "spicevmc"
	case s.SpicePort != nil:
		return "spiceport"
	case s.Dev != nil:
		return "dev"
	case s.File != nil:
		return "file"
	case s.TCP != nil:
		return "tcp"
	case s.UDP != nil:
		return "udp"
	case s.Null != nil:
		return "null"
	case s.StdIO != nil:
		return "stdio"
	case s.VC != nil:
		return "vc"
	case s.Pipe != nil:
		return "pipe"
	}
	return ""
}

func aliasName(a *libvirtxml.DomainAlias) string {
	if a == nil {
		return ""
	}
	return a.Name
}

func bootOrder(b *libvirtxml.DomainDeviceBoot) uint {
	if b == nil {
		return 0
	}
	return b.Order
}

func derefUint(p *uint) uint {
	if p == nil {
		return 0
	}
	return *p
}

// toKiB converts a sized value to KiB. Libvirt accepts both power-of-two
// and power-of-ten unit suffixes; an empty unit means KiB.
func toKiB(value uint64, unit string) (uint64, error) {
	switch strings.ToLower(unit) {
	case "", "k", "kib":
		return value, nil
	case "b", "bytes":
		return value / 1024, nil
	case "kb":
		return value * 1000 / 1024, nil
	case "m", "mib":
		return value * 1024, nil
	case "mb":
		return value * 1000 * 1000 / 1024, nil
	case "g", "gib":
		return value * 1024 * 1024, nil
	case "gb":
		return value * 1000 * 1000 * 1000 / 1024, nil
	case "t", "tib":
		return value * 1024 * 1024 * 1024, nil
	case "tb":
		return value * 1000 * 1000 * 1000 * 1000 / 1024, nil
	}
	return 0, fmt.Errorf("unknown memory unit %q", unit)
}
