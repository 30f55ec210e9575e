package descriptor

import (
	"fmt"
	"strings"

	"libvirt.org/go/libvirtxml"

	"github.com/jbweber/crucible/internal/domain"
)

// Serialize renders the model back to libvirt domain XML. Preserved
// unknown elements are re-injected into the device list verbatim, so
// Parse(Serialize(d)) sees the same domain d describes.
func Serialize(d *domain.Domain) (string, error) {
	x := &libvirtxml.Domain{
		Type:       d.Type,
		Name:       d.Name,
		UUID:       d.UUID,
		OnPoweroff: string(d.OnPoweroff),
		OnReboot:   string(d.OnReboot),
		OnCrash:    string(d.OnCrash),
		Devices:    &libvirtxml.DomainDeviceList{Emulator: d.Emulator},
	}

	if d.MemoryKiB > 0 {
		x.Memory = &libvirtxml.DomainMemory{Value: uint(d.MemoryKiB), Unit: "KiB"}
	}
	if d.CurrentMemoryKiB > 0 {
		x.CurrentMemory = &libvirtxml.DomainCurrentMemory{Value: uint(d.CurrentMemoryKiB), Unit: "KiB"}
	}
	if d.VCPUs > 0 {
		x.VCPU = &libvirtxml.DomainVCPU{Value: d.VCPUs}
	}

	for i := range d.Devices {
		if err := appendDevice(x.Devices, &d.Devices[i]); err != nil {
			return "", err
		}
	}

	out, err := x.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to marshal domain %s: %w", d.Name, err)
	}

	if len(d.Unknown) > 0 {
		var frag strings.Builder
		for _, u := range d.Unknown {
			frag.WriteString(u.XML)
			frag.WriteString("\n")
		}
		out = strings.Replace(out, "</devices>", frag.String()+"</devices>", 1)
	}

	return out, nil
}

func appendDevice(devs *libvirtxml.DomainDeviceList, dev *domain.Device) error {
	alias := xmlAlias(dev.Alias)
	addr := xmlAddress(dev.Address)
	boot := xmlBoot(dev.BootOrder)

	switch dev.Kind {
	case domain.KindController:
		c := libvirtxml.DomainController{
			Type:    dev.Controller.Type,
			Index:   uintPtr(dev.Controller.Index),
			Model:   dev.Controller.Model,
			Alias:   alias,
			Address: addr,
		}
		if dev.Controller.Type == "virtio-serial" && dev.Controller.Ports > 0 {
			c.VirtIOSerial = &libvirtxml.DomainControllerVirtIOSerial{
				Ports: uintPtr(dev.Controller.Ports),
			}
		}
		devs.Controllers = append(devs.Controllers, c)

	case domain.KindDisk:
		dk := libvirtxml.DomainDisk{
			Device:  dev.Disk.Device,
			Alias:   alias,
			Address: addr,
			Boot:    boot,
		}
		if dev.Disk.Target != "" || dev.Disk.Bus != "" {
			dk.Target = &libvirtxml.DomainDiskTarget{Dev: dev.Disk.Target, Bus: dev.Disk.Bus}
		}
		if dev.Disk.Format != "" {
			dk.Driver = &libvirtxml.DomainDiskDriver{Name: "qemu", Type: dev.Disk.Format}
		}
		if dev.Disk.Source != "" {
			dk.Source = &libvirtxml.DomainDiskSource{
				File: &libvirtxml.DomainDiskSourceFile{File: dev.Disk.Source},
			}
		}
		if dev.Disk.ReadOnly {
			dk.ReadOnly = &libvirtxml.DomainDiskReadOnly{}
		}
		devs.Disks = append(devs.Disks, dk)

	case domain.KindInterface:
		in := libvirtxml.DomainInterface{
			Alias:   alias,
			Address: addr,
			Boot:    boot,
		}
		switch dev.Interface.Type {
		case "bridge":
			in.Source = &libvirtxml.DomainInterfaceSource{
				Bridge: &libvirtxml.DomainInterfaceSourceBridge{Bridge: dev.Interface.Source},
			}
		case "network":
			in.Source = &libvirtxml.DomainInterfaceSource{
				Network: &libvirtxml.DomainInterfaceSourceNetwork{Network: dev.Interface.Source},
			}
		case "user":
			in.Source = &libvirtxml.DomainInterfaceSource{
				User: &libvirtxml.DomainInterfaceSourceUser{},
			}
		}
		if dev.Interface.MAC != "" {
			in.MAC = &libvirtxml.DomainInterfaceMAC{Address: dev.Interface.MAC}
		}
		if dev.Interface.Model != "" {
			in.Model = &libvirtxml.DomainInterfaceModel{Type: dev.Interface.Model}
		}
		devs.Interfaces = append(devs.Interfaces, in)

	case domain.KindChannel:
		ch := libvirtxml.DomainChannel{
			Source:  chardevSource(dev.Channel.Type),
			Alias:   alias,
			Address: addr,
		}
		switch dev.Channel.TargetType {
		case "virtio":
			ch.Target = &libvirtxml.DomainChannelTarget{
				VirtIO: &libvirtxml.DomainChannelTargetVirtIO{Name: dev.Channel.TargetName},
			}
		case "guestfwd":
			ch.Target = &libvirtxml.DomainChannelTarget{
				GuestFWD: &libvirtxml.DomainChannelTargetGuestFWD{},
			}
		case "xen":
			ch.Target = &libvirtxml.DomainChannelTarget{
				Xen: &libvirtxml.DomainChannelTargetXen{Name: dev.Channel.TargetName},
			}
		}
		devs.Channels = append(devs.Channels, ch)

	case domain.KindConsole:
		cn := libvirtxml.DomainConsole{
			Source:  chardevSource(dev.Console.Type),
			Alias:   alias,
			Address: addr,
		}
		if dev.Console.TargetType != "" {
			cn.Target = &libvirtxml.DomainConsoleTarget{Type: dev.Console.TargetType}
		}
		devs.Consoles = append(devs.Consoles, cn)

	case domain.KindSound:
		devs.Sounds = append(devs.Sounds, libvirtxml.DomainSound{
			Model:   dev.Sound.Model,
			Alias:   alias,
			Address: addr,
		})

	case domain.KindVideo:
		devs.Videos = append(devs.Videos, libvirtxml.DomainVideo{
			Model: libvirtxml.DomainVideoModel{
				Type:  dev.Video.Model,
				VRam:  dev.Video.VRAM,
				Heads: dev.Video.Heads,
			},
			Alias:   alias,
			Address: addr,
		})

	case domain.KindWatchdog:
		devs.Watchdogs = append(devs.Watchdogs, libvirtxml.DomainWatchdog{
			Model:   dev.Watchdog.Model,
			Action:  dev.Watchdog.Action,
			Alias:   alias,
			Address: addr,
		})

	case domain.KindBalloon:
		devs.MemBalloon = &libvirtxml.DomainMemBalloon{
			Model:   dev.Balloon.Model,
			Alias:   alias,
			Address: addr,
		}

	case domain.KindRNG:
		r := libvirtxml.DomainRNG{
			Model:   dev.RNG.Model,
			Alias:   alias,
			Address: addr,
		}
		switch dev.RNG.Backend {
		case "random":
			r.Backend = &libvirtxml.DomainRNGBackend{
				Random: &libvirtxml.DomainRNGBackendRandom{Device: dev.RNG.Device},
			}
		case "egd":
			r.Backend = &libvirtxml.DomainRNGBackend{
				EGD: &libvirtxml.DomainRNGBackendEGD{},
			}
		}
		devs.RNGs = append(devs.RNGs, r)

	case domain.KindMemoryModule:
		m := libvirtxml.DomainMemorydev{
			Model:   dev.MemoryModule.Model,
			Alias:   alias,
			Address: addr,
		}
		if dev.MemoryModule.SizeKiB > 0 || dev.MemoryModule.Node > 0 {
			m.Target = &libvirtxml.DomainMemorydevTarget{
				Size: &libvirtxml.DomainMemorydevTargetSize{
					Value: uint(dev.MemoryModule.SizeKiB),
					Unit:  "KiB",
				},
				Node: &libvirtxml.DomainMemorydevTargetNode{Value: dev.MemoryModule.Node},
			}
		}
		devs.Memorydevs = append(devs.Memorydevs, m)

	case domain.KindGraphics:
		g := libvirtxml.DomainGraphic{}
		autoPort := ""
		if dev.Graphics.AutoPort {
			autoPort = "yes"
		}
		switch dev.Graphics.Type {
		case "vnc":
			g.VNC = &libvirtxml.DomainGraphicVNC{Port: dev.Graphics.Port, AutoPort: autoPort}
		case "spice":
			g.Spice = &libvirtxml.DomainGraphicSpice{Port: dev.Graphics.Port, AutoPort: autoPort}
		case "sdl":
			g.SDL = &libvirtxml.DomainGraphicSDL{}
		case "rdp":
			g.RDP = &libvirtxml.DomainGraphicRDP{Port: dev.Graphics.Port}
		case "desktop":
			g.Desktop = &libvirtxml.DomainGraphicDesktop{}
		case "egl-headless":
			g.EGLHeadless = &libvirtxml.DomainGraphicEGLHeadless{}
		default:
			return fmt.Errorf("unknown graphics type %q", dev.Graphics.Type)
		}
		devs.Graphics = append(devs.Graphics, g)

	case domain.KindInput:
		devs.Inputs = append(devs.Inputs, libvirtxml.DomainInput{
			Type:    dev.Input.Type,
			Bus:     dev.Input.Bus,
			Alias:   alias,
			Address: addr,
		})

	case domain.KindSmartcard:
		sc := libvirtxml.DomainSmartcard{
			Alias:   alias,
			Address: addr,
		}
		switch dev.Smartcard.Mode {
		case "passthrough":
			sc.Passthrough = chardevSource("spicevmc")
		case "host-certificates":
			for _, cert := range dev.Smartcard.Certificates {
				sc.HostCerts = append(sc.HostCerts, libvirtxml.DomainSmartcardHostCert{File: cert})
			}
		default:
			sc.Host = &libvirtxml.DomainSmartcardHost{}
		}
		devs.Smartcards = append(devs.Smartcards, sc)

	default:
		return fmt.Errorf("unknown device kind %q", dev.Kind)
	}

	return nil
}

func chardevSource(kind string) *libvirtxml.DomainChardevSource {
	switch kind {
	case "unix":
		return &libvirtxml.DomainChardevSource{UNIX: &libvirtxml.DomainChardevSourceUNIX{}}
	case "pty":
		return &libvirtxml.DomainChardevSource{Pty: &libvirtxml.DomainChardevSourcePty{}}
	case "spicevmc":
		return &libvirtxml.DomainChardevSource{SpiceVMC: &libvirtxml.DomainChardevSourceSpiceVMC{}}
	case "spiceport":
		return &libvirtxml.DomainChardevSource{SpicePort: &libvirtxml.DomainChardevSourceSpicePort{}}
	case "dev":
		return &libvirtxml.DomainChardevSource{Dev: &libvirtxml.DomainChardevSourceDev{}}
	case "file":
		return &libvirtxml.DomainChardevSource{File: &libvirtxml.DomainChardevSourceFile{}}
	case "tcp":
		return &libvirtxml.DomainChardevSource{TCP: &libvirtxml.DomainChardevSourceTCP{}}
	case "udp":
		return &libvirtxml.DomainChardevSource{UDP: &libvirtxml.DomainChardevSourceUDP{}}
	case "null":
		return &libvirtxml.DomainChardevSource{Null: &libvirtxml.DomainChardevSourceNull{}}
	case "stdio":
		return &libvirtxml.DomainChardevSource{StdIO: &libvirtxml.DomainChardevSourceStdIO{}}
	case "vc":
		return &libvirtxml.DomainChardevSource{VC: &libvirtxml.DomainChardevSourceVC{}}
	case "pipe":
		return &libvirtxml.DomainChardevSource{Pipe: &libvirtxml.DomainChardevSourcePipe{}}
	}
	return nil
}

func xmlAlias(name string) *libvirtxml.DomainAlias {
	if name == "" {
		return nil
	}
	return &libvirtxml.DomainAlias{Name: name}
}

func xmlBoot(order uint) *libvirtxml.DomainDeviceBoot {
	if order == 0 {
		return nil
	}
	return &libvirtxml.DomainDeviceBoot{Order: order}
}

func xmlAddress(a *domain.Address) *libvirtxml.DomainAddress {
	if a == nil {
		return nil
	}
	switch {
	case a.PCI != nil:
		return &libvirtxml.DomainAddress{PCI: &libvirtxml.DomainAddressPCI{
			Domain:   uintPtr(a.PCI.Domain),
			Bus:      uintPtr(a.PCI.Bus),
			Slot:     uintPtr(a.PCI.Slot),
			Function: uintPtr(a.PCI.Function),
		}}
	case a.Drive != nil:
		return &libvirtxml.DomainAddress{Drive: &libvirtxml.DomainAddressDrive{
			Controller: uintPtr(a.Drive.Controller),
			Bus:        uintPtr(a.Drive.Bus),
			Target:     uintPtr(a.Drive.Target),
			Unit:       uintPtr(a.Drive.Unit),
		}}
	case a.CCID != nil:
		return &libvirtxml.DomainAddress{CCID: &libvirtxml.DomainAddressCCID{
			Controller: uintPtr(a.CCID.Controller),
			Slot:       uintPtr(a.CCID.Slot),
		}}
	case a.VirtioSerial != nil:
		return &libvirtxml.DomainAddress{VirtioSerial: &libvirtxml.DomainAddressVirtioSerial{
			Controller: uintPtr(a.VirtioSerial.Controller),
			Bus:        uintPtr(a.VirtioSerial.Bus),
			Port:       uintPtr(a.VirtioSerial.Port),
		}}
	case a.DIMM != nil:
		addr := &libvirtxml.DomainAddressDIMM{Slot: uintPtr(a.DIMM.Slot)}
		if a.DIMM.Base > 0 {
			base := a.DIMM.Base
			addr.Base = &base
		}
		return &libvirtxml.DomainAddress{DIMM: addr}
	}
	return nil
}

func uintPtr(v uint) *uint {
	return &v
}
