package domain

import "fmt"

// Domain is the root entity of a descriptor: one virtual machine
// configuration with identity, resources, lifecycle actions, and an
// ordered sequence of devices.
type Domain struct {
	// Type is the hypervisor driver type (e.g., "kvm", "qemu").
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Name is the domain name. Required.
	Name string `json:"name" yaml:"name"`

	// UUID identifies the domain. Required, unique, and immutable
	// after construction.
	UUID string `json:"uuid" yaml:"uuid"`

	// MemoryKiB is the maximum memory allocation in KiB.
	MemoryKiB uint64 `json:"memoryKiB" yaml:"memoryKiB"`

	// CurrentMemoryKiB is the current (balloon) allocation in KiB.
	// Zero means unset.
	CurrentMemoryKiB uint64 `json:"currentMemoryKiB,omitempty" yaml:"currentMemoryKiB,omitempty"`

	// VCPUs is the virtual CPU count.
	VCPUs uint `json:"vcpus" yaml:"vcpus"`

	// Lifecycle actions. Empty means hypervisor default.
	OnPoweroff LifecycleAction `json:"onPoweroff,omitempty" yaml:"onPoweroff,omitempty"`
	OnReboot   LifecycleAction `json:"onReboot,omitempty" yaml:"onReboot,omitempty"`
	OnCrash    LifecycleAction `json:"onCrash,omitempty" yaml:"onCrash,omitempty"`

	// Emulator is the emulator binary path from the device list
	// (e.g., "/usr/bin/qemu-kvm"). Empty means the descriptor did not
	// declare one.
	Emulator string `json:"emulator,omitempty" yaml:"emulator,omitempty"`

	// Devices is the ordered device list as it appeared in the
	// descriptor. Ordering is preserved for deterministic alias and
	// address assignment; it is not significant for equivalence.
	Devices []Device `json:"devices" yaml:"devices"`

	// Unknown holds device elements outside the supported set,
	// preserved opaquely for forward compatibility.
	Unknown []UnknownElement `json:"unknown,omitempty" yaml:"unknown,omitempty"`
}

// LifecycleAction is a domain lifecycle event action such as "destroy",
// "restart", or "preserve".
type LifecycleAction string

// UnknownElement is a device element the schema model does not
// understand. The raw XML is carried through parse and serialize
// untouched.
type UnknownElement struct {
	// Name is the element's local name (e.g., "hostdev").
	Name string `json:"name" yaml:"name"`

	// XML is the complete element as it appeared in the input.
	XML string `json:"xml" yaml:"xml"`
}

// DeviceKind identifies a device variant.
type DeviceKind string

// The supported device kinds. Values match the libvirt element names
// except for Balloon ("memballoon") and MemoryModule ("memory").
const (
	KindController   DeviceKind = "controller"
	KindInterface    DeviceKind = "interface"
	KindDisk         DeviceKind = "disk"
	KindChannel      DeviceKind = "channel"
	KindConsole      DeviceKind = "console"
	KindSound        DeviceKind = "sound"
	KindVideo        DeviceKind = "video"
	KindWatchdog     DeviceKind = "watchdog"
	KindBalloon      DeviceKind = "balloon"
	KindRNG          DeviceKind = "rng"
	KindMemoryModule DeviceKind = "memory"
	KindGraphics     DeviceKind = "graphics"
	KindInput        DeviceKind = "input"
	KindSmartcard    DeviceKind = "smartcard"
)

// Device is one entry in a domain's device list. Exactly one of the
// kind-specific payload pointers is non-nil, matching Kind.
type Device struct {
	// Kind selects the variant payload.
	Kind DeviceKind `json:"kind" yaml:"kind"`

	// Alias is a human-readable identifier, unique within the domain.
	// Empty means unset; Normalize assigns one.
	Alias string `json:"alias,omitempty" yaml:"alias,omitempty"`

	// Address binds the device to a virtual bus/slot. Nil means unset.
	Address *Address `json:"address,omitempty" yaml:"address,omitempty"`

	// BootOrder is the boot priority (1 = first). Zero means the
	// device does not participate in boot ordering. Boot order is
	// significant for equivalence even though device list order is not.
	BootOrder uint `json:"bootOrder,omitempty" yaml:"bootOrder,omitempty"`

	Controller   *Controller   `json:"controller,omitempty" yaml:"controller,omitempty"`
	Interface    *Interface    `json:"interface,omitempty" yaml:"interface,omitempty"`
	Disk         *Disk         `json:"disk,omitempty" yaml:"disk,omitempty"`
	Channel      *Channel      `json:"channel,omitempty" yaml:"channel,omitempty"`
	Console      *Console      `json:"console,omitempty" yaml:"console,omitempty"`
	Sound        *Sound        `json:"sound,omitempty" yaml:"sound,omitempty"`
	Video        *Video        `json:"video,omitempty" yaml:"video,omitempty"`
	Watchdog     *Watchdog     `json:"watchdog,omitempty" yaml:"watchdog,omitempty"`
	Balloon      *Balloon      `json:"balloon,omitempty" yaml:"balloon,omitempty"`
	RNG          *RNG          `json:"rng,omitempty" yaml:"rng,omitempty"`
	MemoryModule *MemoryModule `json:"memoryModule,omitempty" yaml:"memoryModule,omitempty"`
	Graphics     *Graphics     `json:"graphics,omitempty" yaml:"graphics,omitempty"`
	Input        *Input        `json:"input,omitempty" yaml:"input,omitempty"`
	Smartcard    *Smartcard    `json:"smartcard,omitempty" yaml:"smartcard,omitempty"`
}

// Controller provides attachment points (ports/slots) for dependent
// devices, which address themselves relative to its index.
type Controller struct {
	// Type is the controller bus type: "virtio-serial", "usb", "pci",
	// "ccid", "scsi", "ide", "sata".
	Type string `json:"type" yaml:"type"`

	// Index distinguishes controllers of the same type.
	Index uint `json:"index" yaml:"index"`

	// Ports is the declared capacity for virtio-serial controllers.
	// Zero means the descriptor did not declare one; the machine
	// profile default applies.
	Ports uint `json:"ports,omitempty" yaml:"ports,omitempty"`

	// Model is the controller model (e.g., "pci-root", "piix3-uhci").
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
}

// Interface is a network interface.
type Interface struct {
	// Type is the connection type: "bridge", "network", or "user".
	Type string `json:"type" yaml:"type"`

	// Source names the bridge or network the interface attaches to.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// MAC is the interface hardware address.
	MAC string `json:"mac,omitempty" yaml:"mac,omitempty"`

	// Model is the device model (e.g., "virtio", "e1000").
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
}

// Disk is a block device.
type Disk struct {
	// Device is the exposure type: "disk", "cdrom", "floppy", "lun".
	Device string `json:"device,omitempty" yaml:"device,omitempty"`

	// Bus is the target bus: "virtio", "scsi", "ide", "sata", "usb".
	Bus string `json:"bus,omitempty" yaml:"bus,omitempty"`

	// Target is the guest device name (e.g., "vda").
	Target string `json:"target,omitempty" yaml:"target,omitempty"`

	// Source is the backing file, block device, or pool/volume ref.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Format is the driver format (e.g., "qcow2", "raw").
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// ReadOnly marks the disk read-only.
	ReadOnly bool `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
}

// Channel is a guest/host communication channel.
type Channel struct {
	// Type is the host-side chardev type (e.g., "unix", "spicevmc").
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// TargetType is the guest-side attachment ("virtio", "guestfwd").
	TargetType string `json:"targetType,omitempty" yaml:"targetType,omitempty"`

	// TargetName is the channel name visible in the guest.
	TargetName string `json:"targetName,omitempty" yaml:"targetName,omitempty"`
}

// Console is a guest console device.
type Console struct {
	// Type is the host-side chardev type (e.g., "pty").
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// TargetType is the console target ("serial", "virtio").
	TargetType string `json:"targetType,omitempty" yaml:"targetType,omitempty"`
}

// Sound is an audio device.
type Sound struct {
	Model string `json:"model" yaml:"model"`
}

// Video is a display adapter.
type Video struct {
	Model string `json:"model" yaml:"model"`
	VRAM  uint   `json:"vram,omitempty" yaml:"vram,omitempty"`
	Heads uint   `json:"heads,omitempty" yaml:"heads,omitempty"`
}

// Watchdog is a hardware watchdog device.
type Watchdog struct {
	Model  string `json:"model" yaml:"model"`
	Action string `json:"action,omitempty" yaml:"action,omitempty"`
}

// Balloon is a memory balloon device.
type Balloon struct {
	Model string `json:"model" yaml:"model"`
}

// RNG is a random number generator device.
type RNG struct {
	Model string `json:"model" yaml:"model"`

	// Backend is the entropy source kind ("random", "egd").
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// Device is the host device path for "random" backends.
	Device string `json:"device,omitempty" yaml:"device,omitempty"`
}

// MemoryModule is a hotplugged memory device (DIMM).
type MemoryModule struct {
	Model string `json:"model" yaml:"model"`

	// SizeKiB is the module size in KiB.
	SizeKiB uint64 `json:"sizeKiB,omitempty" yaml:"sizeKiB,omitempty"`

	// Node is the guest NUMA node the module targets.
	Node uint `json:"node,omitempty" yaml:"node,omitempty"`
}

// Graphics is a remote display server (VNC, SPICE, ...).
type Graphics struct {
	Type     string `json:"type" yaml:"type"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	AutoPort bool   `json:"autoPort,omitempty" yaml:"autoPort,omitempty"`
}

// Input is an input device (tablet, mouse, keyboard).
type Input struct {
	Type string `json:"type" yaml:"type"`
	Bus  string `json:"bus,omitempty" yaml:"bus,omitempty"`
}

// Smartcard is a smartcard passthrough device.
type Smartcard struct {
	// Mode is "host", "host-certificates", or "passthrough".
	Mode string `json:"mode" yaml:"mode"`

	// Certificates are the NSS certificate names for
	// "host-certificates" mode.
	Certificates []string `json:"certificates,omitempty" yaml:"certificates,omitempty"`
}

// ID returns the most specific stable identifier available for a
// device: its alias, else its address key, else its kind.
func (d *Device) ID() string {
	if d.Alias != "" {
		return d.Alias
	}
	if d.Address != nil {
		return d.Address.Key()
	}
	return string(d.Kind)
}

// Path returns the entity path for device i within devices, using a
// kind-scoped ordinal: "devices/video[1]" is the second video device.
func Path(devices []Device, i int) string {
	n := 0
	for j := 0; j < i; j++ {
		if devices[j].Kind == devices[i].Kind {
			n++
		}
	}
	return fmt.Sprintf("devices/%s[%d]", devices[i].Kind, n)
}

// FindController returns the controller device of the given type and
// index, or nil if the domain has none.
func (d *Domain) FindController(ctype string, index uint) *Device {
	for i := range d.Devices {
		dev := &d.Devices[i]
		if dev.Kind != KindController || dev.Controller == nil {
			continue
		}
		if dev.Controller.Type == ctype && dev.Controller.Index == index {
			return dev
		}
	}
	return nil
}
