package descriptor

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jbweber/crucible/internal/config"
	"github.com/jbweber/crucible/internal/domain"
	"github.com/jbweber/crucible/internal/validate"
)

func TestNormalize_AssignsAliases(t *testing.T) {
	d := &domain.Domain{
		Devices: []domain.Device{
			{Kind: domain.KindInterface, Interface: &domain.Interface{Type: "bridge"}},
			{Kind: domain.KindInterface, Alias: "net1", Interface: &domain.Interface{Type: "bridge"}},
			{Kind: domain.KindInterface, Interface: &domain.Interface{Type: "bridge"}},
			{Kind: domain.KindSound, Sound: &domain.Sound{Model: "ich6"}},
			{Kind: domain.KindMemoryModule, MemoryModule: &domain.MemoryModule{Model: "dimm"}},
		},
	}

	if err := Normalize(d, nil); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	// net1 is taken, so the unaliased interfaces get net0 and net2.
	if d.Devices[0].Alias != "net0" {
		t.Errorf("first interface alias = %q, want net0", d.Devices[0].Alias)
	}
	if d.Devices[1].Alias != "net1" {
		t.Errorf("aliased interface changed to %q", d.Devices[1].Alias)
	}
	if d.Devices[2].Alias != "net2" {
		t.Errorf("second unaliased interface alias = %q, want net2", d.Devices[2].Alias)
	}
	if d.Devices[3].Alias != "sound0" {
		t.Errorf("sound alias = %q, want sound0", d.Devices[3].Alias)
	}
	if d.Devices[4].Alias != "dimm0" {
		t.Errorf("memory module alias = %q, want dimm0", d.Devices[4].Alias)
	}
}

func TestNormalize_PCISlots(t *testing.T) {
	d := &domain.Domain{
		Devices: []domain.Device{
			{
				Kind:      domain.KindInterface,
				Interface: &domain.Interface{Type: "bridge"},
				Address:   &domain.Address{PCI: &domain.PCIAddress{Slot: 0x01}},
			},
			{Kind: domain.KindVideo, Video: &domain.Video{Model: "qxl"}},
			{Kind: domain.KindSound, Sound: &domain.Sound{Model: "ich6"}},
		},
	}

	if err := Normalize(d, nil); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	// 0x01 is occupied; the video takes 0x02 and the sound 0x03.
	if key := d.Devices[1].Address.Key(); key != "pci:0000:00:02.0" {
		t.Errorf("video address = %q, want pci:0000:00:02.0", key)
	}
	if key := d.Devices[2].Address.Key(); key != "pci:0000:00:03.0" {
		t.Errorf("sound address = %q, want pci:0000:00:03.0", key)
	}
}

func TestNormalize_PCISlotsExhausted(t *testing.T) {
	profile := config.Default()
	profile.PCI.MinSlot = 0x01
	profile.PCI.MaxSlot = 0x01

	d := &domain.Domain{
		Devices: []domain.Device{
			{Kind: domain.KindVideo, Video: &domain.Video{Model: "qxl"}},
			{Kind: domain.KindSound, Sound: &domain.Sound{Model: "ich6"}},
		},
	}

	err := Normalize(d, profile)
	if err == nil {
		t.Fatal("expected exhaustion error, got nil")
	}
	if !strings.Contains(err.Error(), "no free PCI slot") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNormalize_SkipsNonPCIDevices(t *testing.T) {
	d := &domain.Domain{
		Devices: []domain.Device{
			{Kind: domain.KindController, Controller: &domain.Controller{Type: "pci", Model: "pci-root"}},
			{Kind: domain.KindConsole, Console: &domain.Console{Type: "pty", TargetType: "serial"}},
			{Kind: domain.KindGraphics, Graphics: &domain.Graphics{Type: "vnc", AutoPort: true}},
			{Kind: domain.KindInput, Input: &domain.Input{Type: "tablet", Bus: "usb"}},
			{Kind: domain.KindDisk, Disk: &domain.Disk{Target: "sda", Bus: "scsi"}},
		},
	}

	if err := Normalize(d, nil); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	for i := range d.Devices {
		if addr := d.Devices[i].Address; addr != nil && addr.PCI != nil {
			t.Errorf("%s received a PCI address %s", d.Devices[i].Kind, addr.Key())
		}
	}
}

// A disabled balloon occupies no PCI slot; normalization must not
// hand it one.
func TestNormalize_BalloonNoneUnaddressed(t *testing.T) {
	d := &domain.Domain{
		Devices: []domain.Device{
			{Kind: domain.KindBalloon, Balloon: &domain.Balloon{Model: "none"}},
			{Kind: domain.KindBalloon, Balloon: &domain.Balloon{Model: "virtio"}},
		},
	}

	if err := Normalize(d, nil); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if d.Devices[0].Address != nil {
		t.Errorf("disabled balloon received an address: %+v", d.Devices[0].Address)
	}
	if addr := d.Devices[1].Address; addr == nil || addr.PCI == nil {
		t.Errorf("virtio balloon got no PCI address: %+v", addr)
	}
}

// Graphics devices carry no alias element, so normalization must leave
// them unaliased while siblings are named.
func TestNormalize_GraphicsUnaliased(t *testing.T) {
	d := &domain.Domain{
		Devices: []domain.Device{
			{Kind: domain.KindGraphics, Graphics: &domain.Graphics{Type: "vnc", AutoPort: true}},
			{Kind: domain.KindVideo, Video: &domain.Video{Model: "qxl"}},
		},
	}

	if err := Normalize(d, nil); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if d.Devices[0].Alias != "" {
		t.Errorf("graphics alias = %q, want empty", d.Devices[0].Alias)
	}
	if d.Devices[1].Alias != "video0" {
		t.Errorf("video alias = %q, want video0", d.Devices[1].Alias)
	}
}

func TestNormalize_VirtioSerialPorts(t *testing.T) {
	d := &domain.Domain{
		Devices: []domain.Device{
			{
				Kind:       domain.KindController,
				Controller: &domain.Controller{Type: "virtio-serial", Index: 0, Ports: 16},
				Address:    &domain.Address{PCI: &domain.PCIAddress{Slot: 0x05}},
			},
			{
				Kind:    domain.KindChannel,
				Channel: &domain.Channel{Type: "unix", TargetType: "virtio", TargetName: "org.qemu.guest_agent.0"},
				Address: &domain.Address{VirtioSerial: &domain.VirtioSerialAddress{Controller: 0, Port: 1}},
			},
			{
				Kind:    domain.KindChannel,
				Channel: &domain.Channel{Type: "spicevmc", TargetType: "virtio", TargetName: "com.redhat.spice.0"},
			},
		},
	}

	if err := Normalize(d, nil); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	// Port 0 is reserved for the console and port 1 is occupied, so
	// the unaddressed channel gets port 2.
	addr := d.Devices[2].Address
	if addr == nil || addr.VirtioSerial == nil {
		t.Fatalf("channel got no virtio-serial address: %+v", addr)
	}
	if addr.VirtioSerial.Port != 2 {
		t.Errorf("channel port = %d, want 2", addr.VirtioSerial.Port)
	}
	if addr.VirtioSerial.Controller != 0 {
		t.Errorf("channel controller = %d, want 0", addr.VirtioSerial.Controller)
	}
}

func TestNormalize_NoVirtioSerialController(t *testing.T) {
	d := &domain.Domain{
		Devices: []domain.Device{
			{
				Kind:    domain.KindChannel,
				Channel: &domain.Channel{Type: "unix", TargetType: "virtio"},
			},
		},
	}

	if err := Normalize(d, nil); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if d.Devices[0].Address != nil {
		t.Errorf("channel must stay unaddressed without a virtio-serial controller, got %+v",
			d.Devices[0].Address)
	}
}

func TestNormalize_DIMMSlots(t *testing.T) {
	d := &domain.Domain{
		Devices: []domain.Device{
			{
				Kind:         domain.KindMemoryModule,
				MemoryModule: &domain.MemoryModule{Model: "dimm", SizeKiB: 524288},
				Address:      &domain.Address{DIMM: &domain.DIMMAddress{Slot: 0}},
			},
			{
				Kind:         domain.KindMemoryModule,
				MemoryModule: &domain.MemoryModule{Model: "dimm", SizeKiB: 524288},
			},
		},
	}

	if err := Normalize(d, nil); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	addr := d.Devices[1].Address
	if addr == nil || addr.DIMM == nil || addr.DIMM.Slot != 1 {
		t.Errorf("second module address = %+v, want dimm slot 1", addr)
	}
}

func TestNormalize_DIMMSlotsExhausted(t *testing.T) {
	profile := config.Default()
	profile.DIMMSlots = 1

	d := &domain.Domain{
		Devices: []domain.Device{
			{
				Kind:         domain.KindMemoryModule,
				MemoryModule: &domain.MemoryModule{Model: "dimm"},
				Address:      &domain.Address{DIMM: &domain.DIMMAddress{Slot: 0}},
			},
			{
				Kind:         domain.KindMemoryModule,
				MemoryModule: &domain.MemoryModule{Model: "dimm"},
			},
		},
	}

	if err := Normalize(d, profile); err == nil {
		t.Fatal("expected DIMM exhaustion error, got nil")
	}
}

// Normalizing the same input twice must produce identical results.
func TestNormalize_Deterministic(t *testing.T) {
	build := func() *domain.Domain {
		return &domain.Domain{
			Name: "x",
			UUID: "77777777-ffff-3333-bbbb-222222222222",
			Devices: []domain.Device{
				{Kind: domain.KindController, Controller: &domain.Controller{Type: "virtio-serial", Ports: 16}},
				{Kind: domain.KindInterface, Interface: &domain.Interface{Type: "bridge", Source: "br0"}},
				{Kind: domain.KindInterface, Interface: &domain.Interface{Type: "bridge", Source: "br1"}},
				{Kind: domain.KindChannel, Channel: &domain.Channel{Type: "unix", TargetType: "virtio"}},
				{Kind: domain.KindVideo, Video: &domain.Video{Model: "qxl"}},
				{Kind: domain.KindMemoryModule, MemoryModule: &domain.MemoryModule{Model: "dimm"}},
			},
		}
	}

	a, b := build(), build()
	if err := Normalize(a, nil); err != nil {
		t.Fatalf("Normalize(a) error = %v", err)
	}
	if err := Normalize(b, nil); err != nil {
		t.Fatalf("Normalize(b) error = %v", err)
	}

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("normalization is not deterministic (-a +b):\n%s", diff)
	}
}

// After normalization every device has an alias, and validation finds
// no collisions.
func TestNormalize_ResultValidates(t *testing.T) {
	d := &domain.Domain{
		Name: "x",
		UUID: "77777777-ffff-3333-bbbb-222222222222",
		Devices: []domain.Device{
			{Kind: domain.KindController, Controller: &domain.Controller{Type: "virtio-serial", Ports: 16}},
			{Kind: domain.KindInterface, Interface: &domain.Interface{Type: "bridge", Source: "br0"}},
			{Kind: domain.KindInterface, Interface: &domain.Interface{Type: "bridge", Source: "br1"}},
			{Kind: domain.KindChannel, Channel: &domain.Channel{Type: "unix", TargetType: "virtio"}},
			{Kind: domain.KindSound, Sound: &domain.Sound{Model: "ich6"}},
			{Kind: domain.KindSound, Sound: &domain.Sound{Model: "ac97"}},
			{Kind: domain.KindVideo, Video: &domain.Video{Model: "qxl"}},
			{Kind: domain.KindVideo, Video: &domain.Video{Model: "virtio"}},
			{Kind: domain.KindWatchdog, Watchdog: &domain.Watchdog{Model: "i6300esb", Action: "reset"}},
			{Kind: domain.KindBalloon, Balloon: &domain.Balloon{Model: "virtio"}},
			{Kind: domain.KindRNG, RNG: &domain.RNG{Model: "virtio", Backend: "random", Device: "/dev/urandom"}},
			{Kind: domain.KindMemoryModule, MemoryModule: &domain.MemoryModule{Model: "dimm", SizeKiB: 524288}},
			{Kind: domain.KindMemoryModule, MemoryModule: &domain.MemoryModule{Model: "dimm", SizeKiB: 524288}},
		},
	}

	if err := Normalize(d, nil); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	for i := range d.Devices {
		if d.Devices[i].Alias == "" {
			t.Errorf("device %d (%s) has no alias after normalize", i, d.Devices[i].Kind)
		}
	}

	if violations := validate.Check(d, nil); len(violations) != 0 {
		t.Errorf("expected no violations after normalize, got %v", violations)
	}
}
