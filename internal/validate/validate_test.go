package validate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jbweber/crucible/internal/config"
	"github.com/jbweber/crucible/internal/descriptor"
	"github.com/jbweber/crucible/internal/domain"
)

func loadSample(t *testing.T) *domain.Domain {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "descriptor", "testdata", "sample.xml"))
	if err != nil {
		t.Fatalf("failed to read sample fixture: %v", err)
	}
	d, _, err := descriptor.Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return d
}

func deviceByAlias(t *testing.T, d *domain.Domain, alias string) *domain.Device {
	t.Helper()
	for i := range d.Devices {
		if d.Devices[i].Alias == alias {
			return &d.Devices[i]
		}
	}
	t.Fatalf("no device with alias %q", alias)
	return nil
}

func TestCheck_SampleClean(t *testing.T) {
	d := loadSample(t)

	if violations := Check(d, nil); len(violations) != 0 {
		t.Errorf("expected no violations, got %v", violations)
	}
}

// Two devices sharing one alias yield exactly one violation, not one
// per device.
func TestCheck_DuplicateAlias(t *testing.T) {
	d := loadSample(t)
	deviceByAlias(t, d, "video1").Alias = "video0"

	violations := Check(d, nil)
	if len(violations) != 1 {
		t.Fatalf("expected exactly 1 violation, got %d: %v", len(violations), violations)
	}

	v := violations[0]
	if v.Kind != DuplicateAlias {
		t.Errorf("Kind = %s, want DuplicateAlias", v.Kind)
	}
	if v.Keys[0] != "video0" {
		t.Errorf("Keys[0] = %q, want video0", v.Keys[0])
	}
	if len(v.Keys) != 3 {
		t.Errorf("Keys = %v, want alias plus two device paths", v.Keys)
	}
}

// Moving a video onto the watchdog's PCI slot yields exactly one
// DuplicateAddress violation naming both devices.
func TestCheck_DuplicateAddress(t *testing.T) {
	d := loadSample(t)
	video := deviceByAlias(t, d, "video1")
	video.Address = &domain.Address{PCI: &domain.PCIAddress{Slot: 0x0b}}

	violations := Check(d, nil)
	if len(violations) != 1 {
		t.Fatalf("expected exactly 1 violation, got %d: %v", len(violations), violations)
	}

	v := violations[0]
	if v.Kind != DuplicateAddress {
		t.Errorf("Kind = %s, want DuplicateAddress", v.Kind)
	}
	if v.Keys[0] != "pci:0000:00:0b.0" {
		t.Errorf("Keys[0] = %q, want pci:0000:00:0b.0", v.Keys[0])
	}
	if !strings.Contains(v.Detail, "video1") || !strings.Contains(v.Detail, "watchdog0") {
		t.Errorf("Detail must name both devices, got %q", v.Detail)
	}

	var paths []string
	paths = append(paths, v.Keys[1:]...)
	want := map[string]bool{"devices/video[1]": false, "devices/watchdog[0]": false}
	for _, p := range paths {
		if _, ok := want[p]; ok {
			want[p] = true
		}
	}
	for p, seen := range want {
		if !seen {
			t.Errorf("Keys missing path %q: %v", p, v.Keys)
		}
	}
}

// Addresses of different kinds never collide, even with coinciding
// numbers.
func TestCheck_AddressKindsDoNotCollide(t *testing.T) {
	d := &domain.Domain{
		Devices: []domain.Device{
			{
				Kind:       domain.KindController,
				Alias:      "controller0",
				Controller: &domain.Controller{Type: "virtio-serial", Index: 0, Ports: 16},
			},
			{
				Kind:      domain.KindDisk,
				Alias:     "disk0",
				Disk:      &domain.Disk{Target: "sda", Bus: "scsi"},
				Address:   &domain.Address{Drive: &domain.DriveAddress{Controller: 0, Bus: 0, Target: 0, Unit: 0}},
			},
			{
				Kind:    domain.KindChannel,
				Alias:   "channel0",
				Channel: &domain.Channel{Type: "unix", TargetType: "virtio"},
				Address: &domain.Address{VirtioSerial: &domain.VirtioSerialAddress{Controller: 0, Bus: 0, Port: 0}},
			},
			{
				Kind:       domain.KindController,
				Alias:      "controller1",
				Controller: &domain.Controller{Type: "scsi", Index: 0},
			},
		},
	}

	for _, v := range Check(d, nil) {
		if v.Kind == DuplicateAddress {
			t.Errorf("unexpected DuplicateAddress: %+v", v)
		}
	}
}

func TestCheck_DanglingVirtioSerialRef(t *testing.T) {
	d := loadSample(t)
	ch := deviceByAlias(t, d, "channel0")
	ch.Address.VirtioSerial.Controller = 5

	violations := Check(d, nil)
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %d: %v", len(violations), violations)
	}
	v := violations[0]
	if v.Kind != DanglingControllerRef {
		t.Errorf("Kind = %s, want DanglingControllerRef", v.Kind)
	}
	if v.Keys[0] != "virtio-serial:5" {
		t.Errorf("Keys[0] = %q, want virtio-serial:5", v.Keys[0])
	}
}

func TestCheck_DanglingDriveRef(t *testing.T) {
	d := &domain.Domain{
		Devices: []domain.Device{
			{
				Kind:    domain.KindDisk,
				Alias:   "disk0",
				Disk:    &domain.Disk{Target: "sda", Bus: "scsi"},
				Address: &domain.Address{Drive: &domain.DriveAddress{Controller: 0, Unit: 0}},
			},
		},
	}

	violations := Check(d, nil)
	if len(violations) != 1 || violations[0].Kind != DanglingControllerRef {
		t.Fatalf("expected DanglingControllerRef, got %v", violations)
	}

	// Adding the controller resolves it.
	d.Devices = append(d.Devices, domain.Device{
		Kind:       domain.KindController,
		Alias:      "controller0",
		Controller: &domain.Controller{Type: "scsi", Index: 0},
	})
	if violations := Check(d, nil); len(violations) != 0 {
		t.Errorf("expected no violations with controller present, got %v", violations)
	}
}

func TestCheck_CapacityExceeded_DeclaredPorts(t *testing.T) {
	d := &domain.Domain{
		Devices: []domain.Device{
			{
				Kind:       domain.KindController,
				Alias:      "controller0",
				Controller: &domain.Controller{Type: "virtio-serial", Index: 0, Ports: 2},
			},
			{
				Kind:    domain.KindChannel,
				Alias:   "channel0",
				Channel: &domain.Channel{Type: "unix", TargetType: "virtio"},
				Address: &domain.Address{VirtioSerial: &domain.VirtioSerialAddress{Controller: 0, Port: 1}},
			},
			{
				Kind:    domain.KindChannel,
				Alias:   "channel1",
				Channel: &domain.Channel{Type: "unix", TargetType: "virtio"},
				Address: &domain.Address{VirtioSerial: &domain.VirtioSerialAddress{Controller: 0, Port: 2}},
			},
		},
	}

	violations := Check(d, nil)
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %d: %v", len(violations), violations)
	}
	v := violations[0]
	if v.Kind != CapacityExceeded {
		t.Errorf("Kind = %s, want CapacityExceeded", v.Kind)
	}
	if v.Path != "devices/channel[1]" {
		t.Errorf("Path = %q, want devices/channel[1]", v.Path)
	}
}

// A controller without declared ports falls back to the profile
// capacity.
func TestCheck_CapacityExceeded_ProfileDefault(t *testing.T) {
	profile := config.Default()
	profile.VirtioSerialPorts = 4

	d := &domain.Domain{
		Devices: []domain.Device{
			{
				Kind:       domain.KindController,
				Alias:      "controller0",
				Controller: &domain.Controller{Type: "virtio-serial", Index: 0},
			},
			{
				Kind:    domain.KindChannel,
				Alias:   "channel0",
				Channel: &domain.Channel{Type: "unix", TargetType: "virtio"},
				Address: &domain.Address{VirtioSerial: &domain.VirtioSerialAddress{Controller: 0, Port: 4}},
			},
		},
	}

	violations := Check(d, profile)
	if len(violations) != 1 || violations[0].Kind != CapacityExceeded {
		t.Fatalf("expected CapacityExceeded, got %v", violations)
	}
}

func TestCheck_CCID(t *testing.T) {
	d := &domain.Domain{
		Devices: []domain.Device{
			{
				Kind:      domain.KindSmartcard,
				Alias:     "smartcard0",
				Smartcard: &domain.Smartcard{Mode: "passthrough"},
				Address:   &domain.Address{CCID: &domain.CCIDAddress{Controller: 0, Slot: 9}},
			},
		},
	}

	// No ccid controller at all: dangling.
	violations := Check(d, nil)
	if len(violations) != 1 || violations[0].Kind != DanglingControllerRef {
		t.Fatalf("expected DanglingControllerRef, got %v", violations)
	}

	// Controller present but slot beyond profile capacity (8).
	d.Devices = append(d.Devices, domain.Device{
		Kind:       domain.KindController,
		Alias:      "controller0",
		Controller: &domain.Controller{Type: "ccid", Index: 0},
	})
	violations = Check(d, nil)
	if len(violations) != 1 || violations[0].Kind != CapacityExceeded {
		t.Fatalf("expected CapacityExceeded, got %v", violations)
	}

	// In-range slot is fine.
	d.Devices[0].Address.CCID.Slot = 0
	if violations := Check(d, nil); len(violations) != 0 {
		t.Errorf("expected no violations, got %v", violations)
	}
}

func TestCheck_OverlappingRegions(t *testing.T) {
	module := func(alias string, slot uint, base uint64, sizeKiB uint64) domain.Device {
		return domain.Device{
			Kind:         domain.KindMemoryModule,
			Alias:        alias,
			MemoryModule: &domain.MemoryModule{Model: "dimm", SizeKiB: sizeKiB},
			Address:      &domain.Address{DIMM: &domain.DIMMAddress{Slot: slot, Base: base}},
		}
	}

	// 1 GiB at 4 GiB overlaps 1 GiB at 4.5 GiB.
	d := &domain.Domain{
		Devices: []domain.Device{
			module("dimm0", 0, 0x100000000, 1048576),
			module("dimm1", 1, 0x120000000, 1048576),
		},
	}

	violations := Check(d, nil)
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %d: %v", len(violations), violations)
	}
	if violations[0].Kind != OverlappingRegion {
		t.Errorf("Kind = %s, want OverlappingRegion", violations[0].Kind)
	}

	// Adjacent regions do not overlap.
	d.Devices[1].Address.DIMM.Base = 0x140000000
	if violations := Check(d, nil); len(violations) != 0 {
		t.Errorf("expected no violations for adjacent regions, got %v", violations)
	}

	// Modules without a base offset do not participate.
	d.Devices[1].Address.DIMM.Base = 0
	if violations := Check(d, nil); len(violations) != 0 {
		t.Errorf("expected no violations without base, got %v", violations)
	}
}
