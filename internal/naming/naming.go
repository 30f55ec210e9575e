// Package naming provides the naming conventions for libvirt domain
// descriptor entities. This includes deterministic device alias
// generation and canonical PCI address formatting.
//
// These naming rules are descriptor-version independent and shared by
// the normalizer and the validator's reporting.
package naming

import (
	"fmt"

	"github.com/jbweber/crucible/internal/domain"
)

// aliasPrefixes maps a device kind to the alias prefix libvirt-style
// tooling uses for it. Interfaces alias as "net", memory modules as
// "dimm"; everything else uses the kind name.
var aliasPrefixes = map[domain.DeviceKind]string{
	domain.KindController:   "controller",
	domain.KindInterface:    "net",
	domain.KindDisk:         "disk",
	domain.KindChannel:      "channel",
	domain.KindConsole:      "console",
	domain.KindSound:        "sound",
	domain.KindVideo:        "video",
	domain.KindWatchdog:     "watchdog",
	domain.KindBalloon:      "balloon",
	domain.KindRNG:          "rng",
	domain.KindMemoryModule: "dimm",
	domain.KindGraphics:     "graphics",
	domain.KindInput:        "input",
	domain.KindSmartcard:    "smartcard",
}

// AliasPrefix returns the alias prefix for a device kind.
//
// Example: KindInterface → "net", so the first interface aliases as "net0".
func AliasPrefix(kind domain.DeviceKind) string {
	if p, ok := aliasPrefixes[kind]; ok {
		return p
	}
	return string(kind)
}

// Alias formats a device alias from a kind prefix and a per-kind
// ordinal: Alias(KindInterface, 1) → "net1".
func Alias(kind domain.DeviceKind, ordinal int) string {
	return fmt.Sprintf("%s%d", AliasPrefix(kind), ordinal)
}

// PCISlot formats a PCI slot number the way libvirt descriptors
// write it: PCISlot(11) → "0x0b".
func PCISlot(slot uint) string {
	return fmt.Sprintf("0x%02x", slot)
}

// ControllerRef formats a controller reference for violation keys and
// diff paths: ControllerRef("virtio-serial", 0) → "virtio-serial:0".
func ControllerRef(ctype string, index uint) string {
	return fmt.Sprintf("%s:%d", ctype, index)
}
