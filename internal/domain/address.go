package domain

import "fmt"

// AddressKind identifies an address variant.
type AddressKind string

// The supported address kinds, matching libvirt address type names.
const (
	AddrPCI          AddressKind = "pci"
	AddrDrive        AddressKind = "drive"
	AddrCCID         AddressKind = "ccid"
	AddrVirtioSerial AddressKind = "virtio-serial"
	AddrDIMM         AddressKind = "dimm"
)

// Address is a positional binding of a device to a virtual bus/slot.
// Exactly one variant pointer is non-nil.
type Address struct {
	PCI          *PCIAddress          `json:"pci,omitempty" yaml:"pci,omitempty"`
	Drive        *DriveAddress        `json:"drive,omitempty" yaml:"drive,omitempty"`
	CCID         *CCIDAddress         `json:"ccid,omitempty" yaml:"ccid,omitempty"`
	VirtioSerial *VirtioSerialAddress `json:"virtioSerial,omitempty" yaml:"virtioSerial,omitempty"`
	DIMM         *DIMMAddress         `json:"dimm,omitempty" yaml:"dimm,omitempty"`
}

// PCIAddress locates a device on a PCI bus.
type PCIAddress struct {
	Domain   uint `json:"domain" yaml:"domain"`
	Bus      uint `json:"bus" yaml:"bus"`
	Slot     uint `json:"slot" yaml:"slot"`
	Function uint `json:"function" yaml:"function"`
}

// DriveAddress locates a disk relative to a storage controller.
type DriveAddress struct {
	Controller uint `json:"controller" yaml:"controller"`
	Bus        uint `json:"bus" yaml:"bus"`
	Target     uint `json:"target" yaml:"target"`
	Unit       uint `json:"unit" yaml:"unit"`
}

// CCIDAddress locates a smartcard relative to a CCID controller.
type CCIDAddress struct {
	Controller uint `json:"controller" yaml:"controller"`
	Slot       uint `json:"slot" yaml:"slot"`
}

// VirtioSerialAddress locates a channel or console relative to a
// virtio-serial controller.
type VirtioSerialAddress struct {
	Controller uint `json:"controller" yaml:"controller"`
	Bus        uint `json:"bus" yaml:"bus"`
	Port       uint `json:"port" yaml:"port"`
}

// DIMMAddress locates a memory module in a DIMM slot. Base is the
// guest-physical base offset in bytes; zero means unset.
type DIMMAddress struct {
	Slot uint   `json:"slot" yaml:"slot"`
	Base uint64 `json:"base,omitempty" yaml:"base,omitempty"`
}

// Kind reports which variant the address carries, or "" for an empty
// address.
func (a *Address) Kind() AddressKind {
	switch {
	case a == nil:
		return ""
	case a.PCI != nil:
		return AddrPCI
	case a.Drive != nil:
		return AddrDrive
	case a.CCID != nil:
		return AddrCCID
	case a.VirtioSerial != nil:
		return AddrVirtioSerial
	case a.DIMM != nil:
		return AddrDIMM
	}
	return ""
}

// Key returns a canonical kind-qualified string for the address. Two
// addresses are identical exactly when their keys are equal, which is
// the identity the duplicate-address invariant is checked against.
func (a *Address) Key() string {
	switch {
	case a == nil:
		return ""
	case a.PCI != nil:
		return fmt.Sprintf("pci:%04x:%02x:%02x.%x",
			a.PCI.Domain, a.PCI.Bus, a.PCI.Slot, a.PCI.Function)
	case a.Drive != nil:
		return fmt.Sprintf("drive:controller=%d,bus=%d,target=%d,unit=%d",
			a.Drive.Controller, a.Drive.Bus, a.Drive.Target, a.Drive.Unit)
	case a.CCID != nil:
		return fmt.Sprintf("ccid:controller=%d,slot=%d",
			a.CCID.Controller, a.CCID.Slot)
	case a.VirtioSerial != nil:
		return fmt.Sprintf("virtio-serial:controller=%d,bus=%d,port=%d",
			a.VirtioSerial.Controller, a.VirtioSerial.Bus, a.VirtioSerial.Port)
	case a.DIMM != nil:
		return fmt.Sprintf("dimm:slot=%d,base=0x%x", a.DIMM.Slot, a.DIMM.Base)
	}
	return ""
}
