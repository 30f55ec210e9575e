// Package diff structurally compares two domain descriptors.
//
// Equality is structural, never by reference. Device list order is
// insignificant: devices are matched across the two domains by alias,
// then by address, then by per-kind ordinal. Significant ordering,
// such as a device's boot priority, is carried as a field and compared
// like any other.
package diff

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/jbweber/crucible/internal/domain"
)

// Difference is one structural divergence between two domains.
type Difference struct {
	// Path names the entity and field that differ, e.g.
	// "devices[alias:video0].Address.PCI.Slot".
	Path string `json:"path" yaml:"path"`

	Expected string `json:"expected" yaml:"expected"`
	Actual   string `json:"actual" yaml:"actual"`
}

// header is the device-independent portion of a domain, compared
// field-wise.
type header struct {
	Type             string
	Name             string
	UUID             string
	MemoryKiB        uint64
	CurrentMemoryKiB uint64
	VCPUs            uint
	OnPoweroff       domain.LifecycleAction
	OnReboot         domain.LifecycleAction
	OnCrash          domain.LifecycleAction
	Emulator         string
}

// Compare returns the ordered differences between an expected and an
// actual domain. An empty result means the domains are structurally
// equivalent.
func Compare(expected, actual *domain.Domain) []Difference {
	var out []Difference

	hx := headerOf(expected)
	hy := headerOf(actual)
	r := &reporter{out: &out}
	cmp.Equal(hx, hy, cmp.Reporter(r))

	out = append(out, compareDevices(expected.Devices, actual.Devices)...)
	out = append(out, compareUnknown(expected.Unknown, actual.Unknown)...)
	return out
}

func headerOf(d *domain.Domain) header {
	return header{
		Type:             d.Type,
		Name:             d.Name,
		UUID:             d.UUID,
		MemoryKiB:        d.MemoryKiB,
		CurrentMemoryKiB: d.CurrentMemoryKiB,
		VCPUs:            d.VCPUs,
		OnPoweroff:       d.OnPoweroff,
		OnReboot:         d.OnReboot,
		OnCrash:          d.OnCrash,
		Emulator:         d.Emulator,
	}
}

func compareDevices(expected, actual []domain.Device) []Difference {
	var out []Difference

	xKeys, xDevs := keyDevices(expected)
	yKeys, yDevs := keyDevices(actual)

	for _, key := range xKeys {
		xd := xDevs[key]
		yd, ok := yDevs[key]
		if !ok {
			out = append(out, Difference{
				Path:     "devices[" + key + "]",
				Expected: summarize(xd),
				Actual:   "(absent)",
			})
			continue
		}
		r := &reporter{prefix: "devices[" + key + "]", out: &out}
		cmp.Equal(xd, yd, cmp.Reporter(r))
	}

	for _, key := range yKeys {
		if _, ok := xDevs[key]; ok {
			continue
		}
		out = append(out, Difference{
			Path:     "devices[" + key + "]",
			Expected: "(absent)",
			Actual:   summarize(yDevs[key]),
		})
	}

	return out
}

// keyDevices assigns each device a matching key: its alias, else its
// address, else a per-kind ordinal counted over keyless devices only,
// so reordering keyed devices never shifts the ordinals.
func keyDevices(devs []domain.Device) ([]string, map[string]*domain.Device) {
	ordinals := make(map[domain.DeviceKind]int)
	keys := make([]string, 0, len(devs))
	m := make(map[string]*domain.Device, len(devs))

	for i := range devs {
		d := &devs[i]
		var key string
		switch {
		case d.Alias != "":
			key = "alias:" + d.Alias
		case d.Address != nil:
			key = "addr:" + d.Address.Key()
		default:
			key = fmt.Sprintf("%s#%d", d.Kind, ordinals[d.Kind])
			ordinals[d.Kind]++
		}
		// Duplicate keys only occur in invalid domains; keep both
		// sides visible rather than silently dropping one.
		for m[key] != nil {
			key += "+"
		}
		keys = append(keys, key)
		m[key] = d
	}

	return keys, m
}

func summarize(d *domain.Device) string {
	if d.Address != nil {
		return fmt.Sprintf("%s %s at %s", d.Kind, d.ID(), d.Address.Key())
	}
	return fmt.Sprintf("%s %s", d.Kind, d.ID())
}

// compareUnknown compares preserved unknown elements as an unordered
// collection.
func compareUnknown(expected, actual []domain.UnknownElement) []Difference {
	x := make([]domain.UnknownElement, len(expected))
	copy(x, expected)
	y := make([]domain.UnknownElement, len(actual))
	copy(y, actual)
	sort.Slice(x, func(a, b int) bool { return x[a].XML < x[b].XML })
	sort.Slice(y, func(a, b int) bool { return y[a].XML < y[b].XML })

	var out []Difference
	r := &reporter{prefix: "unknown", out: &out}
	cmp.Equal(x, y, cmp.Reporter(r))
	return out
}

// reporter records every leaf inequality go-cmp finds, with a readable
// field path.
type reporter struct {
	prefix string
	path   cmp.Path
	out    *[]Difference
}

func (r *reporter) PushStep(ps cmp.PathStep) {
	r.path = append(r.path, ps)
}

func (r *reporter) PopStep() {
	r.path = r.path[:len(r.path)-1]
}

func (r *reporter) Report(rs cmp.Result) {
	if rs.Equal() {
		return
	}
	vx, vy := r.path.Last().Values()
	*r.out = append(*r.out, Difference{
		Path:     r.prefix + formatPath(r.path),
		Expected: formatValue(vx),
		Actual:   formatValue(vy),
	})
}

func formatPath(p cmp.Path) string {
	var b strings.Builder
	for _, ps := range p {
		switch s := ps.(type) {
		case cmp.StructField:
			b.WriteString(".")
			b.WriteString(s.Name())
		case cmp.SliceIndex:
			xi, yi := s.SplitKeys()
			if xi == yi {
				fmt.Fprintf(&b, "[%d]", xi)
			} else {
				fmt.Fprintf(&b, "[%d->%d]", xi, yi)
			}
		case cmp.MapIndex:
			fmt.Fprintf(&b, "[%v]", s.Key())
		}
	}
	return b.String()
}

func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return "(absent)"
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "(absent)"
		}
		v = v.Elem()
	}
	return fmt.Sprintf("%+v", v.Interface())
}
