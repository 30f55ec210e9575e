package descriptor

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/jbweber/crucible/internal/domain"
)

// knownDeviceElements is the closed set of device elements the schema
// model interprets. Anything else under <devices> is preserved opaquely
// and surfaced as an UnsupportedConstruct warning.
var knownDeviceElements = map[string]struct{}{
	"emulator":   {},
	"controller": {},
	"disk":       {},
	"interface":  {},
	"channel":    {},
	"console":    {},
	"sound":      {},
	"video":      {},
	"watchdog":   {},
	"memballoon": {},
	"rng":        {},
	"memory":     {},
	"graphics":   {},
	"input":      {},
	"smartcard":  {},
}

// collectUnknown walks the raw document and captures every direct child
// of <devices> whose element name is outside the supported set. The
// typed decode has already succeeded by the time this runs, so token
// errors other than EOF indicate a bug in the caller.
func collectUnknown(data []byte) ([]domain.UnknownElement, []Warning, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		unknown  []domain.UnknownElement
		warnings []Warning
		depth    int
		devices  bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 && t.Name.Local == "devices" {
				devices = true
				continue
			}
			if devices && depth == 3 {
				if _, ok := knownDeviceElements[t.Name.Local]; !ok {
					raw, err := captureElement(dec, t)
					if err != nil {
						return nil, nil, err
					}
					unknown = append(unknown, domain.UnknownElement{Name: t.Name.Local, XML: raw})
					warnings = append(warnings, Warning{
						Kind:    WarnUnsupportedConstruct,
						Element: t.Name.Local,
						Detail:  fmt.Sprintf("device element <%s> is not interpreted; preserved as-is", t.Name.Local),
					})
					// captureElement consumed the matching end element.
					depth--
				}
			}
		case xml.EndElement:
			if depth == 2 && t.Name.Local == "devices" {
				devices = false
			}
			depth--
		}
	}

	return unknown, warnings, nil
}

// captureElement re-encodes the element opened by start, consuming the
// decoder through the matching end element.
func captureElement(dec *xml.Decoder, start xml.StartElement) (string, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	if err := enc.EncodeToken(start.Copy()); err != nil {
		return "", err
	}

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if err := enc.EncodeToken(t.Copy()); err != nil {
				return "", err
			}
		case xml.EndElement:
			depth--
			if err := enc.EncodeToken(t); err != nil {
				return "", err
			}
		case xml.CharData:
			if err := enc.EncodeToken(t.Copy()); err != nil {
				return "", err
			}
		}
	}

	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
