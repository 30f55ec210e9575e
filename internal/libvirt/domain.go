package libvirt

import (
	"fmt"

	"github.com/digitalocean/go-libvirt"
)

// DomainXML looks up a domain by name and returns its persistent XML
// descriptor. The result is suitable for descriptor.Parse.
func (c *Client) DomainXML(name string) (string, error) {
	if c.libvirt == nil {
		return "", fmt.Errorf("client not connected")
	}

	dom, err := c.libvirt.DomainLookupByName(name)
	if err != nil {
		return "", fmt.Errorf("failed to look up domain %s: %w", name, err)
	}

	// DomainXMLSecure requires privileges we may not have; request the
	// inactive (persistent) config so normalization results are durable.
	xml, err := c.libvirt.DomainGetXMLDesc(dom, libvirt.DomainXMLInactive)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve XML for domain %s: %w", name, err)
	}

	return xml, nil
}

// ListDomainNames returns the names of all defined domains, active and
// inactive.
func (c *Client) ListDomainNames() ([]string, error) {
	if c.libvirt == nil {
		return nil, fmt.Errorf("client not connected")
	}

	domains, _, err := c.libvirt.ConnectListAllDomains(1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}

	names := make([]string, 0, len(domains))
	for _, d := range domains {
		names = append(names, d.Name)
	}
	return names, nil
}
