// Package libvirt provides a client wrapper for interacting with libvirt.
//
// This package wraps github.com/digitalocean/go-libvirt to provide:
//   - Connection management (connect, disconnect, ping)
//   - Retrieval of a defined domain's XML descriptor
//
// The Client type provides a high-level interface for libvirt
// operations, while exposing the underlying *libvirt.Libvirt for
// packages that need direct access to the libvirt API.
//
// Connection Management:
//
// The package establishes connections to the local libvirt daemon via
// Unix socket:
//
//	client, err := libvirt.Connect("", 0)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	// Check connection
//	if err := client.Ping(); err != nil {
//	    return err
//	}
//
// Descriptor Retrieval:
//
// DomainXML looks up a domain by name and returns its persistent XML
// descriptor, ready for internal/descriptor.Parse:
//
//	xml, err := client.DomainXML("my-vm")
package libvirt
