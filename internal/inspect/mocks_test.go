package inspect

// mockSource is a mock implementation of the Source interface for testing.
type mockSource struct {
	// Configurable behavior
	domainXMLFunc func(name string) (string, error)

	// Call tracking
	domainXMLCalls []string
}

func (m *mockSource) DomainXML(name string) (string, error) {
	m.domainXMLCalls = append(m.domainXMLCalls, name)
	return m.domainXMLFunc(name)
}
