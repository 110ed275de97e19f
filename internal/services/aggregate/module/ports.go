package module

import "aquawatch/internal/services/aggregate/domain"

// Ports defines the aggregate module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
