package module

import (
	"context"

	"aquawatch/internal/services/api/machines/domain"
	machsvc "aquawatch/internal/services/api/machines/service"
)

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

type adaptMachinesPort struct{ svc machsvc.Service }

// List returns registered machines with lifetime totals
func (a adaptMachinesPort) List(ctx context.Context, in domain.ListInput) ([]domain.Machine, error) {
	return a.svc.List(ctx, in)
}

// Summaries returns stored period summaries for one machine
func (a adaptMachinesPort) Summaries(ctx context.Context, in domain.SummariesInput) ([]domain.SummaryRow, error) {
	return a.svc.Summaries(ctx, in)
}

// StatusToday returns the current UTC day's state breakdown
func (a adaptMachinesPort) StatusToday(ctx context.Context, in domain.StatusTodayInput) (domain.StatusToday, error) {
	return a.svc.StatusToday(ctx, in)
}
