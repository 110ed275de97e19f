// Package service contains machine read workflows
package service

import (
	"context"
	"time"

	"aquawatch/internal/core/period"
	"aquawatch/internal/modkit/repokit"
	perr "aquawatch/internal/platform/errors"
	"aquawatch/internal/services/api/machines/domain"
	"aquawatch/internal/services/api/machines/repo"
)

// Service defines the machines service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the machines service
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
}

// New constructs a machines service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo]) *Svc {
	if db == nil {
		panic("machines.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("machines.Service requires a non nil Repo binder")
	}
	return &Svc{Repo: binder.Bind(db), binder: binder, db: db}
}

// List returns registered machines with lifetime totals
func (s *Svc) List(ctx context.Context, in domain.ListInput) ([]domain.Machine, error) {
	rows, err := s.Repo.List(ctx, in.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Machine, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Machine{
			MachineID:      r.MachineID,
			FirstSeenAt:    r.FirstSeenAt.UTC().Format(time.RFC3339),
			ProducedLiters: r.ProducedLiters,
			DrainedLiters:  r.DrainedLiters,
		})
	}
	return out, nil
}

// Summaries returns stored period summaries for one machine
func (s *Svc) Summaries(ctx context.Context, in domain.SummariesInput) ([]domain.SummaryRow, error) {
	g := period.Granularity(in.Granularity)
	if !g.Valid() {
		return nil, perr.InvalidArgf("unknown granularity %q", in.Granularity)
	}
	from, err := time.Parse("2006-01-02", in.Range.Start)
	if err != nil {
		return nil, perr.InvalidArgf("bad start date %q", in.Range.Start)
	}
	to, err := time.Parse("2006-01-02", in.Range.End)
	if err != nil {
		return nil, perr.InvalidArgf("bad end date %q", in.Range.End)
	}

	rows, err := s.Repo.Summaries(ctx, in.MachineID, g, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	out := make([]domain.SummaryRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.SummaryRow{
			PeriodStart:     r.PeriodStart.UTC().Format("2006-01-02"),
			PeriodKey:       r.PeriodKey,
			ProducedLiters:  r.ProducedLiters,
			DrainedLiters:   r.DrainedLiters,
			ProducingPct:    r.ProducingPct,
			IdlePct:         r.IdlePct,
			FullWaterPct:    r.FullWaterPct,
			DisconnectedPct: r.DisconnectedPct,
		})
	}
	return out, nil
}

// StatusToday returns the current UTC day's breakdown from the stored
// daily summary. A machine without a summary for today reports as
// fully disconnected, the convention for buckets with no data
func (s *Svc) StatusToday(ctx context.Context, in domain.StatusTodayInput) (domain.StatusToday, error) {
	day := period.StartOf(period.Daily, time.Now())
	out := domain.StatusToday{
		MachineID:       in.MachineID,
		Date:            day.Format("2006-01-02"),
		DisconnectedPct: 100,
	}
	row, ok, err := s.Repo.DailySummary(ctx, in.MachineID, day)
	if err != nil {
		return domain.StatusToday{}, err
	}
	if !ok {
		return out, nil
	}
	out.ProducingPct = row.ProducingPct
	out.IdlePct = row.IdlePct
	out.FullWaterPct = row.FullWaterPct
	out.DisconnectedPct = row.DisconnectedPct
	return out, nil
}
