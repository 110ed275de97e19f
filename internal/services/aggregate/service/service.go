// Package service provides the aggregation pipeline implementation
package service

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"aquawatch/internal/core/event"
	"aquawatch/internal/core/period"
	"aquawatch/internal/core/rollup"
	"aquawatch/internal/core/status"
	"aquawatch/internal/modkit/repokit"
	perr "aquawatch/internal/platform/errors"
	"aquawatch/internal/platform/logger"
	"aquawatch/internal/platform/metrics"
	pnet "aquawatch/internal/platform/net"
	"aquawatch/internal/services/aggregate/domain"
	"aquawatch/internal/services/aggregate/guardrails"

	"github.com/google/uuid"
)

// Config holds configuration options for the aggregation service
type Config struct {
	// Concurrency & pacing
	Workers         int           // number of machines processed in parallel; <=0 -> 1
	DelayPerMachine time.Duration // optional sleep after each machine (per worker)

	// Machine-level retry
	MaxRetries int           // attempts per machine; <=0 -> 1
	RetryBase  time.Duration // base backoff for machine retries; <=0 -> 500ms

	// Lookback is how far behind the watermark an incremental run
	// re-reads, absorbing late-arriving snapshots
	Lookback time.Duration

	// Timeouts applied via guardrails
	MachineTimeout time.Duration
	ReadTimeout    time.Duration
	DBTimeout      time.Duration

	// Distributed lease for a machine (optional)
	EnableLeases bool

	// Detection and classification tuning
	Detector        event.Params
	GapThreshold    time.Duration
	NominalInterval time.Duration
}

// Service implements the aggregation pipeline
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo]
	Repo   domain.StorageRepo
	Snaps  domain.SnapshotSource
	Cfg    Config

	det event.Detector
	cls status.Classifier

	// Lease(ctx, machineID, do) should take a machine-scoped advisory lock and run do()
	Lease func(ctx context.Context, machineID string, do func(context.Context) error) error

	// now is swappable for tests
	now func() time.Time
}

// New constructs the aggregation service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.StorageRepo],
	snaps domain.SnapshotSource,
	cfg Config,
	lease func(context.Context, string, func(context.Context) error) error,
) *Service {
	if db == nil {
		panic("aggregate.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("aggregate.Service requires a non nil Repo binder")
	}
	if snaps == nil {
		panic("aggregate.Service requires a non nil snapshot source")
	}
	return &Service{
		DB:     db,
		Binder: binder,
		Repo:   binder.Bind(db),
		Snaps:  snaps,
		Cfg:    cfg,
		det:    event.New(cfg.Detector),
		cls:    status.NewClassifier(cfg.GapThreshold, cfg.NominalInterval),
		Lease:  lease,
		now:    time.Now,
	}
}

// WithClock overrides the service clock, used by tests
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.cls.Now = now
	return s
}

// Run executes one aggregation pass over the selected machines.
// Machines fail independently; a machine error lands in its result and
// never aborts the rest of the run
func (s *Service) Run(ctx context.Context, in domain.RunInput) (domain.RunReport, error) {
	started := s.now().UTC()
	if !in.Mode.Valid() {
		return domain.RunReport{}, perr.InvalidArgf("unknown run mode %q", in.Mode)
	}
	runID := uuid.NewString()
	logger.C(ctx).Info().Str("run_id", runID).Str("mode", string(in.Mode)).Msg("aggregate: run started")

	machines := []string{in.MachineID}
	if in.MachineID == "" {
		var err error
		machines, err = s.Repo.ListMachineIDs(ctx)
		if err != nil {
			metrics.ObserveAggregateRun(string(in.Mode), metrics.ResultError, time.Since(started))
			return domain.RunReport{}, perr.Wrap(err, perr.ErrorCodeDB, "list machines")
		}
	}

	w := max(s.Cfg.Workers, 1)
	var (
		mu      sync.Mutex
		results = make([]domain.MachineResult, 0, len(machines))
	)
	var wg sync.WaitGroup
	sem := make(chan struct{}, w)

	work := make(chan string)
	worker := func() {
		defer func() { <-sem; wg.Done() }()
		for id := range work {
			res := s.runMachineWithRetry(ctx, in.Mode, id)
			switch res.Status {
			case domain.StatusError:
				metrics.IncMachineProcessed(metrics.ResultError)
			default:
				metrics.IncMachineProcessed(metrics.ResultSuccess)
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			if s.Cfg.DelayPerMachine > 0 {
				_ = sleepCtx(ctx, s.Cfg.DelayPerMachine)
			}
		}
	}

	for range w {
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
			wg.Add(1)
			go worker()
		}
	}
	for _, id := range machines {
		select {
		case <-ctx.Done():
		case work <- id:
			continue
		}
		break
	}
	close(work)
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].MachineID < results[j].MachineID })
	report := domain.RunReport{
		RunID:             runID,
		Mode:              in.Mode,
		StartedAt:         started,
		FinishedAt:        s.now().UTC(),
		MachinesProcessed: len(results),
		Results:           results,
	}
	metrics.ObserveAggregateRun(string(in.Mode), runResult(results), time.Since(started))
	return report, ctx.Err()
}

// runResult collapses per-machine outcomes into the run-level metric label
func runResult(results []domain.MachineResult) string {
	for _, r := range results {
		if r.Status == domain.StatusError {
			return metrics.ResultError
		}
	}
	return metrics.ResultSuccess
}

func (s *Service) runMachineWithRetry(ctx context.Context, mode domain.Mode, machineID string) domain.MachineResult {
	ctx = pnet.WithMachine(ctx, machineID)
	attempts := max(s.Cfg.MaxRetries, 1)
	base := s.Cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	var res domain.MachineResult
	var last error
	for i := range attempts {
		res, last = s.runMachine(ctx, mode, machineID)
		if last == nil {
			return res
		}
		if !perr.Retryable(last) && perr.CodeOf(last) != perr.ErrorCodeUnavailable {
			break
		}
		if i == attempts-1 {
			break
		}
		// Exponential backoff with jitter, cap at 30s
		d := min(base<<i, 30*time.Second)
		j := d/2 + time.Duration(rand.Int63n(int64(d/2)))
		if se := sleepCtx(ctx, j); se != nil {
			last = se
			break
		}
	}
	logger.C(ctx).Error().Err(last).Str("mode", string(mode)).Msg("aggregate: machine failed")
	return domain.MachineResult{MachineID: machineID, Status: domain.StatusError, Error: last.Error()}
}

func (s *Service) runMachine(ctx context.Context, mode domain.Mode, machineID string) (domain.MachineResult, error) {
	if s.Lease != nil && s.Cfg.EnableLeases {
		var res domain.MachineResult
		err := s.Lease(ctx, machineID, func(ctx context.Context) error {
			var e error
			res, e = s.runMachineUnlocked(ctx, mode, machineID)
			return e
		})
		if err != nil {
			if err == guardrails.ErrLeaseHeld {
				// another worker owns this machine, clean skip
				return domain.MachineResult{MachineID: machineID, Status: domain.StatusSkipped}, nil
			}
			return domain.MachineResult{}, err
		}
		return res, nil
	}
	return s.runMachineUnlocked(ctx, mode, machineID)
}

func (s *Service) runMachineUnlocked(ctx context.Context, mode domain.Mode, machineID string) (domain.MachineResult, error) {
	tos := guardrails.Timeouts{
		Machine: s.Cfg.MachineTimeout,
		Read:    s.Cfg.ReadTimeout,
		DB:      s.Cfg.DBTimeout,
	}
	mCtx, mCancel := guardrails.WithMachine(ctx, tos)
	defer mCancel()

	res := domain.MachineResult{MachineID: machineID, Status: domain.StatusOK}
	now := s.now().UTC()

	from, ok, err := s.windowStart(mCtx, mode, machineID)
	if err != nil {
		return domain.MachineResult{}, err
	}
	if !ok {
		// no telemetry at all yet
		res.Status = domain.StatusSkipped
		return res, nil
	}
	// widen to the start of the first affected day so its shares are
	// computed from the full day's samples
	from = period.StartOf(period.Daily, from)
	if !from.Before(now) {
		res.Status = domain.StatusSkipped
		return res, nil
	}

	rCtx, rCancel := guardrails.ForRead(mCtx, tos)
	snaps, err := s.Snaps.Range(rCtx, machineID, from, now)
	rCancel()
	if err != nil {
		return domain.MachineResult{}, err
	}
	res.SnapshotsRead = len(snaps)
	metrics.AddSnapshotsRead(len(snaps))
	if len(snaps) == 0 {
		res.Status = domain.StatusSkipped
		return res, nil
	}
	// insertion order is not guaranteed to match sampling order
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].At.Before(snaps[j].At) })

	evs := s.detectEvents(snaps)
	res.EventsDetected = len(evs)

	dCtx, dCancel := guardrails.ForDB(mCtx, tos)
	defer dCancel()

	if _, err := s.Repo.UpsertEvents(dCtx, evs); err != nil {
		return domain.MachineResult{}, perr.WrapIf(err, perr.ErrorCodeDB, "upsert events")
	}

	periods, err := s.rebuildSummaries(dCtx, machineID, snaps, from, now)
	if err != nil {
		return domain.MachineResult{}, err
	}
	res.PeriodsUpdated = periods

	if _, err := s.Repo.RecomputeTotals(dCtx, machineID); err != nil {
		return domain.MachineResult{}, perr.WrapIf(err, perr.ErrorCodeDB, "recompute totals")
	}
	if err := s.Repo.AdvanceWatermark(dCtx, machineID, snaps[len(snaps)-1].At); err != nil {
		return domain.MachineResult{}, perr.WrapIf(err, perr.ErrorCodeDB, "advance watermark")
	}

	logger.C(ctx).Info().
		Str("mode", string(mode)).
		Int("snapshots", res.SnapshotsRead).
		Int("events", res.EventsDetected).
		Int("periods", res.PeriodsUpdated).
		Msg("aggregate: machine done")
	return res, nil
}

// windowStart picks where processing begins for the machine.
// Backfill starts at the earliest snapshot; incremental resumes from
// the watermark minus the lookback overlap, falling back to a full
// backfill when no watermark exists yet. The overlap deliberately
// reprocesses already aggregated snapshots so telemetry that arrived
// late still lands in its period; upserts keyed on (machine_id, ts_utc)
// make the replay a no-op for everything already stored
func (s *Service) windowStart(ctx context.Context, mode domain.Mode, machineID string) (time.Time, bool, error) {
	if mode == domain.ModeBackfill {
		return s.Snaps.Earliest(ctx, machineID)
	}
	wm, ok, err := s.Repo.Watermark(ctx, machineID)
	if err != nil {
		return time.Time{}, false, perr.WrapIf(err, perr.ErrorCodeDB, "read watermark")
	}
	if !ok {
		return s.Snaps.Earliest(ctx, machineID)
	}
	lb := s.Cfg.Lookback
	if lb <= 0 {
		lb = 24 * time.Hour
	}
	return wm.Add(-lb), true, nil
}

// detectEvents walks consecutive snapshot pairs through the detector.
// Pairs separated by more than the staleness span are skipped, so a
// long outage cannot manufacture a production event when the tank
// refilled while the machine was dark
func (s *Service) detectEvents(snaps []domain.Snapshot) []domain.ProductionEvent {
	staleness := s.det.Params().Staleness
	var out []domain.ProductionEvent
	for i := 1; i < len(snaps); i++ {
		prev, curr := snaps[i-1], snaps[i]
		if curr.At.Sub(prev.At) > staleness {
			continue
		}
		ev, ok := s.det.Detect(
			event.Snapshot{MachineID: prev.MachineID, At: prev.At, WaterLevel: prev.WaterLevel},
			event.Snapshot{MachineID: curr.MachineID, At: curr.At, WaterLevel: curr.WaterLevel},
			curr.At,
		)
		if !ok {
			continue
		}
		metrics.IncEventDetected(string(ev.Type))
		out = append(out, domain.ProductionEvent{
			MachineID: ev.MachineID,
			At:        ev.At,
			Type:      ev.Type,
			Liters:    ev.Liters,
			PrevLevel: ev.PrevLevel,
			CurrLevel: ev.CurrLevel,
		})
	}
	return out
}

// rebuildSummaries recomputes every calendar bucket touched by
// [from, now): daily straight from samples and events, then weekly,
// monthly, and yearly re-derived from the stored finer summaries so a
// partially re-run bucket still averages over its full span
func (s *Service) rebuildSummaries(
	ctx context.Context,
	machineID string,
	snaps []domain.Snapshot,
	from, now time.Time,
) (int, error) {
	updated := 0

	daily, err := s.rebuildDaily(ctx, machineID, snaps, from, now)
	if err != nil {
		return updated, err
	}
	updated += len(daily)

	chain := []struct {
		g      period.Granularity
		finer  period.Granularity
		derive func([]rollup.Point) []rollup.Point
	}{
		{period.Weekly, period.Daily, rollup.WeeklyFromDaily},
		{period.Monthly, period.Weekly, rollup.MonthlyFromWeekly},
		{period.Yearly, period.Monthly, rollup.YearlyFromMonthly},
	}
	for _, step := range chain {
		n, err := s.rebuildCoarser(ctx, machineID, step.g, step.finer, step.derive, from, now)
		if err != nil {
			return updated, err
		}
		updated += n
	}
	return updated, nil
}

func (s *Service) rebuildDaily(
	ctx context.Context,
	machineID string,
	snaps []domain.Snapshot,
	from, now time.Time,
) ([]domain.PeriodSummary, error) {
	samples := make([]status.Sample, 0, len(snaps))
	for _, sn := range snaps {
		samples = append(samples, status.Sample{
			At:           sn.At,
			Producing:    sn.Producing,
			CompressorOn: sn.CompressorOn,
			FullTank:     sn.FullTank,
		})
	}

	var sums []domain.PeriodSummary
	for day := period.StartOf(period.Daily, from); day.Before(now); day = period.Next(period.Daily, day) {
		end := period.Next(period.Daily, day)
		produced, drained, err := s.Repo.EventTotals(ctx, machineID, day, end)
		if err != nil {
			return nil, perr.WrapIf(err, perr.ErrorCodeDB, "sum events")
		}
		sums = append(sums, domain.PeriodSummary{
			MachineID:      machineID,
			Granularity:    period.Daily,
			PeriodStart:    day,
			PeriodKey:      period.Key(period.Daily, day),
			ProducedLiters: produced,
			DrainedLiters:  drained,
			Shares:         s.cls.Classify(samples, day, end),
		})
	}
	if err := s.Repo.UpsertSummaries(ctx, sums); err != nil {
		return nil, perr.WrapIf(err, perr.ErrorCodeDB, "upsert daily summaries")
	}
	return sums, nil
}

func (s *Service) rebuildCoarser(
	ctx context.Context,
	machineID string,
	g, finer period.Granularity,
	derive func([]rollup.Point) []rollup.Point,
	from, now time.Time,
) (int, error) {
	// every coarser bucket overlapping the run window gets rebuilt from
	// ALL of its stored finer summaries, not just the ones this run wrote
	first := period.StartOf(g, from)
	last := period.Next(g, period.StartOf(g, now))

	finerSums, err := s.Repo.Summaries(ctx, machineID, finer, first, last)
	if err != nil {
		return 0, perr.WrapIf(err, perr.ErrorCodeDB, "read finer summaries")
	}
	if len(finerSums) == 0 {
		return 0, nil
	}

	points := make([]rollup.Point, 0, len(finerSums))
	producedByStart := map[time.Time]float64{}
	drainedByStart := map[time.Time]float64{}
	for _, fs := range finerSums {
		points = append(points, rollup.Point{PeriodStart: fs.PeriodStart, Shares: fs.Shares})
		k := period.StartOf(g, fs.PeriodStart)
		producedByStart[k] += fs.ProducedLiters
		drainedByStart[k] += fs.DrainedLiters
	}

	var sums []domain.PeriodSummary
	for _, p := range derive(points) {
		sums = append(sums, domain.PeriodSummary{
			MachineID:      machineID,
			Granularity:    g,
			PeriodStart:    p.PeriodStart,
			PeriodKey:      period.Key(g, p.PeriodStart),
			ProducedLiters: producedByStart[p.PeriodStart],
			DrainedLiters:  drainedByStart[p.PeriodStart],
			Shares:         p.Shares,
		})
	}
	if err := s.Repo.UpsertSummaries(ctx, sums); err != nil {
		return 0, perr.WrapIf(err, perr.ErrorCodeDB, "upsert summaries")
	}
	return len(sums), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
