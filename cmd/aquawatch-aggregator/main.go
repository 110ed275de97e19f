package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/robfig/cron/v3"

	"aquawatch/internal/modkit"
	"aquawatch/internal/modkit/module"
	"aquawatch/internal/modkit/repokit"
	"aquawatch/internal/platform/config"
	"aquawatch/internal/platform/logger"
	"aquawatch/internal/platform/metrics"
	"aquawatch/internal/platform/store"

	aggdom "aquawatch/internal/services/aggregate/domain"
	aggmod "aquawatch/internal/services/aggregate/module"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	agCfg := root.Prefix("CORE_AGG_")

	l := logger.Get()
	metrics.Init()

	st, err := store.Open(context.Background(), store.Config{
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", true),
		},
		CH: store.CHConfig{
			Enabled:    true,
			URL:        chCfg.MustString("DBURL"),
			LogSQL:     chCfg.MayBool("LOG_SQL", true),
			ClientName: "aquawatch",
			ClientTag:  "aggregator",
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(context.Background(), st)

	var (
		fMode    = flag.String("mode", "incremental", "run mode: incremental | backfill")
		fMachine = flag.String("machine", "", "limit the run to a single machine id")
		fOnce    = flag.Bool("once", false, "run a single pass and exit instead of scheduling")
	)
	flag.Parse()

	mode := aggdom.Mode(*fMode)
	if !mode.Valid() {
		l.Panic().Str("mode", *fMode).Msg("bad -mode")
	}

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		CH:  st.CH,
		Log: *l,
	}

	ag := aggmod.New(deps)
	module.Register(ag.Name(), ag.Ports())
	runner := ag.Ports().(aggmod.Ports).Runner

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOnce := func() {
		rep, err := runner.Run(ctx, aggdom.RunInput{Mode: mode, MachineID: *fMachine})
		if err != nil {
			l.Error().Err(err).Str("mode", string(mode)).Msg("aggregation run failed")
			return
		}
		failed := 0
		for _, r := range rep.Results {
			if r.Status == aggdom.StatusError {
				failed++
			}
		}
		l.Info().
			Str("run_id", rep.RunID).
			Str("mode", string(mode)).
			Int("machines", rep.MachinesProcessed).
			Int("failed", failed).
			Dur("elapsed", rep.FinishedAt.Sub(rep.StartedAt)).
			Msg("aggregation run done")
	}

	if *fOnce || mode == aggdom.ModeBackfill {
		runOnce()
		return
	}

	// scheduled incremental runs; a tick that lands while the previous
	// run is still going is skipped rather than queued
	spec := agCfg.MayString("SCHEDULE", "@every 5m")
	var busy atomic.Bool
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if !busy.CompareAndSwap(false, true) {
			l.Warn().Msg("previous aggregation still running, skipping tick")
			return
		}
		defer busy.Store(false)
		runOnce()
	}); err != nil {
		l.Panic().Err(err).Str("schedule", spec).Msg("bad CORE_AGG_SCHEDULE")
	}

	l.Info().Str("schedule", spec).Msg("aggregator scheduled")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
}
