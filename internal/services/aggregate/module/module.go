// Package module wires the aggregation pipeline using modkit
package module

import (
	"net/http"

	"aquawatch/internal/core/event"
	modkit "aquawatch/internal/modkit"
	"aquawatch/internal/modkit/httpkit"
	str "aquawatch/internal/platform/strings"
	"aquawatch/internal/services/aggregate/guardrails"
	agghttp "aquawatch/internal/services/aggregate/http"
	aggrepo "aquawatch/internal/services/aggregate/repo"
	aggsvc "aquawatch/internal/services/aggregate/service"
	telrepo "aquawatch/internal/services/telemetry/repo"
)

// Module implements the aggregate module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws   []func(http.Handler) http.Handler
	ports any

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *aggsvc.Service
}

// New constructs the aggregate module.
// It wires the postgres repo, the clickhouse snapshot source, and the
// advisory lease using config from deps.Cfg
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append(
		[]modkit.Option{modkit.WithName("aggregate"), modkit.WithPrefix("/aggregate")},
		opts...,
	)...)

	o := FromConfig(deps.Cfg)

	snaps := telrepo.NewCH(deps.CH)
	leaseFn := guardrails.MakeMachineLease(deps, o.LeaseTTL)

	svc := aggsvc.New(
		deps.PG, aggrepo.NewPG(), snaps,
		aggsvc.Config{
			Workers:         o.Workers,
			DelayPerMachine: o.DelayPerMachine,
			MaxRetries:      o.MaxRetries,
			RetryBase:       o.RetryBase,
			Lookback:        o.Lookback,
			MachineTimeout:  o.MachineTimeout,
			ReadTimeout:     o.ReadTimeout,
			DBTimeout:       o.DBTimeout,
			EnableLeases:    o.EnableLeases,
			Detector: event.Params{
				DrainMinLiters: o.DrainMinLiters,
				DrainMinPct:    o.DrainMinPct,
				ProdMinLiters:  o.ProdMinLiters,
				MaxRateLPM:     o.MaxRateLPM,
				Staleness:      o.Staleness,
			},
			GapThreshold:    o.GapThreshold,
			NominalInterval: o.NominalInterval,
		},
		leaseFn,
	)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Runner: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		agghttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }
