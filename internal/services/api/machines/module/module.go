// Package module wires machines into the API using modkit
package module

import (
	"net/http"

	modkit "aquawatch/internal/modkit"
	"aquawatch/internal/modkit/httpkit"
	str "aquawatch/internal/platform/strings"
	machhttp "aquawatch/internal/services/api/machines/http"
	machrepo "aquawatch/internal/services/api/machines/repo"
	machsvc "aquawatch/internal/services/api/machines/service"
)

// Module implements the machines module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws   []func(http.Handler) http.Handler
	ports any

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc machsvc.Service
}

// New constructs the machines module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append(
		[]modkit.Option{modkit.WithName("machines"), modkit.WithPrefix("/machines")},
		opts...,
	)...)

	repo := machrepo.NewPG()
	svc := machsvc.New(deps.PG, repo)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = adaptMachinesPort{svc: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		machhttp.Register(r, m.svc)
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
