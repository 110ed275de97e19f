// Package api provides the HTTP API for the application
package api

import (
	"aquawatch/internal/platform/config"
	"aquawatch/internal/platform/logger"
	"aquawatch/internal/platform/metrics"
	phttp "aquawatch/internal/platform/net/http"
	"aquawatch/internal/platform/store"

	"aquawatch/internal/modkit"
	"aquawatch/internal/modkit/httpkit"
	"aquawatch/internal/modkit/module"

	machmod "aquawatch/internal/services/api/machines/module"
	metamod "aquawatch/internal/services/api/meta/module"

	// Pipeline modules exposing ingest and run endpoints
	aggmod "aquawatch/internal/services/aggregate/module"
	telmod "aquawatch/internal/services/telemetry/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
	}

	mods := []module.Module{
		metamod.New(deps),
		machmod.New(deps),
		telmod.New(deps),
		aggmod.New(deps),
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
		r.Handle("/metrics", metrics.Handler())

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})
}
