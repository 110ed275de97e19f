// Package http provides http transport for aggregation runs
package http

import (
	stdhttp "net/http"

	"aquawatch/internal/modkit/httpkit"
	"aquawatch/internal/services/aggregate/domain"
)

// Register mounts aggregation endpoints on the given router
func Register(r httpkit.Router, s domain.RunnerPort) {
	h := &handlers{svc: s}

	// trigger one aggregation pass
	httpkit.PostJSON[domain.RunInput](r, "/run", h.run)
}

type handlers struct{ svc domain.RunnerPort }

func (h *handlers) run(r *stdhttp.Request, in domain.RunInput) (any, error) {
	return h.svc.Run(r.Context(), in)
}
