// Package http provides http transport for machine reads
package http

import (
	stdhttp "net/http"

	"aquawatch/internal/modkit/httpkit"
	"aquawatch/internal/services/api/machines/domain"
	svc "aquawatch/internal/services/api/machines/service"
)

// Register mounts machine endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	// fleet listing with lifetime totals
	httpkit.PostJSON[domain.ListInput](r, "/list", h.list)

	// stored period summaries for one machine
	httpkit.PostJSON[domain.SummariesInput](r, "/summaries", h.summaries)

	// the current UTC day's state breakdown
	httpkit.PostJSON[domain.StatusTodayInput](r, "/status-today", h.statusToday)
}

type handlers struct{ svc svc.Service }

func (h *handlers) list(r *stdhttp.Request, in domain.ListInput) (any, error) {
	return h.svc.List(r.Context(), in)
}

func (h *handlers) summaries(r *stdhttp.Request, in domain.SummariesInput) (any, error) {
	return h.svc.Summaries(r.Context(), in)
}

func (h *handlers) statusToday(r *stdhttp.Request, in domain.StatusTodayInput) (any, error) {
	return h.svc.StatusToday(r.Context(), in)
}
