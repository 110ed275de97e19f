// Package http provides http transport for telemetry ingest
package http

import (
	stdhttp "net/http"

	"aquawatch/internal/modkit/httpkit"
	"aquawatch/internal/services/telemetry/domain"
	svc "aquawatch/internal/services/telemetry/service"
)

// Register mounts telemetry endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	// batched snapshot ingest
	httpkit.PostJSON[domain.IngestBatch](r, "/snapshots", h.ingest)
}

type handlers struct{ svc svc.Service }

func (h *handlers) ingest(r *stdhttp.Request, in domain.IngestBatch) (any, error) {
	return h.svc.Ingest(r.Context(), in)
}
