// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/mchestr/plex-maintenance-engine/internal/health"
)

// mountHealth registers the liveness and readiness endpoints.
func mountHealth(r chi.Router, m *health.Manager) {
	r.Get("/healthz", m.ServeHealth)
	r.Get("/readyz", m.ServeReady)
}
