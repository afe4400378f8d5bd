// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mchestr/plex-maintenance-engine/internal/log"
	"github.com/mchestr/plex-maintenance-engine/internal/report"
)

// mountAdmin registers /metrics, the diagnostic log buffer, and the
// last-scan snapshot endpoints. reportWriter may be nil, in which case
// /debug/last-scan always reports 404.
func mountAdmin(r chi.Router, reportWriter *report.Writer) {
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/debug/logs", serveRecentLogs)
	r.Delete("/debug/logs", clearRecentLogs)

	r.Get("/debug/last-scan", serveLastScan(reportWriter))
}

func serveRecentLogs(w http.ResponseWriter, r *http.Request) {
	entries := log.GetRecentLogs()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

func clearRecentLogs(w http.ResponseWriter, _ *http.Request) {
	log.ClearRecentLogs()
	w.WriteHeader(http.StatusNoContent)
}

// serveLastScan returns the most recently persisted scan report
// snapshot, written atomically by internal/report after each scan.
func serveLastScan(reportWriter *report.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if reportWriter == nil {
			http.NotFound(w, nil)
			return
		}
		summary, err := reportWriter.Read()
		if err != nil {
			http.NotFound(w, nil)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(summary)
	}
}
