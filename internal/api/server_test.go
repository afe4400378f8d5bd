// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mchestr/plex-maintenance-engine/internal/health"
	"github.com/mchestr/plex-maintenance-engine/internal/log"
	"github.com/mchestr/plex-maintenance-engine/internal/report"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	m := health.NewManager("test")
	return NewServer(Config{Addr: ":0"}, m)
}

func TestServerHealthzReturnsOK(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestServerReadyzReturnsOKWithNoCheckers(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestServerMetricsIsScrapeable(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "go_goroutines")
}

func TestServerDebugLogsRoundTrip(t *testing.T) {
	log.Configure(log.Config{})
	log.ClearRecentLogs()
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/debug/logs", nil)
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"entries"`)

	delReq := httptest.NewRequest(http.MethodDelete, "/debug/logs", nil)
	delW := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(delW, delReq)
	require.Equal(t, http.StatusNoContent, delW.Code)
}

func TestServerLastScanReturnsNotFoundWhenUnconfigured(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/debug/last-scan", nil)
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerLastScanReturnsNotFoundBeforeFirstSnapshot(t *testing.T) {
	m := health.NewManager("test")
	rw := report.NewWriter(filepath.Join(t.TempDir(), "last-scan.json"))
	s := NewServer(Config{Addr: ":0", ReportWriter: rw}, m)

	req := httptest.NewRequest(http.MethodGet, "/debug/last-scan", nil)
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerLastScanReturnsSnapshot(t *testing.T) {
	m := health.NewManager("test")
	rw := report.NewWriter(filepath.Join(t.TempDir(), "last-scan.json"))
	require.NoError(t, rw.Write(report.Summary{
		ScanID:       "scan-1",
		RuleID:       "rule-1",
		Status:       "COMPLETED",
		ItemsScanned: 3,
		ItemsFlagged: 1,
		FinishedAt:   time.Now().UTC(),
	}))
	s := NewServer(Config{Addr: ":0", ReportWriter: rw}, m)

	req := httptest.NewRequest(http.MethodGet, "/debug/last-scan", nil)
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"scanId":"scan-1"`)
}
