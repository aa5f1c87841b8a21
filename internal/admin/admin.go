// Package admin serves the local health, status and metrics endpoints.
package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/chatwire/internal/connection"
	"github.com/rickgao/chatwire/internal/dispatch"
	"github.com/rickgao/chatwire/internal/version"
)

// Session is the part of the connection manager the admin endpoints read.
type Session interface {
	Stats() connection.Stats
	URL() string
}

// Status is the /status response body.
type Status struct {
	ClientID        string           `json:"client_id"`
	URL             string           `json:"url"`
	State           string           `json:"state"`
	Attempts        int              `json:"attempts"`
	ManuallyStopped bool             `json:"manually_stopped"`
	RetryPending    bool             `json:"retry_pending"`
	ConnectedSince  *time.Time       `json:"connected_since,omitempty"`
	Routed          map[string]int64 `json:"routed"`
	Unhandled       map[string]int64 `json:"unhandled"`
	Panics          int64            `json:"panics"`
	Version         version.Info     `json:"version"`
}

// NewRouter creates the admin HTTP handler.
func NewRouter(session Session, gatherer prometheus.Gatherer, metricsPath string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		stats := session.Stats()

		health := struct {
			Status string `json:"status"`
			State  string `json:"state"`
		}{
			Status: "healthy",
			State:  stats.State.String(),
		}

		code := http.StatusOK
		switch stats.State {
		case connection.StateConnecting:
			health.Status = "degraded"
		case connection.StateDisconnected:
			health.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, health, logger)
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, NewStatus(session), logger)
	})

	if gatherer != nil {
		r.Method(http.MethodGet, metricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// NewStatus builds a status snapshot from session.
func NewStatus(session Session) Status {
	stats := session.Stats()

	s := Status{
		ClientID:        stats.ClientID,
		URL:             session.URL(),
		State:           stats.State.String(),
		Attempts:        stats.Attempts,
		ManuallyStopped: stats.ManuallyStopped,
		RetryPending:    stats.RetryPending,
		Routed:          byName(stats.Dispatch.Routed),
		Unhandled:       byName(stats.Dispatch.Unhandled),
		Panics:          stats.Dispatch.Panics,
		Version:         version.Get(),
	}
	if !stats.ConnectedSince.IsZero() {
		since := stats.ConnectedSince
		s.ConnectedSince = &since
	}
	return s
}

// byName reports every callback kind, zero when nothing was counted.
func byName(counts map[dispatch.Kind]int64) map[string]int64 {
	kinds := dispatch.Kinds()
	out := make(map[string]int64, len(kinds))
	for _, k := range kinds {
		out[k.String()] = counts[k]
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to write admin response", "error", err)
	}
}
