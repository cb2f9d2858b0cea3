package services

import (
	"log/slog"
	"runtime"
	"time"
)

// ClientCounter reports connected websocket clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthService reports liveness plus a summary of the last pipeline
// run and source reachability.
type HealthService struct {
	version   string
	dashboard *DashboardService
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus is the health endpoint response.
type HealthStatus struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Runtime   map[string]any `json:"runtime"`
	Pipeline  map[string]any `json:"pipeline"`
}

// NewHealthService wires the health service. The clients counter may
// be nil.
func NewHealthService(version string, dashboard *DashboardService, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		dashboard: dashboard,
		clients:   clients,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// Check builds the current health report. The process is "healthy"
// once a pipeline run has produced a non-degraded state, "degraded"
// when the last run fell back to the empty bundle, and "starting"
// before the first run.
func (h *HealthService) Check() HealthStatus {
	status := HealthStatus{
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]any{
			"uptime_seconds": time.Since(h.startTime).Seconds(),
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
		},
		Pipeline: map[string]any{},
	}

	if h.clients != nil {
		status.Runtime["websocket_clients"] = h.clients.ClientCount()
	}

	state, err := h.dashboard.State()
	if err != nil {
		status.Status = "starting"
		return status
	}

	status.Status = "healthy"
	if state.Degraded {
		status.Status = "degraded"
	}

	matched, unmatched := h.dashboard.MatchSummary()
	sources := make(map[string]any, len(state.Statuses))
	for _, st := range state.Statuses {
		sources[string(st.Source)] = map[string]any{
			"ok":         st.OK,
			"error":      st.Error,
			"from_cache": st.FromCache,
		}
	}

	status.Pipeline = map[string]any{
		"run_id":             state.RunID,
		"fetched_at":         state.FetchedAt,
		"age_seconds":        time.Since(state.FetchedAt).Seconds(),
		"units":              len(state.Bundle.Diffs),
		"matched_features":   matched,
		"unmatched_features": unmatched,
		"sources":            sources,
	}

	return status
}
