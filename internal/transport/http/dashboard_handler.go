package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "electionpulse/internal/errors"
	"electionpulse/internal/services"
	"electionpulse/pkg/contracts/domain"
)

// DashboardHandler serves the reconciled lookup bundle and pipeline
// status.
type DashboardHandler struct {
	service *services.DashboardService
	errors  *apierrors.ErrorHandler
	logger  *slog.Logger
}

// NewDashboardHandler creates the handler.
func NewDashboardHandler(service *services.DashboardService, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{
		service: service,
		errors:  errorHandler,
		logger:  logger.With(slog.String("component", "dashboard_handler")),
	}
}

// Routes mounts the dashboard endpoints.
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/bundle", h.Bundle)
	r.Get("/status", h.Status)
	return r
}

// BundleResponse is the full dashboard payload: the five lookup maps
// plus the boundary features with their match outcome.
type BundleResponse struct {
	Bundle    any                      `json:"bundle"`
	Features  []domain.BoundaryFeature `json:"features"`
	Matched   int                      `json:"matched"`
	Unmatched int                      `json:"unmatched"`
}

// Bundle returns the latest lookup bundle with the boundary features.
func (h *DashboardHandler) Bundle(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.service.Bundle()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	matched, unmatched := h.service.MatchSummary()
	render.JSON(w, r, BundleResponse{
		Bundle:    bundle,
		Features:  h.service.Features(),
		Matched:   matched,
		Unmatched: unmatched,
	})
}

// StatusResponse is the pipeline status without the bundle payload.
type StatusResponse struct {
	RunID     string `json:"run_id"`
	FetchedAt any    `json:"fetched_at"`
	Degraded  bool   `json:"degraded"`
	Units     int    `json:"units"`
	Sources   any    `json:"sources"`
}

// Status reports the latest run's outcome and per-source statuses.
func (h *DashboardHandler) Status(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, StatusResponse{
		RunID:     state.RunID,
		FetchedAt: state.FetchedAt,
		Degraded:  state.Degraded,
		Units:     len(state.Bundle.Diffs),
		Sources:   state.Statuses,
	})
}

func (h *DashboardHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrNotReady) {
		h.errors.HandleError(w, r, apierrors.ErrSnapshotNotReady)
		return
	}
	h.errors.HandleError(w, r, err)
}
