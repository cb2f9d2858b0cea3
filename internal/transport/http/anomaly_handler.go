package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"electionpulse/internal/anomaly"
	apierrors "electionpulse/internal/errors"
	"electionpulse/internal/services"
)

// AnomalyHandler serves the composite scores and z-score views.
type AnomalyHandler struct {
	service *services.DashboardService
	errors  *apierrors.ErrorHandler
	logger  *slog.Logger
}

// NewAnomalyHandler creates the handler.
func NewAnomalyHandler(service *services.DashboardService, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *AnomalyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnomalyHandler{
		service: service,
		errors:  errorHandler,
		logger:  logger.With(slog.String("component", "anomaly_handler")),
	}
}

// Routes mounts the anomaly endpoints.
func (h *AnomalyHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/scores", h.Scores)
	r.Get("/zscore", h.ZScores)
	r.Get("/parties", h.Parties)
	return r
}

// Scores returns the composite forensics scores, highest first.
func (h *AnomalyHandler) Scores(w http.ResponseWriter, r *http.Request) {
	scores, err := h.service.AnomalyScores()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, scores)
}

// ZScoreResponse pairs the global z-score report with the diff box
// plot for scatter and box display.
type ZScoreResponse struct {
	Report  anomaly.ZScoreReport `json:"report"`
	BoxPlot anomaly.BoxPlot      `json:"box_plot"`
}

// ZScores returns the global z-score test plus the diff distribution
// box plot.
func (h *AnomalyHandler) ZScores(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GlobalZScores()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	box, err := h.service.DiffBoxPlot()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, ZScoreResponse{Report: report, BoxPlot: box})
}

// Parties returns the z-score flags grouped by winning party.
func (h *AnomalyHandler) Parties(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.PartyZScores()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, groups)
}

func (h *AnomalyHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrNotReady) {
		h.errors.HandleError(w, r, apierrors.ErrSnapshotNotReady)
		return
	}
	h.errors.HandleError(w, r, err)
}
