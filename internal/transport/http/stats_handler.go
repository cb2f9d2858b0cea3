package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "electionpulse/internal/errors"
	"electionpulse/internal/services"
)

// StatsHandler serves group and party statistics over the latest
// bundle.
type StatsHandler struct {
	service *services.DashboardService
	errors  *apierrors.ErrorHandler
	logger  *slog.Logger
}

// NewStatsHandler creates the handler.
func NewStatsHandler(service *services.DashboardService, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *StatsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsHandler{
		service: service,
		errors:  errorHandler,
		logger:  logger.With(slog.String("component", "stats_handler")),
	}
}

// Routes mounts the statistics endpoints.
func (h *StatsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/national", h.National)
	r.Get("/regions", h.Regions)
	r.Get("/parties", h.Parties)
	return r
}

// National aggregates all units, or an arbitrary subset when the
// "units" query parameter carries a comma-separated id list.
func (h *StatsHandler) National(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("units"); raw != "" {
		subset, err := h.service.SubsetStats(strings.Split(raw, ","))
		if err != nil {
			h.handleServiceError(w, r, err)
			return
		}
		render.JSON(w, r, subset)
		return
	}

	national, err := h.service.NationalStats()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, national)
}

// Regions aggregates per region.
func (h *StatsHandler) Regions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.service.RegionStats()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, regions)
}

// Parties returns the per-winning-party diff distributions.
func (h *StatsHandler) Parties(w http.ResponseWriter, r *http.Request) {
	parties, err := h.service.PartyStats()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, parties)
}

func (h *StatsHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrNotReady) {
		h.errors.HandleError(w, r, apierrors.ErrSnapshotNotReady)
		return
	}
	h.errors.HandleError(w, r, err)
}
