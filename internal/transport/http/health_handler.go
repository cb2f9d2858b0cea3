package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"electionpulse/internal/services"
)

// HealthHandler serves the liveness and pipeline health report.
type HealthHandler struct {
	service *services.HealthService
	logger  *slog.Logger
}

// NewHealthHandler creates the handler.
func NewHealthHandler(service *services.HealthService, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		service: service,
		logger:  logger.With(slog.String("component", "health_handler")),
	}
}

// Healthz reports process and pipeline health. Always 200: degraded
// and starting states are conveyed in the body, since the process
// itself is alive.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Check())
}
