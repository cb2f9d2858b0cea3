package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "electionpulse/internal/errors"
	"electionpulse/internal/exporter"
	"electionpulse/internal/services"
)

// ExportHandler serves downloadable renditions of the latest bundle.
type ExportHandler struct {
	service *services.DashboardService
	errors  *apierrors.ErrorHandler
	logger  *slog.Logger
}

// NewExportHandler creates the handler.
func NewExportHandler(service *services.DashboardService, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ExportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportHandler{
		service: service,
		errors:  errorHandler,
		logger:  logger.With(slog.String("component", "export_handler")),
	}
}

// Routes mounts the export endpoints.
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/diffs.csv", h.DiffsCSV)
	r.Get("/anomalies.xlsx", h.AnomaliesXLSX)
	return r
}

// DiffsCSV streams the turnout diff table as CSV.
func (h *ExportHandler) DiffsCSV(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.service.Bundle()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="turnout_diffs.csv"`)

	if err := exporter.WriteDiffsCSV(w, bundle.Diffs); err != nil {
		// Headers are already sent; all we can do is log
		h.logger.ErrorContext(r.Context(), "csv export failed",
			slog.String("error", err.Error()))
	}
}

// AnomaliesXLSX builds and streams the anomaly workbook.
func (h *ExportHandler) AnomaliesXLSX(w http.ResponseWriter, r *http.Request) {
	scores, err := h.service.AnomalyScores()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	parties, err := h.service.PartyStats()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	workbook, err := exporter.BuildAnomalyWorkbook(scores, parties)
	if err != nil {
		h.errors.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusInternalServerError, "EXPORT_FAILED",
			"Export generation failed", fmt.Sprintf("workbook: %v", err)))
		return
	}
	defer workbook.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="anomalies.xlsx"`)

	if err := workbook.Write(w); err != nil {
		h.logger.ErrorContext(r.Context(), "workbook export failed",
			slog.String("error", err.Error()))
	}
}

func (h *ExportHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrNotReady) {
		h.errors.HandleError(w, r, apierrors.ErrSnapshotNotReady)
		return
	}
	h.errors.HandleError(w, r, err)
}
