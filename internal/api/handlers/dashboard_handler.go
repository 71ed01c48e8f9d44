package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wilson1442/Webhook-Hub/internal/pkg/errors"
	"github.com/wilson1442/Webhook-Hub/internal/platform/models"
	"github.com/wilson1442/Webhook-Hub/internal/platform/repositories"
)

type DashboardHandler struct {
	endpoints *repositories.EndpointRepository
	logs      *repositories.LogRepository
}

func NewDashboardHandler(endpoints *repositories.EndpointRepository, logs *repositories.LogRepository) *DashboardHandler {
	return &DashboardHandler{endpoints: endpoints, logs: logs}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	endpointCount, err := h.endpoints.Count()
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load stats", nil)
		return
	}

	logStats, err := h.logs.Stats()
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load stats", nil)
		return
	}

	recent, err := h.logs.List("", 10)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load stats", nil)
		return
	}

	response := struct {
		Endpoints int64                  `json:"endpoints"`
		Logs      *repositories.LogStats `json:"logs"`
		Recent    []*models.LogEntry     `json:"recent"`
	}{
		Endpoints: endpointCount,
		Logs:      logStats,
		Recent:    recent,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
