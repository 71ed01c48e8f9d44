package handlers

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	apiContext "github.com/wilson1442/Webhook-Hub/internal/api/context"
	"github.com/wilson1442/Webhook-Hub/internal/engine/dispatch"
	"github.com/wilson1442/Webhook-Hub/internal/pkg/errors"
	"github.com/wilson1442/Webhook-Hub/internal/platform/models"
	"github.com/wilson1442/Webhook-Hub/internal/platform/repositories"
)

type LogHandler struct {
	logs   *repositories.LogRepository
	engine *dispatch.Engine
}

func NewLogHandler(logs *repositories.LogRepository, engine *dispatch.Engine) *LogHandler {
	return &LogHandler{logs: logs, engine: engine}
}

func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	endpointID := r.URL.Query().Get("endpoint_id")

	entries, err := h.logs.List(endpointID, limit)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list logs", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (h *LogHandler) Get(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	entry, err := h.logs.GetByID(params.ByName("log_id"))
	if err != nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Log entry not found", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// Retry re-runs a failed dispatch using the stored payload and the
// endpoint's current configuration.
func (h *LogHandler) Retry(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	result, err := h.engine.Retry(r.Context(), params.ByName("log_id"))
	if err != nil {
		writeDispatchError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *LogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	if err := h.logs.Delete(params.ByName("log_id")); err != nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Log entry not found", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Purge deletes log entries in bulk: everything by default, or only
// failed entries with ?status=failed.
func (h *LogHandler) Purge(w http.ResponseWriter, r *http.Request) {
	var deleted int64
	var err error

	switch status := r.URL.Query().Get("status"); status {
	case "":
		deleted, err = h.logs.DeleteAll()
	case models.StatusFailed:
		deleted, err = h.logs.DeleteFailed()
	default:
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Unsupported status filter", nil)
		return
	}
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to purge logs", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"deleted": deleted})
}

// ExportCSV streams the filtered log list as a CSV download.
func (h *LogHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	endpointID := r.URL.Query().Get("endpoint_id")

	entries, err := h.logs.List(endpointID, limit)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to export logs", nil)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="webhook_logs.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"id", "endpoint_name", "timestamp", "status", "source_ip", "payload_summary", "response_message"})
	for _, entry := range entries {
		cw.Write([]string{
			entry.ID,
			entry.EndpointName,
			time.Unix(entry.Timestamp, 0).UTC().Format(time.RFC3339),
			entry.Status,
			entry.SourceIP,
			entry.PayloadSummary,
			entry.ResponseMessage,
		})
	}
	cw.Flush()
}
