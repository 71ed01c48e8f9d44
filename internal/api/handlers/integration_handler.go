package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"
	apiContext "github.com/wilson1442/Webhook-Hub/internal/api/context"
	"github.com/wilson1442/Webhook-Hub/internal/pkg/errors"
	"github.com/wilson1442/Webhook-Hub/internal/platform/models"
	"github.com/wilson1442/Webhook-Hub/internal/platform/repositories"
)

type IntegrationHandler struct {
	integrations *repositories.IntegrationRepository
	validate     *validator.Validate
}

func NewIntegrationHandler(integrations *repositories.IntegrationRepository) *IntegrationHandler {
	return &IntegrationHandler{
		integrations: integrations,
		validate:     validator.New(),
	}
}

// List returns all configured integrations with masked credentials.
// Decrypted values never leave the server.
func (h *IntegrationHandler) List(w http.ResponseWriter, r *http.Request) {
	integrations, err := h.integrations.List()
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list integrations", nil)
		return
	}

	masked := make([]models.Integration, 0, len(integrations))
	for _, integration := range integrations {
		masked = append(masked, integration.Masked())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(masked)
}

func (h *IntegrationHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	var req struct {
		Credentials models.Credentials `json:"credentials" validate:"required,min=1"`
		IsActive    *bool              `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Validation failed", err.Error())
		return
	}

	service := params.ByName("service")
	if service != models.ServiceSendGrid && service != models.ServiceSMTP2GO {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Unknown integration service", nil)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	integration := &models.Integration{
		ServiceName: service,
		Credentials: req.Credentials,
		IsActive:    active,
	}

	if err := h.integrations.Upsert(integration); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to save integration", nil)
		return
	}

	masked := integration.Masked()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(masked)
}

func (h *IntegrationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	if err := h.integrations.Delete(params.ByName("service")); err != nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Integration not found", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
