package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"
	apiContext "github.com/wilson1442/Webhook-Hub/internal/api/context"
	"github.com/wilson1442/Webhook-Hub/internal/engine/mapping"
	"github.com/wilson1442/Webhook-Hub/internal/pkg/errors"
	"github.com/wilson1442/Webhook-Hub/internal/platform/auth"
	"github.com/wilson1442/Webhook-Hub/internal/platform/models"
	"github.com/wilson1442/Webhook-Hub/internal/platform/repositories"
)

type EndpointHandler struct {
	endpoints *repositories.EndpointRepository
	validate  *validator.Validate
}

func NewEndpointHandler(endpoints *repositories.EndpointRepository) *EndpointHandler {
	return &EndpointHandler{
		endpoints: endpoints,
		validate:  validator.New(),
	}
}

type endpointRequest struct {
	Name               string          `json:"name" validate:"required,max=200"`
	Path               string          `json:"path" validate:"required,max=100,excludesall=/ "`
	Mode               string          `json:"mode" validate:"required,oneof=add_contact send_email"`
	Integration        string          `json:"integration" validate:"omitempty,oneof=sendgrid smtp2go"`
	FieldMapping       json.RawMessage `json:"field_mapping"`
	SendGridListID     string          `json:"sendgrid_list_id"`
	SendGridTemplateID string          `json:"sendgrid_template_id"`
	EmailFrom          string          `json:"email_from" validate:"omitempty,max=320"`
	EmailFromName      string          `json:"email_from_name" validate:"omitempty,max=200"`
	Enabled            *bool           `json:"enabled"`
}

// decode parses and validates the request body, returning the endpoint
// fields plus the normalized mapping. Writes the error response itself.
func (h *EndpointHandler) decode(w http.ResponseWriter, r *http.Request) (*endpointRequest, mapping.FieldMapping, bool) {
	var req endpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return nil, mapping.FieldMapping{}, false
	}

	if err := h.validate.Struct(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Validation failed", err.Error())
		return nil, mapping.FieldMapping{}, false
	}

	fm := mapping.New()
	if len(req.FieldMapping) > 0 {
		parsed, err := mapping.Parse(req.FieldMapping)
		if err != nil {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid field mapping", err.Error())
			return nil, mapping.FieldMapping{}, false
		}
		fm = parsed
	}

	if req.Integration == "" {
		req.Integration = models.ServiceSendGrid
	}

	return &req, fm, true
}

func (h *EndpointHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, fm, ok := h.decode(w, r)
	if !ok {
		return
	}

	var createdBy string
	if claims, ok := r.Context().Value(apiContext.Claims).(*auth.Claims); ok {
		createdBy = claims.Username
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	endpoint := &models.Endpoint{
		Name:               req.Name,
		Path:               req.Path,
		Mode:               mapping.Mode(req.Mode),
		Integration:        req.Integration,
		FieldMapping:       fm,
		SendGridListID:     req.SendGridListID,
		SendGridTemplateID: req.SendGridTemplateID,
		EmailFrom:          req.EmailFrom,
		EmailFromName:      req.EmailFromName,
		Enabled:            enabled,
		CreatedBy:          createdBy,
	}

	if err := h.endpoints.Create(endpoint); err != nil {
		if err == repositories.ErrPathExists {
			errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "An endpoint with this path already exists", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create endpoint", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(endpoint)
}

func (h *EndpointHandler) List(w http.ResponseWriter, r *http.Request) {
	endpoints, err := h.endpoints.List()
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list endpoints", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(endpoints)
}

func (h *EndpointHandler) Get(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	endpoint, err := h.endpoints.GetByID(params.ByName("endpoint_id"))
	if err != nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Endpoint not found", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(endpoint)
}

func (h *EndpointHandler) Update(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	endpoint, err := h.endpoints.GetByID(params.ByName("endpoint_id"))
	if err != nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Endpoint not found", nil)
		return
	}

	req, fm, ok := h.decode(w, r)
	if !ok {
		return
	}

	endpoint.Name = req.Name
	endpoint.Path = req.Path
	endpoint.Mode = mapping.Mode(req.Mode)
	endpoint.Integration = req.Integration
	endpoint.FieldMapping = fm
	endpoint.SendGridListID = req.SendGridListID
	endpoint.SendGridTemplateID = req.SendGridTemplateID
	endpoint.EmailFrom = req.EmailFrom
	endpoint.EmailFromName = req.EmailFromName
	if req.Enabled != nil {
		endpoint.Enabled = *req.Enabled
	}

	if err := h.endpoints.Update(endpoint); err != nil {
		if err == repositories.ErrPathExists {
			errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "An endpoint with this path already exists", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to update endpoint", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(endpoint)
}

func (h *EndpointHandler) Delete(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	if err := h.endpoints.Delete(params.ByName("endpoint_id")); err != nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Endpoint not found", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RegenerateToken rotates the endpoint secret. The old token stops
// working the moment this returns.
func (h *EndpointHandler) RegenerateToken(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	token, err := h.endpoints.RegenerateToken(params.ByName("endpoint_id"))
	if err != nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Endpoint not found", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"secret_token": token})
}

// SamplePayload returns a synthetic payload matching the endpoint's
// current field mapping, for wiring up upstream senders.
func (h *EndpointHandler) SamplePayload(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	endpoint, err := h.endpoints.GetByID(params.ByName("endpoint_id"))
	if err != nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Endpoint not found", nil)
		return
	}

	sample := mapping.Synthesize(endpoint.FieldMapping, endpoint.Mode)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sample)
}
