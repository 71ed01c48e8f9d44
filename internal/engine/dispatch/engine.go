package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wilson1442/Webhook-Hub/internal/engine/mapping"
	"github.com/wilson1442/Webhook-Hub/internal/platform/config"
	"github.com/wilson1442/Webhook-Hub/internal/platform/integrations"
	"github.com/wilson1442/Webhook-Hub/internal/platform/models"
	"github.com/wilson1442/Webhook-Hub/internal/platform/repositories"
)

// retrySourceIP marks retried attempts in the log.
const retrySourceIP = "retry"

// ClientFactory builds a downstream client from a decrypted credential
// set. Swappable so tests can point at a fake server.
type ClientFactory func(*models.Integration) (integrations.Client, error)

// Engine runs one dispatch attempt end to end: authenticate, normalize,
// translate, invoke, log. Every failure after authentication becomes a
// failed log entry; authentication failures are never logged against an
// endpoint.
type Engine struct {
	endpoints    *repositories.EndpointRepository
	logs         *repositories.LogRepository
	integrations *repositories.IntegrationRepository
	newClient    ClientFactory
	cfg          config.DispatchConfig
}

func NewEngine(
	endpoints *repositories.EndpointRepository,
	logs *repositories.LogRepository,
	integrationRepo *repositories.IntegrationRepository,
	newClient ClientFactory,
	cfg config.DispatchConfig,
) *Engine {
	return &Engine{
		endpoints:    endpoints,
		logs:         logs,
		integrations: integrationRepo,
		newClient:    newClient,
		cfg:          cfg,
	}
}

// Result mirrors what gets written to the log.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	LogID   string `json:"log_id,omitempty"`
}

// HandleInbound processes a live webhook call.
func (e *Engine) HandleInbound(ctx context.Context, path, token string, payload json.RawMessage, sourceIP string) (*Result, error) {
	endpoint, err := e.endpoints.FindByPathAndToken(path, token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, authError("Invalid webhook path or token")
		}
		return nil, err
	}

	return e.dispatch(ctx, endpoint, payload, sourceIP, "")
}

// Retry re-runs a failed attempt with its stored payload against the
// endpoint's current configuration. Each retry produces its own log
// entry so every attempt stays independently auditable.
func (e *Engine) Retry(ctx context.Context, logID string) (*Result, error) {
	entry, err := e.logs.GetByID(logID)
	if err != nil {
		return nil, err
	}

	if entry.Status != models.StatusFailed {
		return nil, retryStateError(fmt.Sprintf("Only failed entries can be retried, entry is %q", entry.Status))
	}

	endpoint, err := e.endpoints.GetByID(entry.EndpointID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// The entry outlives its endpoint by design; only the
			// retry path needs the endpoint back.
			return nil, configError("Endpoint for this entry no longer exists")
		}
		return nil, err
	}

	return e.dispatch(ctx, endpoint, entry.Payload, retrySourceIP, "Retry of "+entry.ID+": ")
}

func (e *Engine) dispatch(ctx context.Context, endpoint *models.Endpoint, payload json.RawMessage, sourceIP, notePrefix string) (*Result, error) {
	var payloadObj map[string]interface{}
	if err := json.Unmarshal(payload, &payloadObj); err != nil {
		dispatchErr := translationError("Payload is not a JSON object")
		e.writeLog(endpoint, models.StatusFailed, sourceIP, payload, notePrefix+dispatchErr.LogMessage())
		return nil, dispatchErr
	}

	message, err := e.process(ctx, endpoint, payloadObj)
	if err != nil {
		dispatchErr := classify(err)
		logID := e.writeLog(endpoint, models.StatusFailed, sourceIP, payload, notePrefix+dispatchErr.LogMessage())

		log.Warn().
			Str("endpoint_id", endpoint.ID).
			Str("log_id", logID).
			Str("mode", string(endpoint.Mode)).
			Msg("webhook dispatch failed")
		return nil, dispatchErr
	}

	logID := e.writeLog(endpoint, models.StatusSuccess, sourceIP, payload, notePrefix+message)

	log.Info().
		Str("endpoint_id", endpoint.ID).
		Str("log_id", logID).
		Str("mode", string(endpoint.Mode)).
		Msg("webhook dispatched")

	return &Result{Status: models.StatusSuccess, Message: message, LogID: logID}, nil
}

// process runs the translate and invoke steps, returning the success
// confirmation message.
func (e *Engine) process(ctx context.Context, endpoint *models.Endpoint, payload map[string]interface{}) (string, error) {
	integration, err := e.integrations.GetByService(endpoint.Integration)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", configError(fmt.Sprintf("Integration %q is not configured", endpoint.Integration))
		}
		return "", err
	}
	if !integration.IsActive {
		return "", configError(fmt.Sprintf("Integration %q is disabled", endpoint.Integration))
	}

	client, err := e.newClient(integration)
	if err != nil {
		return "", configError(err.Error())
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	switch endpoint.Mode {
	case mapping.ModeAddContact:
		req, err := buildContact(endpoint, payload)
		if err != nil {
			return "", err
		}
		return client.AddContact(callCtx, req)

	case mapping.ModeSendEmail:
		defaultFrom := integrations.EmailAddress{
			Email: integration.Credentials["sender_email"],
			Name:  integration.Credentials["sender_name"],
		}
		req, err := buildMail(endpoint, payload, defaultFrom)
		if err != nil {
			return "", err
		}
		return client.SendEmail(callCtx, req)

	default:
		return "", configError(fmt.Sprintf("Unknown dispatch mode %q", endpoint.Mode))
	}
}

// classify converts downstream client failures into dispatch errors.
// Errors already classified pass through.
func classify(err error) *Error {
	var dispatchErr *Error
	if errors.As(err, &dispatchErr) {
		return dispatchErr
	}

	if errors.Is(err, integrations.ErrUnsupported) {
		return configError(err.Error())
	}

	var statusErr *integrations.StatusError
	if errors.As(err, &statusErr) {
		return downstreamError(
			fmt.Sprintf("Integration returned HTTP %d", statusErr.StatusCode),
			statusErr.Body)
	}

	// Transport failures and timeouts.
	return downstreamError("Integration call failed", err.Error())
}

func (e *Engine) writeLog(endpoint *models.Endpoint, status, sourceIP string, payload json.RawMessage, message string) string {
	entry := &models.LogEntry{
		EndpointID:      endpoint.ID,
		EndpointName:    endpoint.Name,
		Status:          status,
		SourceIP:        sourceIP,
		Payload:         payload,
		PayloadSummary:  truncate(string(payload), e.cfg.SummaryMaxLen),
		ResponseMessage: truncate(message, e.cfg.ResponseMaxLen),
	}

	if err := e.logs.Create(entry); err != nil {
		log.Error().Err(err).Str("endpoint_id", endpoint.ID).Msg("failed to persist dispatch log")
		return ""
	}
	return entry.ID
}

func truncate(s string, max int) string {
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}
