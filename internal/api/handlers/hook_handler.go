package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "github.com/wilson1442/Webhook-Hub/internal/api/context"
	"github.com/wilson1442/Webhook-Hub/internal/engine/dispatch"
	"github.com/wilson1442/Webhook-Hub/internal/pkg/errors"
	"github.com/wilson1442/Webhook-Hub/internal/pkg/realip"
	"github.com/wilson1442/Webhook-Hub/internal/platform/repositories"
)

// TokenHeader carries the endpoint's secret on inbound webhook calls.
const TokenHeader = "X-Webhook-Token"

const maxPayloadBytes = 1 << 20 // 1 MiB

type HookHandler struct {
	engine *dispatch.Engine
}

func NewHookHandler(engine *dispatch.Engine) *HookHandler {
	return &HookHandler{engine: engine}
}

func (h *HookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	path := params.ByName("path")
	token := r.Header.Get(TokenHeader)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Request body too large or unreadable", nil)
		return
	}

	if !json.Valid(body) {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid JSON payload", nil)
		return
	}

	result, err := h.engine.HandleInbound(r.Context(), path, token, body, realip.FromRequest(r))
	if err != nil {
		writeDispatchError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// writeDispatchError maps the dispatch error taxonomy onto HTTP status
// codes. Authentication failures stay deliberately vague; downstream
// detail never leaves the dispatch log.
func writeDispatchError(w http.ResponseWriter, err error) {
	if kind, ok := dispatch.KindOf(err); ok {
		switch kind {
		case dispatch.KindAuthentication:
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, err.Error(), nil)
		case dispatch.KindTranslation:
			errors.WriteError(w, http.StatusUnprocessableEntity, errors.ErrCodeTranslationFailed, err.Error(), nil)
		case dispatch.KindConfiguration:
			errors.WriteError(w, http.StatusUnprocessableEntity, errors.ErrCodeNotConfigured, err.Error(), nil)
		case dispatch.KindDownstream:
			errors.WriteError(w, http.StatusBadGateway, errors.ErrCodeUpstreamFailed, err.Error(), nil)
		case dispatch.KindRetryState:
			errors.WriteError(w, http.StatusConflict, errors.ErrCodeInvalidState, err.Error(), nil)
		default:
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Dispatch failed", nil)
		}
		return
	}

	if err == repositories.ErrNotFound {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Log entry not found", nil)
		return
	}

	errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Dispatch failed", nil)
}
