package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/stockpilot/stockpilot/internal/auth"
	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/telephony"
)

type negotiationRequest struct {
	ItemName string `json:"item_name"`
}

func handleCreateNegotiation(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Negotiator == nil {
		writeNotConfigured(w, r, "telephony")
		return
	}
	if err := requireAnyRole(r, auth.RoleOperator); err != nil {
		writeForbidden(w, r, err)
		return
	}
	var request negotiationRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", "invalid negotiation request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.ItemName) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", "item_name is required", false, nil)
		return
	}

	call, err := deps.Negotiator.Initiate(r.Context(), request.ItemName)
	if err != nil {
		writeNegotiationError(deps, w, r, request.ItemName, err)
		return
	}
	writeJSON(w, http.StatusCreated, call)
}

func handleNegotiationTwiML(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Negotiator == nil {
		writeNotConfigured(w, r, "telephony")
		return
	}
	if err := requireAnyRole(r, auth.RoleOperator, auth.RoleVoiceAgent); err != nil {
		writeForbidden(w, r, err)
		return
	}
	item := strings.TrimSpace(r.URL.Query().Get("item"))
	if item == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", "item query parameter is required", false, nil)
		return
	}
	body, err := deps.Negotiator.TwiML(r.Context(), item)
	if err != nil {
		writeNegotiationError(deps, w, r, item, err)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleNegotiationStatus ingests Twilio's form-encoded status callback.
func handleNegotiationStatus(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Negotiator == nil {
		writeNotConfigured(w, r, "telephony")
		return
	}
	if err := requireAnyRole(r, auth.RoleOperator, auth.RoleVoiceAgent); err != nil {
		writeForbidden(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseForm(); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", "invalid status callback body", false, map[string]any{"details": err.Error()})
		return
	}
	update := telephony.StatusUpdate{
		CallSID:  r.PostForm.Get("CallSid"),
		Status:   r.PostForm.Get("CallStatus"),
		Duration: r.PostForm.Get("CallDuration"),
	}
	call, err := deps.Negotiator.RecordStatus(r.Context(), update)
	switch {
	case errors.Is(err, backend.ErrNotFound):
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "ignored", "call_sid": update.CallSID})
	case err != nil:
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", err.Error(), false, nil)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"status": "processed", "call": call})
	}
}

func writeNegotiationError(deps Dependencies, w http.ResponseWriter, r *http.Request, item string, err error) {
	var backendErr *backend.Error
	switch {
	case errors.Is(err, backend.ErrNotFound):
		writeError(r.Context(), w, http.StatusNotFound, "not_found", err.Error(), false, map[string]any{"item_name": item})
	case errors.As(err, &backendErr):
		writeAnswerError(deps, w, r, "", err)
	default:
		writeError(r.Context(), w, http.StatusBadGateway, "telephony_failed", "could not place the negotiation call", true, map[string]any{"item_name": item, "details": err.Error()})
	}
}
