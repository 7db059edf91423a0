package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/stockpilot/stockpilot/internal/auth"
	"github.com/stockpilot/stockpilot/internal/voice"
)

type voiceResponse struct {
	voice.Outcome
	// Result carries the spoken answer back to the platform's function call.
	Result string `json:"result,omitempty"`
}

// handleVoiceEvent accepts a bare event or one wrapped in {"message": {...}}.
func handleVoiceEvent(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Voice == nil {
		writeNotConfigured(w, r, "voice")
		return
	}
	if err := requireAnyRole(r, auth.RoleVoiceAgent, auth.RoleOperator); err != nil {
		writeForbidden(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", "invalid voice event body", false, map[string]any{"details": err.Error()})
		return
	}
	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(bytes.TrimSpace(envelope.Message)) > 0 && envelope.Message[0] == '{' {
		body = envelope.Message
	}
	var event voice.Event
	if err := json.Unmarshal(body, &event); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", "invalid voice event body", false, map[string]any{"details": err.Error()})
		return
	}

	outcome, err := deps.Voice.Handle(r.Context(), event)
	switch {
	case errors.Is(err, voice.ErrInvalidEvent):
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", err.Error(), false, map[string]any{"call_id": event.CallID})
	case errors.Is(err, voice.ErrInvalidTransition):
		writeError(r.Context(), w, http.StatusConflict, "invalid_transition", err.Error(), false, map[string]any{"call_id": event.CallID})
	case err != nil:
		writeError(r.Context(), w, http.StatusBadGateway, "voice_send_failed", err.Error(), true, map[string]any{"call_id": outcome.CallID, "result": outcome.Response})
	default:
		writeJSON(w, http.StatusOK, voiceResponse{Outcome: outcome, Result: outcome.Response})
	}
}
