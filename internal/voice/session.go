package voice

import "errors"

type State string

const (
	Idle                State = "idle"
	Initializing        State = "initializing"
	Active              State = "active"
	Listening           State = "listening"
	Transcribing        State = "transcribing"
	QueryDispatched     State = "query_dispatched"
	ResponseSynthesized State = "response_synthesized"
	Ended               State = "ended"
)

var (
	ErrInvalidTransition = errors.New("invalid voice session transition")
	ErrInvalidEvent      = errors.New("invalid voice event")
)

type EventType string

const (
	EventCallStart    EventType = "call-start"
	EventTranscript   EventType = "transcript"
	EventFunctionCall EventType = "function-call"
	EventCallEnd      EventType = "call-end"
)

const (
	TranscriptPartial = "partial"
	TranscriptFinal   = "final"
)

type FunctionCall struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// Event is one lifecycle message delivered by the voice platform.
type Event struct {
	Type           EventType     `json:"type"`
	CallID         string        `json:"callId"`
	Role           string        `json:"role,omitempty"`
	TranscriptType string        `json:"transcriptType,omitempty"`
	Transcript     string        `json:"transcript,omitempty"`
	FunctionCall   *FunctionCall `json:"functionCall,omitempty"`
}

// query returns the user text the event asks to dispatch, if any.
func (e Event) query() (string, bool) {
	switch e.Type {
	case EventTranscript:
		if e.TranscriptType == TranscriptFinal && e.Transcript != "" {
			return e.Transcript, true
		}
	case EventFunctionCall:
		if e.FunctionCall == nil {
			return "", false
		}
		if text, ok := e.FunctionCall.Parameters["query"].(string); ok && text != "" {
			return text, true
		}
	}
	return "", false
}

type session struct {
	id       string
	state    State
	inflight int
}

// transition moves the session to next if allowed from its current state.
func (s *session) transition(next State) error {
	allowed := false
	switch next {
	case Initializing:
		allowed = s.state == Idle
	case Active:
		allowed = s.state == Initializing
	case Listening:
		allowed = s.state == Active || s.state == ResponseSynthesized
	case Transcribing:
		allowed = s.state == Listening || s.state == Transcribing
	case QueryDispatched:
		allowed = s.state == Listening || s.state == Transcribing
	case ResponseSynthesized:
		allowed = s.state == QueryDispatched
	case Ended:
		allowed = s.state != Ended
	}
	if !allowed {
		return ErrInvalidTransition
	}
	s.state = next
	return nil
}
