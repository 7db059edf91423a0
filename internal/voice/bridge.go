package voice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/stockpilot/stockpilot/internal/intent"
	"github.com/stockpilot/stockpilot/internal/observability"
	"github.com/stockpilot/stockpilot/internal/pipeline"
	"github.com/stockpilot/stockpilot/internal/reports"
)

const ErrorText = "Sorry, I encountered an error processing your query. Please try again."

type Answerer interface {
	Answer(ctx context.Context, text string, opts pipeline.Options) (pipeline.Answer, error)
}

type Classifier interface {
	Classify(ctx context.Context, text string) intent.Intent
}

type Summarizer interface {
	Summary(ctx context.Context) (reports.Summary, error)
}

// Sender hands synthesized text back to the voice platform for playback.
type Sender interface {
	SendFunctionResult(ctx context.Context, callID, functionCallID, text string) error
}

type Outcome struct {
	CallID    string         `json:"call_id"`
	State     State          `json:"state"`
	Response  string         `json:"response,omitempty"`
	Intent    *intent.Intent `json:"intent,omitempty"`
	Discarded bool           `json:"discarded,omitempty"`
}

type Config struct {
	Answerer   Answerer
	Classifier Classifier
	Sender     Sender
	// Summarizer is optional and enriches spoken answers to summary questions.
	Summarizer Summarizer
	Logger     *slog.Logger
}

// Bridge drives per-call session state machines from platform events. Events for
// different calls, and for the same call, may arrive concurrently.
type Bridge struct {
	cfg      Config
	logger   *slog.Logger
	mu       sync.Mutex
	sessions map[string]*session
}

func NewBridge(cfg Config) (*Bridge, error) {
	if cfg.Answerer == nil {
		return nil, fmt.Errorf("answerer is required")
	}
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bridge{cfg: cfg, logger: logger, sessions: map[string]*session{}}, nil
}

func (b *Bridge) Handle(ctx context.Context, event Event) (Outcome, error) {
	observability.IncrementVoiceEvent(string(event.Type))
	switch event.Type {
	case EventCallStart:
		return b.start(event.CallID)
	case EventCallEnd:
		return b.end(event.CallID)
	case EventTranscript, EventFunctionCall:
	default:
		return Outcome{}, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, event.Type)
	}

	if event.Type == EventTranscript && event.Role != "" && event.Role != "user" {
		return b.current(event.CallID)
	}
	text, dispatch := event.query()
	if event.Type == EventFunctionCall && !dispatch {
		return Outcome{}, fmt.Errorf("%w: function call without query parameter", ErrInvalidEvent)
	}
	if !dispatch {
		return b.advance(event.CallID, Transcribing)
	}

	s, err := b.lookup(event.CallID, QueryDispatched)
	if err != nil {
		return Outcome{}, err
	}
	functionCallID := ""
	if event.FunctionCall != nil {
		functionCallID = event.FunctionCall.ID
	}
	return b.dispatch(ctx, s, functionCallID, text)
}

// Sessions reports how many calls are currently tracked.
func (b *Bridge) Sessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

func (b *Bridge) start(callID string) (Outcome, error) {
	if callID == "" {
		callID = uuid.NewString()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.sessions[callID]; ok && existing.state != Ended {
		return Outcome{}, fmt.Errorf("%w: call %s already started", ErrInvalidTransition, callID)
	}
	s := &session{id: callID, state: Idle}
	for _, next := range []State{Initializing, Active, Listening} {
		if err := s.transition(next); err != nil {
			return Outcome{}, err
		}
	}
	b.sessions[callID] = s
	observability.SetVoiceSessionsActive(len(b.sessions))
	return Outcome{CallID: callID, State: s.state}, nil
}

func (b *Bridge) end(callID string) (Outcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[callID]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unknown call %q", ErrInvalidTransition, callID)
	}
	if err := s.transition(Ended); err != nil {
		return Outcome{}, err
	}
	if s.inflight == 0 {
		delete(b.sessions, callID)
	}
	observability.SetVoiceSessionsActive(len(b.sessions))
	return Outcome{CallID: callID, State: Ended}, nil
}

func (b *Bridge) current(callID string) (Outcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[callID]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unknown call %q", ErrInvalidTransition, callID)
	}
	return Outcome{CallID: callID, State: s.state}, nil
}

func (b *Bridge) advance(callID string, next State) (Outcome, error) {
	s, err := b.lookup(callID, next)
	if err != nil {
		return Outcome{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return Outcome{CallID: callID, State: s.state}, nil
}

// lookup moves the call's session to next and returns it.
func (b *Bridge) lookup(callID string, next State) (*session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[callID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown call %q", ErrInvalidTransition, callID)
	}
	from := s.state
	if err := s.transition(next); err != nil {
		return nil, fmt.Errorf("%w: %s -> %s", err, from, next)
	}
	if next == QueryDispatched {
		s.inflight++
	}
	return s, nil
}

// dispatch always runs to completion, even if the event's context is cancelled
// or the call ends meanwhile; in the latter case the response is dropped.
func (b *Bridge) dispatch(ctx context.Context, s *session, functionCallID, text string) (Outcome, error) {
	ctx = context.WithoutCancel(ctx)
	callID := s.id
	logger := observability.LoggerWithTrace(ctx, b.logger).With(slog.String("call_id", callID))

	classified := b.cfg.Classifier.Classify(ctx, text)
	answer, err := b.cfg.Answerer.Answer(ctx, text, pipeline.Options{})
	var response string
	if err != nil {
		logger.ErrorContext(ctx, "voice query failed", slog.String("query", text), slog.Any("error", err))
		response = ErrorText
	} else {
		var summary *reports.Summary
		if classified.Kind == intent.Summary && b.cfg.Summarizer != nil {
			if computed, summaryErr := b.cfg.Summarizer.Summary(ctx); summaryErr == nil {
				summary = &computed
			} else {
				logger.WarnContext(ctx, "voice summary failed", slog.Any("error", summaryErr))
			}
		}
		response = Speak(classified, answer, summary)
	}

	outcome := Outcome{CallID: callID, Response: response, Intent: &classified}
	b.mu.Lock()
	s.inflight--
	if s.state == Ended {
		if s.inflight == 0 && b.sessions[callID] == s {
			delete(b.sessions, callID)
			observability.SetVoiceSessionsActive(len(b.sessions))
		}
		b.mu.Unlock()
		logger.InfoContext(ctx, "call ended before response was ready, discarding")
		outcome.State = Ended
		outcome.Discarded = true
		return outcome, nil
	}
	_ = s.transition(ResponseSynthesized)
	b.mu.Unlock()

	var sendErr error
	if functionCallID != "" && b.cfg.Sender != nil {
		if sendErr = b.cfg.Sender.SendFunctionResult(ctx, callID, functionCallID, response); sendErr != nil {
			logger.ErrorContext(ctx, "send function result failed", slog.Any("error", sendErr))
			sendErr = fmt.Errorf("send function result: %w", sendErr)
		}
	}

	b.mu.Lock()
	if s.state == ResponseSynthesized {
		_ = s.transition(Listening)
	}
	outcome.State = s.state
	b.mu.Unlock()
	return outcome, sendErr
}
