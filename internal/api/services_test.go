package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/chart"
	"github.com/stockpilot/stockpilot/internal/inventory"
	"github.com/stockpilot/stockpilot/internal/snapshot"
	"github.com/stockpilot/stockpilot/internal/telephony"
	"github.com/stockpilot/stockpilot/internal/voice"
)

type fakeVoice struct {
	events  []voice.Event
	outcome voice.Outcome
	err     error
}

func (f *fakeVoice) Handle(_ context.Context, event voice.Event) (voice.Outcome, error) {
	f.events = append(f.events, event)
	return f.outcome, f.err
}

type fakeNegotiator struct {
	initiated []string
	updates   []telephony.StatusUpdate
	err       error
	statusErr error
}

func (f *fakeNegotiator) Initiate(_ context.Context, item string) (telephony.Call, error) {
	f.initiated = append(f.initiated, item)
	if f.err != nil {
		return telephony.Call{}, f.err
	}
	return telephony.Call{SID: "CA1", Status: "queued", Item: item}, nil
}

func (f *fakeNegotiator) TwiML(_ context.Context, item string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("<Response><Say>" + item + "</Say></Response>"), nil
}

func (f *fakeNegotiator) RecordStatus(_ context.Context, update telephony.StatusUpdate) (telephony.Call, error) {
	f.updates = append(f.updates, update)
	if f.statusErr != nil {
		return telephony.Call{}, f.statusErr
	}
	return telephony.Call{SID: update.CallSID, Status: update.Status}, nil
}

type fakeCharts struct {
	rows int
}

func (f *fakeCharts) Synthesize(_ context.Context, question string, rows []inventory.Row) chart.Charts {
	f.rows = len(rows)
	return chart.Charts{Insight: question, Series: []chart.Series{}}
}

type fakeExporter struct {
	err error
}

func (f fakeExporter) Export(context.Context) (snapshot.Info, error) {
	if f.err != nil {
		return snapshot.Info{}, f.err
	}
	return snapshot.Info{ID: "snap-1", Key: "Inventory/snap-1.parquet", RecordCount: 3}, nil
}

func TestVoiceEventAcceptsWrappedMessage(t *testing.T) {
	handler := &fakeVoice{outcome: voice.Outcome{CallID: "c1", State: voice.Listening, Response: "You have 2 items running low."}}
	h := NewHandler(loadConfig(t, nil), Dependencies{Voice: handler})

	payload := `{"message":{"type":"function-call","callId":"c1","functionCall":{"id":"fn","name":"queryDatabase","parameters":{"query":"what is low"}}}}`
	rr, body := do(t, h, http.MethodPost, "/v1/voice/events", payload, nil)
	if rr.Code != http.StatusOK || body["result"] != "You have 2 items running low." || body["state"] != "listening" {
		t.Fatalf("status = %d body = %v", rr.Code, body)
	}
	if len(handler.events) != 1 || handler.events[0].FunctionCall == nil || handler.events[0].FunctionCall.Parameters["query"] != "what is low" {
		t.Fatalf("events = %#v", handler.events)
	}

	rr, _ = do(t, h, http.MethodPost, "/v1/voice/events", `{"type":"call-start","callId":"c2"}`, nil)
	if rr.Code != http.StatusOK || handler.events[1].Type != voice.EventCallStart || handler.events[1].CallID != "c2" {
		t.Fatalf("bare event status = %d events = %#v", rr.Code, handler.events)
	}
}

func TestVoiceEventErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{voice.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
		{voice.ErrInvalidEvent, http.StatusBadRequest, "invalid_request"},
		{errors.New("send function result: 500"), http.StatusBadGateway, "voice_send_failed"},
	}
	for _, tc := range tests {
		h := NewHandler(loadConfig(t, nil), Dependencies{Voice: &fakeVoice{err: tc.err}})
		rr, body := do(t, h, http.MethodPost, "/v1/voice/events", `{"type":"call-end","callId":"x"}`, nil)
		if rr.Code != tc.status || body["error_code"] != tc.code {
			t.Fatalf("%v: status = %d body = %v", tc.err, rr.Code, body)
		}
	}
}

func TestNegotiationEndpoints(t *testing.T) {
	negotiator := &fakeNegotiator{}
	h := NewHandler(loadConfig(t, nil), Dependencies{Negotiator: negotiator})

	rr, body := do(t, h, http.MethodPost, "/v1/negotiations", `{"item_name":"milk"}`, nil)
	if rr.Code != http.StatusCreated || body["call_sid"] != "CA1" {
		t.Fatalf("create status = %d body = %v", rr.Code, body)
	}

	rr, _ = do(t, h, http.MethodGet, "/v1/negotiations/twiml?item=milk", "", nil)
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/xml") || !strings.Contains(rr.Body.String(), "<Say>milk</Say>") {
		t.Fatalf("twiml status = %d body = %s", rr.Code, rr.Body.String())
	}

	form := url.Values{"CallSid": {"CA1"}, "CallStatus": {"completed"}, "CallDuration": {"31"}}
	req := httptest.NewRequest(http.MethodPost, "/v1/negotiations/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	status := httptest.NewRecorder()
	h.ServeHTTP(status, req)
	if status.Code != http.StatusOK {
		t.Fatalf("status callback = %d body = %s", status.Code, status.Body.String())
	}
	if len(negotiator.updates) != 1 || negotiator.updates[0] != (telephony.StatusUpdate{CallSID: "CA1", Status: "completed", Duration: "31"}) {
		t.Fatalf("updates = %#v", negotiator.updates)
	}
}

func TestNegotiationErrors(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{Negotiator: &fakeNegotiator{err: backend.ErrNotFound}})
	if rr, body := do(t, h, http.MethodPost, "/v1/negotiations", `{"item_name":"unobtainium"}`, nil); rr.Code != http.StatusNotFound || body["error_code"] != "not_found" {
		t.Fatalf("status = %d body = %v", rr.Code, body)
	}
	if rr, _ := do(t, h, http.MethodPost, "/v1/negotiations", `{}`, nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("missing item status = %d", rr.Code)
	}

	h = NewHandler(loadConfig(t, nil), Dependencies{Negotiator: &fakeNegotiator{err: errors.New("twilio 401")}})
	if rr, body := do(t, h, http.MethodPost, "/v1/negotiations", `{"item_name":"milk"}`, nil); rr.Code != http.StatusBadGateway || body["error_code"] != "telephony_failed" {
		t.Fatalf("status = %d body = %v", rr.Code, body)
	}
}

func TestNegotiationWebhookAuthReplacesAPIKeys(t *testing.T) {
	negotiator := &fakeNegotiator{}
	h := NewHandler(loadConfig(t, map[string]string{"STOCKPILOT_AUTH_REQUIRED": "true"}), Dependencies{
		AuthMiddleware: func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusUnauthorized) })
		},
		TelephonyWebhookAuth: func(next http.Handler) http.Handler { return next },
		Negotiator:           negotiator,
	})
	if rr, _ := do(t, h, http.MethodGet, "/v1/negotiations/twiml?item=milk", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("twiml status = %d", rr.Code)
	}
	if rr, _ := do(t, h, http.MethodPost, "/v1/negotiations", `{"item_name":"milk"}`, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("create status = %d", rr.Code)
	}
}

func TestChartsEndpointUsesFullTable(t *testing.T) {
	charts := &fakeCharts{}
	h := NewHandler(loadConfig(t, nil), Dependencies{Charts: charts, Store: fixtureStore()})
	rr, body := do(t, h, http.MethodPost, "/v1/charts", `{"question":"break down by category"}`, nil)
	if rr.Code != http.StatusOK || body["insight"] != "break down by category" {
		t.Fatalf("status = %d body = %v", rr.Code, body)
	}
	if charts.rows != 3 {
		t.Fatalf("rows passed = %d, want 3", charts.rows)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{Snapshots: fakeExporter{}})
	rr, body := do(t, h, http.MethodPost, "/v1/snapshots", "", nil)
	if rr.Code != http.StatusCreated || body["snapshot_id"] != "snap-1" {
		t.Fatalf("status = %d body = %v", rr.Code, body)
	}

	h = NewHandler(loadConfig(t, nil), Dependencies{Snapshots: fakeExporter{err: &backend.Error{Op: "select", Err: errors.New("down")}}})
	if rr, body := do(t, h, http.MethodPost, "/v1/snapshots", "", nil); rr.Code != http.StatusBadGateway || body["error_code"] != "backend_failed" {
		t.Fatalf("status = %d body = %v", rr.Code, body)
	}
}
