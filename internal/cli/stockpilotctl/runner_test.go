package stockpilotctl

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type captured struct {
	method, path, query, apiKey string
	body                        map[string]any
}

func server(t *testing.T, status int, response string, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.apiKey = r.Header.Get("X-API-Key")
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunAskCommand(t *testing.T) {
	var got captured
	srv := server(t, http.StatusOK, `{"prose":"Milk is low."}`, &got)

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{
		"-base-url", srv.URL,
		"-api-key", "k1",
		"-charts",
		"ask", "what", "is", "running", "low",
	}, Options{Stdout: &stdout, Stderr: &stderr, Timeout: 2 * time.Second})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	if got.method != http.MethodPost || got.path != "/v1/answer" || got.apiKey != "k1" {
		t.Fatalf("request = %+v", got)
	}
	if got.body["question"] != "what is running low" || got.body["charts"] != true {
		t.Fatalf("body = %v", got.body)
	}
	if !strings.Contains(stdout.String(), `"prose": "Milk is low."`) {
		t.Fatalf("stdout = %s", stdout.String())
	}
}

func TestRunSimpleCommands(t *testing.T) {
	tests := []struct {
		args   []string
		method string
		path   string
		query  string
	}{
		{[]string{"health"}, http.MethodGet, "/v1/health", ""},
		{[]string{"summary"}, http.MethodGet, "/v1/inventory/summary", ""},
		{[]string{"-limit", "3", "low-stock"}, http.MethodGet, "/v1/inventory/low-stock", "limit=3"},
		{[]string{"snapshot"}, http.MethodPost, "/v1/snapshots", ""},
		{[]string{"negotiate", "organic", "milk"}, http.MethodPost, "/v1/negotiations", ""},
		{[]string{"twiml", "organic milk"}, http.MethodGet, "/v1/negotiations/twiml", "item=organic+milk"},
	}
	for _, tc := range tests {
		var got captured
		srv := server(t, http.StatusOK, `{}`, &got)
		code := Run(context.Background(), append([]string{"-base-url", srv.URL}, tc.args...), Options{})
		if code != 0 {
			t.Fatalf("%v: exit code = %d", tc.args, code)
		}
		if got.method != tc.method || got.path != tc.path || got.query != tc.query {
			t.Fatalf("%v: request = %+v", tc.args, got)
		}
	}
}

func TestRunReturnsErrorForHTTPFailure(t *testing.T) {
	var got captured
	srv := server(t, http.StatusBadGateway, `{"error_code":"translation_failed"}`, &got)
	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"-base-url", srv.URL, "translate", "how many"}, Options{Stderr: &stderr})
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "http 502") {
		t.Fatalf("stderr = %s", stderr.String())
	}
}

func TestRunUsageErrors(t *testing.T) {
	for _, args := range [][]string{{}, {"bogus"}, {"ask"}} {
		var stderr bytes.Buffer
		if code := Run(context.Background(), args, Options{Stderr: &stderr}); code != 2 {
			t.Fatalf("%v: exit code = %d", args, code)
		}
		if !strings.Contains(stderr.String(), "usage: stockpilotctl") {
			t.Fatalf("%v: stderr = %s", args, stderr.String())
		}
	}
}
