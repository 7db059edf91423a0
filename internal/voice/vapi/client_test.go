package vapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendFunctionResult(t *testing.T) {
	var got functionResult
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/call/call-1/control" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Fatalf("authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL + "/", APIKey: "secret"}, server.Client())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if err := client.SendFunctionResult(context.Background(), "call-1", "fn-9", "You have 3 items running low."); err != nil {
		t.Fatalf("SendFunctionResult() error = %v", err)
	}
	want := functionResult{Type: "function-call-result", CallID: "call-1", FunctionCallID: "fn-9", Result: "You have 3 items running low."}
	if got != want {
		t.Fatalf("body = %+v, want %+v", got, want)
	}
}

func TestSendFunctionResultReportsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "call not found", http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "secret"}, nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if err := client.SendFunctionResult(context.Background(), "missing", "fn", "x"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	if _, err := NewClient(Config{APIKey: "k"}, nil); err == nil {
		t.Fatal("expected base URL error")
	}
	if _, err := NewClient(Config{BaseURL: "https://api.vapi.ai"}, nil); err == nil {
		t.Fatal("expected api key error")
	}
}
