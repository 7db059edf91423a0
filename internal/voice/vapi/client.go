package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client posts function-call results to the live call's control endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

type functionResult struct {
	Type           string `json:"type"`
	CallID         string `json:"callId"`
	FunctionCallID string `json:"functionCallId"`
	Result         string `json:"result"`
}

func NewClient(cfg Config, client *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		http:    client,
	}, nil
}

func (c *Client) SendFunctionResult(ctx context.Context, callID, functionCallID, text string) error {
	body, err := json.Marshal(functionResult{
		Type:           "function-call-result",
		CallID:         callID,
		FunctionCallID: functionCallID,
		Result:         text,
	})
	if err != nil {
		return fmt.Errorf("marshal function result: %w", err)
	}

	endpoint := c.baseURL + "/call/" + url.PathEscape(callID) + "/control"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build function result request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send function result: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("function result rejected status=%d body=%s", resp.StatusCode, string(raw))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
