package stockpilotctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

type request struct {
	method string
	path   string
	body   any
}

// Run executes one stockpilotctl command and returns the process exit code.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("stockpilotctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "StockPilot API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 60*time.Second), "HTTP timeout (e.g. 30s)")
	charts := fs.Bool("charts", false, "ask: also synthesize charts")
	limit := fs.Int("limit", 0, "low-stock: maximum number of items")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	command := strings.TrimSpace(fs.Arg(0))
	text := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
	req, err := buildRequest(command, text, *charts, *limit)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n\n", err)
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}
	code, responseBody, err := doRequest(ctx, client, strings.TrimRight(*baseURL, "/"), req, *apiKey)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}
	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func buildRequest(command, text string, charts bool, limit int) (request, error) {
	needsText := func() error {
		if text == "" {
			return fmt.Errorf("%s requires an argument", command)
		}
		return nil
	}
	switch command {
	case "health":
		return request{method: http.MethodGet, path: "/v1/health"}, nil
	case "ready":
		return request{method: http.MethodGet, path: "/v1/ready"}, nil
	case "schema":
		return request{method: http.MethodGet, path: "/v1/schema"}, nil
	case "summary":
		return request{method: http.MethodGet, path: "/v1/inventory/summary"}, nil
	case "suggestions":
		return request{method: http.MethodGet, path: "/v1/suggestions"}, nil
	case "low-stock":
		path := "/v1/inventory/low-stock"
		if limit > 0 {
			path += "?limit=" + strconv.Itoa(limit)
		}
		return request{method: http.MethodGet, path: path}, nil
	case "snapshot":
		return request{method: http.MethodPost, path: "/v1/snapshots"}, nil
	case "ask":
		if err := needsText(); err != nil {
			return request{}, err
		}
		return request{method: http.MethodPost, path: "/v1/answer", body: map[string]any{"question": text, "charts": charts}}, nil
	case "translate":
		if err := needsText(); err != nil {
			return request{}, err
		}
		return request{method: http.MethodPost, path: "/v1/query/translate", body: map[string]any{"question": text}}, nil
	case "negotiate":
		if err := needsText(); err != nil {
			return request{}, err
		}
		return request{method: http.MethodPost, path: "/v1/negotiations", body: map[string]any{"item_name": text}}, nil
	case "twiml":
		if err := needsText(); err != nil {
			return request{}, err
		}
		return request{method: http.MethodGet, path: "/v1/negotiations/twiml?item=" + url.QueryEscape(text)}, nil
	default:
		return request{}, fmt.Errorf("unknown command %q", command)
	}
}

func doRequest(ctx context.Context, client *http.Client, baseURL string, r request, apiKey string) (int, []byte, error) {
	var body io.Reader
	if r.body != nil {
		encoded, err := json.Marshal(r.body)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, baseURL+r.path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: stockpilotctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                 GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  ask <question>        POST /v1/answer (-charts to add charts)")
	_, _ = fmt.Fprintln(w, "  translate <question>  POST /v1/query/translate")
	_, _ = fmt.Fprintln(w, "  schema                GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  summary               GET /v1/inventory/summary")
	_, _ = fmt.Fprintln(w, "  suggestions           GET /v1/suggestions")
	_, _ = fmt.Fprintln(w, "  low-stock             GET /v1/inventory/low-stock (-limit N)")
	_, _ = fmt.Fprintln(w, "  snapshot              POST /v1/snapshots")
	_, _ = fmt.Fprintln(w, "  negotiate <item>      POST /v1/negotiations")
	_, _ = fmt.Fprintln(w, "  twiml <item>          GET /v1/negotiations/twiml")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
