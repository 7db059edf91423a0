package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stockpilot/stockpilot/internal/auth"
	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/chart"
	"github.com/stockpilot/stockpilot/internal/config"
	"github.com/stockpilot/stockpilot/internal/inventory"
	"github.com/stockpilot/stockpilot/internal/nl2sql"
	"github.com/stockpilot/stockpilot/internal/observability"
	"github.com/stockpilot/stockpilot/internal/pipeline"
	"github.com/stockpilot/stockpilot/internal/reports"
	"github.com/stockpilot/stockpilot/internal/snapshot"
	"github.com/stockpilot/stockpilot/internal/telephony"
	"github.com/stockpilot/stockpilot/internal/voice"
)

const maxRequestBytes = 1 << 20

type ReadinessCheck func(ctx context.Context) error

type Answerer interface {
	Answer(ctx context.Context, text string, opts pipeline.Options) (pipeline.Answer, error)
}

type QueryTranslator interface {
	Translate(ctx context.Context, req nl2sql.Request) (nl2sql.Result, error)
}

type Reports interface {
	LowStock(ctx context.Context, limit int) ([]inventory.Row, error)
	OutOfStock(ctx context.Context, limit int) ([]inventory.Row, error)
	TopSelling(ctx context.Context, limit int) ([]inventory.Row, error)
	MostExpensive(ctx context.Context, limit int) ([]inventory.Row, error)
	Expired(ctx context.Context, limit int) ([]inventory.Row, error)
	ByCategory(ctx context.Context, category string, limit int) ([]inventory.Row, error)
	Suppliers(ctx context.Context) ([]reports.Supplier, error)
	Summary(ctx context.Context) (reports.Summary, error)
}

type ChartSynthesizer interface {
	Synthesize(ctx context.Context, question string, rows []inventory.Row) chart.Charts
}

type VoiceHandler interface {
	Handle(ctx context.Context, event voice.Event) (voice.Outcome, error)
}

type Negotiator interface {
	Initiate(ctx context.Context, itemName string) (telephony.Call, error)
	TwiML(ctx context.Context, itemName string) ([]byte, error)
	RecordStatus(ctx context.Context, update telephony.StatusUpdate) (telephony.Call, error)
}

type SnapshotExporter interface {
	Export(ctx context.Context) (snapshot.Info, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration

	Answerer   Answerer
	Translator QueryTranslator
	Store      backend.Store
	Reports    Reports
	Charts     ChartSynthesizer
	Voice      VoiceHandler
	Negotiator Negotiator
	// TelephonyWebhookAuth, when set, replaces API key auth on the routes
	// Twilio calls back into.
	TelephonyWebhookAuth func(http.Handler) http.Handler
	Snapshots            SnapshotExporter
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "not_ready", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	routes := map[string]http.HandlerFunc{
		"POST /v1/answer":             func(w http.ResponseWriter, r *http.Request) { handleAnswer(deps, w, r) },
		"POST /v1/query/translate":    func(w http.ResponseWriter, r *http.Request) { handleTranslate(deps, w, r) },
		"POST /v1/charts":             func(w http.ResponseWriter, r *http.Request) { handleCharts(deps, w, r) },
		"GET /v1/schema":              handleSchema,
		"GET /v1/inventory":           func(w http.ResponseWriter, r *http.Request) { handleListInventory(deps, w, r) },
		"GET /v1/inventory/summary":   func(w http.ResponseWriter, r *http.Request) { handleSummary(deps, w, r) },
		"GET /v1/inventory/{report}":  func(w http.ResponseWriter, r *http.Request) { handleReport(deps, w, r) },
		"GET /v1/suggestions":         func(w http.ResponseWriter, r *http.Request) { handleSuggestions(deps, w, r) },
		"POST /v1/voice/events":       func(w http.ResponseWriter, r *http.Request) { handleVoiceEvent(deps, w, r) },
		"POST /v1/negotiations":       func(w http.ResponseWriter, r *http.Request) { handleCreateNegotiation(deps, w, r) },
		"POST /v1/snapshots":          func(w http.ResponseWriter, r *http.Request) { handleCreateSnapshot(deps, w, r) },
		"GET /v1/negotiations/twiml":  func(w http.ResponseWriter, r *http.Request) { handleNegotiationTwiML(deps, w, r) },
		"POST /v1/negotiations/twiml": func(w http.ResponseWriter, r *http.Request) { handleNegotiationTwiML(deps, w, r) },
		"POST /v1/negotiations/status": func(w http.ResponseWriter, r *http.Request) {
			handleNegotiationStatus(deps, w, r)
		},
	}
	webhooks := map[string]bool{
		"GET /v1/negotiations/twiml":   true,
		"POST /v1/negotiations/twiml":  true,
		"POST /v1/negotiations/status": true,
	}

	protect := protector(cfg, deps)
	for pattern, handler := range routes {
		var wrapped http.Handler = handler
		if webhooks[pattern] && deps.TelephonyWebhookAuth != nil {
			wrapped = deps.TelephonyWebhookAuth(wrapped)
		} else {
			wrapped = protect(wrapped)
		}
		mux.Handle(pattern, wrapped)
	}

	routeOf := func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return pattern
	}
	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware(routeOf),
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger, routeOf))
	}
	return chain(mux, middlewares...)
}

func protector(cfg config.Config, deps Dependencies) func(http.Handler) http.Handler {
	if !cfg.Auth.Required {
		return func(next http.Handler) http.Handler { return next }
	}
	if deps.AuthMiddleware == nil {
		if deps.Logger != nil {
			deps.Logger.Error("auth required but auth middleware missing")
		}
		return func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "auth_middleware_missing", "auth middleware is required by configuration", false, nil)
			})
		}
	}
	return deps.AuthMiddleware
}

// CheckStore reports the backend ready once it answers a count.
func CheckStore(store backend.Store) ReadinessCheck {
	return func(ctx context.Context) error {
		if store == nil {
			return errors.New("inventory backend is not configured")
		}
		if _, err := store.Count(ctx, nil); err != nil {
			return fmt.Errorf("inventory backend: %w", err)
		}
		return nil
	}
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func requireAnyRole(r *http.Request, roles ...string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasAnyRole(roles...) {
		return nil
	}
	return fmt.Errorf("missing required role, expected one of %q", roles)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}

func writeForbidden(w http.ResponseWriter, r *http.Request, err error) {
	writeError(r.Context(), w, http.StatusForbidden, "forbidden", err.Error(), false, nil)
}

func writeNotConfigured(w http.ResponseWriter, r *http.Request, feature string) {
	writeError(r.Context(), w, http.StatusNotImplemented, "not_configured", feature+" is not configured", false, nil)
}
