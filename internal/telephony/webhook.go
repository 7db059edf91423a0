package telephony

import (
	"encoding/json"
	"net/http"
	"strings"

	twilioclient "github.com/twilio/twilio-go/client"

	"github.com/stockpilot/stockpilot/internal/observability"
)

const signatureHeader = "X-Twilio-Signature"

// SignatureMiddleware rejects callbacks that were not signed by Twilio with
// authToken. publicBaseURL must be the origin Twilio was told to call.
func SignatureMiddleware(authToken, publicBaseURL string) func(http.Handler) http.Handler {
	validator := twilioclient.NewRequestValidator(authToken)
	base := strings.TrimRight(publicBaseURL, "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			params := map[string]string{}
			if r.Method == http.MethodPost {
				if err := r.ParseForm(); err != nil {
					rejectCallback(w, r, "invalid callback body")
					return
				}
				for key, values := range r.PostForm {
					if len(values) > 0 {
						params[key] = values[0]
					}
				}
			}
			signature := r.Header.Get(signatureHeader)
			if signature == "" || !validator.Validate(base+r.URL.RequestURI(), params, signature) {
				rejectCallback(w, r, "invalid twilio signature")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectCallback(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error_code": "invalid_signature",
		"message":    message,
		"retryable":  false,
		"context":    nil,
		"trace_id":   observability.TraceIDFromContext(r.Context()),
	})
}
