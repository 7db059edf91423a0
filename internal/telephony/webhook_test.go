package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
)

func sign(token, data string) string {
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestSignatureMiddleware(t *testing.T) {
	mw := SignatureMiddleware("secret", "https://stock.example.com/")
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	target := "/v1/negotiations/twiml?item=milk"
	signed := httptest.NewRequest(http.MethodGet, target, nil)
	signed.Header.Set("X-Twilio-Signature", sign("secret", "https://stock.example.com"+target))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, signed)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("signed status = %d", rr.Code)
	}

	for _, signature := range []string{"", sign("other", "https://stock.example.com"+target)} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if signature != "" {
			req.Header.Set("X-Twilio-Signature", signature)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rr.Code)
		}
	}
}
