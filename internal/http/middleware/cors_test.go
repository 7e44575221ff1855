package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func runCORS(allowed []string, method, origin string, preflight bool) (*httptest.ResponseRecorder, bool) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(method, "/api/requests", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	rec := httptest.NewRecorder()
	CORS(allowed)(handler).ServeHTTP(rec, req)
	return rec, called
}

func TestCORSEchoesListedOrigin(t *testing.T) {
	rec, called := runCORS([]string{"https://app.easygopharm.com/"}, http.MethodPost, "https://app.easygopharm.com", false)

	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected the request to reach the handler, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.easygopharm.com" {
		t.Fatalf("expected allow origin header, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials to be allowed for the session cookie, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); got != RequestIDHeader {
		t.Fatalf("expected request id to be exposed, got %q", got)
	}
}

func TestCORSUnknownOrigin(t *testing.T) {
	allowed := []string{"https://app.easygopharm.com"}

	rec, called := runCORS(allowed, http.MethodGet, "https://unknown.example", false)
	if !called {
		t.Fatalf("expected simple requests to pass through")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow origin header, got %q", got)
	}

	rec, called = runCORS(allowed, http.MethodOptions, "https://unknown.example", true)
	if called || rec.Code != http.StatusForbidden {
		t.Fatalf("expected preflight from unknown origin to be refused, got %d (called=%v)", rec.Code, called)
	}
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	rec, _ := runCORS([]string{"*"}, http.MethodGet, "https://partner.example", false)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://partner.example" {
		t.Fatalf("expected the origin to be echoed, got %q", got)
	}
}

func TestCORSHandlesPreflight(t *testing.T) {
	rec, called := runCORS([]string{"https://app.easygopharm.com"}, http.MethodOptions, "https://app.easygopharm.com", true)

	if called {
		t.Fatalf("expected preflight to short-circuit")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" || rec.Header().Get("Access-Control-Allow-Headers") == "" {
		t.Fatalf("expected preflight to advertise methods and headers")
	}
	if rec.Header().Get("Access-Control-Max-Age") != "600" {
		t.Fatalf("expected preflight max age")
	}
}

func TestCORSWithoutOriginPassesThrough(t *testing.T) {
	rec, called := runCORS([]string{"https://app.easygopharm.com"}, http.MethodGet, "", false)
	if !called || rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("expected same-origin request untouched")
	}
}
