package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wolfman30/easygopharm/internal/http/handlers"
	"github.com/wolfman30/easygopharm/internal/lifecycle"
	"github.com/wolfman30/easygopharm/internal/session"
	"github.com/wolfman30/easygopharm/internal/storage"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.Discard()
	store := storage.NewDegradedStore(logger)
	sessions := session.NewManager("router-test-secret", time.Hour, nil)
	svc := lifecycle.NewService(store, nil, sessions, logger)

	cfg := &Config{
		Logger:         logger,
		Intake:         handlers.NewIntakeHandler(svc, logger),
		Auth:           handlers.NewAuthHandler(svc, sessions, false, logger),
		Admin:          handlers.NewAdminHandler(svc, nil, logger),
		Sessions:       sessions,
		StorageLive:    store.Live,
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	}

	return New(cfg)
}

func login(t *testing.T, router http.Handler, username, password string) *http.Cookie {
	t.Helper()

	body := `{"username":"` + username + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, rr.Code, rr.Body.String())
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatalf("login %s: no session cookie", username)
	return nil
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
	if resp["storage"] != "degraded" {
		t.Errorf("expected degraded storage, got %q", resp["storage"])
	}
}

func TestRouterSubmissionWithoutBackend(t *testing.T) {
	router := newTestRouter(t)

	body := `{"genericName":"Elapegademase","contactEmail":"ops@example.com","urgency":"URGENT"}`
	req := httptest.NewRequest(http.MethodPost, "/api/requests", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a backend, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRouterAdminRequiresSession(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/requests", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRouterAdminWithSession(t *testing.T) {
	router := newTestRouter(t)
	cookie := login(t, router, "admin", "admin123")

	req := httptest.NewRequest(http.MethodGet, "/admin/requests", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected super admin to list users, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "admin123") {
		t.Fatalf("user listing leaked a password")
	}
}

func TestRouterStaffCannotManageUsers(t *testing.T) {
	router := newTestRouter(t)
	cookie := login(t, router, "triage", "triage123")

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/consultations", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected staff to read consultations, got %d", rr.Code)
	}
}

func TestRouterOptionalSurfacesUnmounted(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/metrics", "/api/notify", "/api/voice/live"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404 when unconfigured, got %d", path, rr.Code)
		}
	}
}

func TestRouterNotifyIsRateLimited(t *testing.T) {
	logger := logging.Discard()
	store := storage.NewDegradedStore(logger)
	sessions := session.NewManager("router-test-secret", time.Hour, nil)
	svc := lifecycle.NewService(store, nil, sessions, logger)

	delivered := 0
	router := New(&Config{
		Logger:   logger,
		Intake:   handlers.NewIntakeHandler(svc, logger),
		Auth:     handlers.NewAuthHandler(svc, sessions, false, logger),
		Admin:    handlers.NewAdminHandler(svc, nil, logger),
		Sessions: sessions,
		Notify: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			delivered++
			w.WriteHeader(http.StatusOK)
		}),
		RateLimitRPS:   1,
		RateLimitBurst: 2,
	})

	limited := 0
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/notify", strings.NewReader(`{}`))
		req.RemoteAddr = "203.0.113.50:1234"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if delivered > 3 || limited < 7 {
		t.Fatalf("expected notify to be throttled, delivered=%d limited=%d", delivered, limited)
	}
}
