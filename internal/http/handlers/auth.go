package handlers

import (
	"context"
	"net/http"

	"github.com/wolfman30/easygopharm/internal/lifecycle"
	"github.com/wolfman30/easygopharm/internal/models"
	"github.com/wolfman30/easygopharm/internal/session"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

// AuthService is the staff login surface of the lifecycle service.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*lifecycle.LoginResult, error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (*models.User, error)
}

// CookieWriter sets the session cookie. *session.Manager satisfies it.
type CookieWriter interface {
	SetCookie(w http.ResponseWriter, token string, secure bool)
}

// AuthHandler serves login, logout and the current-user probe.
type AuthHandler struct {
	svc           AuthService
	cookies       CookieWriter
	secureCookies bool
	logger        *logging.Logger
}

// NewAuthHandler creates the auth handler. secureCookies marks the cookie Secure.
func NewAuthHandler(svc AuthService, cookies CookieWriter, secureCookies bool, logger *logging.Logger) *AuthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AuthHandler{svc: svc, cookies: cookies, secureCookies: secureCookies, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates and sets the session cookie.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := h.svc.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if result == nil {
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if h.cookies != nil {
		h.cookies.SetCookie(w, result.Token, h.secureCookies)
	}
	writeJSON(w, http.StatusOK, result)
}

// Logout clears the session.
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := session.TokenFromRequest(r); token != "" {
		if err := h.svc.Logout(r.Context(), token); err != nil {
			h.logger.Warn("logout failed", "error", err)
		}
	}
	session.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the logged-in user or 401.
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.CurrentUser(r.Context(), session.TokenFromRequest(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if user == nil {
		jsonError(w, "not logged in", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
