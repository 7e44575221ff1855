package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/easygopharm/internal/models"
	"github.com/wolfman30/easygopharm/internal/session"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

// SessionResolver maps a session token to its user. *session.Manager satisfies it.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// RequireSession rejects requests without a live staff session and stores the
// resolved user on the request context.
func RequireSession(resolver SessionResolver, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := session.TokenFromRequest(r)
			if token == "" {
				unauthorized(w, "missing session")
				return
			}
			user, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				if !errors.Is(err, session.ErrNoSession) {
					logger.Warn("session lookup failed", "error", err)
				}
				unauthorized(w, "invalid session")
				return
			}
			next.ServeHTTP(w, r.WithContext(session.WithUser(r.Context(), user)))
		})
	}
}

// RequireRole allows only session users holding one of roles. It must run
// after RequireSession.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := session.UserFromContext(r.Context())
			if !ok {
				unauthorized(w, "missing session")
				return
			}
			if _, ok := allowed[user.Role]; !ok {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, message)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
