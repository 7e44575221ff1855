// Package session replaces the browser-local "egp_session" marker with an
// explicit server-side session. A signed JWT carries the session id; the
// serialized user lives in Redis, or in process memory when Redis is absent.
package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/easygopharm/internal/models"
)

// CookieName is the cookie (and Redis key prefix) holding the session marker.
const CookieName = "egp_session"

// ErrNoSession means the caller is logged out.
var ErrNoSession = errors.New("session: no active session")

// Claims is the JWT payload.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type recordStore interface {
	save(ctx context.Context, sid string, data []byte, ttl time.Duration) error
	load(ctx context.Context, sid string) ([]byte, error)
	remove(ctx context.Context, sid string) error
}

// Manager issues, resolves and clears sessions.
type Manager struct {
	secret  []byte
	ttl     time.Duration
	records recordStore
	now     func() time.Time
}

// NewManager builds a session manager. A nil redis client keeps sessions in
// memory. An empty secret generates an ephemeral one, so sessions do not
// survive a restart.
func NewManager(secret string, ttl time.Duration, rdb *redis.Client) *Manager {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	var records recordStore
	if rdb != nil {
		records = &redisRecords{client: rdb}
	} else {
		records = newMemoryRecords()
	}
	return &Manager{secret: key, ttl: ttl, records: records, now: time.Now}
}

// Create persists the sanitized user and returns a signed token for it.
func (m *Manager) Create(ctx context.Context, user models.User) (string, error) {
	data, err := json.Marshal(user.Sanitized())
	if err != nil {
		return "", fmt.Errorf("session: encode user: %w", err)
	}
	sid := uuid.NewString()
	if err := m.records.save(ctx, sid, data, m.ttl); err != nil {
		return "", fmt.Errorf("session: save: %w", err)
	}

	now := m.now()
	claims := Claims{
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("session: sign: %w", err)
	}
	return token, nil
}

// Resolve returns the user behind token, or ErrNoSession.
func (m *Manager) Resolve(ctx context.Context, token string) (*models.User, error) {
	claims, err := m.parse(token)
	if err != nil {
		return nil, ErrNoSession
	}
	data, err := m.records.load(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, ErrNoSession
	}
	return &user, nil
}

// Clear removes the session record. Clearing an unknown or invalid token is not an error.
func (m *Manager) Clear(ctx context.Context, token string) error {
	claims, err := m.parse(token)
	if err != nil {
		return nil
	}
	if err := m.records.remove(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

// TTL is the lifetime of new sessions.
func (m *Manager) TTL() time.Duration { return m.ttl }

func (m *Manager) parse(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoSession
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !parsed.Valid || claims.SessionID == "" {
		return nil, ErrNoSession
	}
	return claims, nil
}

// TokenFromRequest reads the session cookie, then the bearer header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// SetCookie writes the session cookie.
func (m *Manager) SetCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

type userKey struct{}

// WithUser stores the resolved user on ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the session user, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey{}).(*models.User)
	return user, ok && user != nil
}

type redisRecords struct {
	client *redis.Client
}

func redisKey(sid string) string { return CookieName + ":" + sid }

func (r *redisRecords) save(ctx context.Context, sid string, data []byte, ttl time.Duration) error {
	return r.client.Set(ctx, redisKey(sid), data, ttl).Err()
}

func (r *redisRecords) load(ctx context.Context, sid string) ([]byte, error) {
	data, err := r.client.Get(ctx, redisKey(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}
	return data, nil
}

func (r *redisRecords) remove(ctx context.Context, sid string) error {
	return r.client.Del(ctx, redisKey(sid)).Err()
}

type memoryRecord struct {
	data    []byte
	expires time.Time
}

type memoryRecords struct {
	mu      sync.Mutex
	records map[string]memoryRecord
	now     func() time.Time
}

func newMemoryRecords() *memoryRecords {
	return &memoryRecords{records: make(map[string]memoryRecord), now: time.Now}
}

func (m *memoryRecords) save(_ context.Context, sid string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[sid] = memoryRecord{data: data, expires: m.now().Add(ttl)}
	return nil
}

func (m *memoryRecords) load(_ context.Context, sid string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[sid]
	if !ok {
		return nil, ErrNoSession
	}
	if m.now().After(rec.expires) {
		delete(m.records, sid)
		return nil, ErrNoSession
	}
	return rec.data, nil
}

func (m *memoryRecords) remove(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, sid)
	return nil
}
