package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/easygopharm/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/easygopharm/internal/http/middleware"
	"github.com/wolfman30/easygopharm/internal/models"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger    *logging.Logger
	Intake    *handlers.IntakeHandler
	Auth      *handlers.AuthHandler
	Admin     *handlers.AdminHandler
	Assistant *handlers.AssistantHandler

	// Sessions guards every /admin route.
	Sessions httpmiddleware.SessionResolver

	// Optional surfaces; nil leaves the route unmounted.
	Notify         http.Handler
	Voice          http.Handler
	MetricsHandler http.Handler

	// StorageLive reports whether submissions reach the relational backend.
	StorageLive func() bool

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// TrustProxyHeaders rewrites RemoteAddr from forwarding headers.
	TrustProxyHeaders bool
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.StorageLive))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		public.Group(func(intake chi.Router) {
			intake.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
			if cfg.Notify != nil {
				intake.Handle("/api/notify", cfg.Notify)
			}
			intake.Post("/api/requests", cfg.Intake.SubmitRequest)
			intake.Post("/api/consultations", cfg.Intake.BookConsultation)
			if cfg.Assistant != nil {
				intake.Post("/api/assistant/chat", cfg.Assistant.Chat)
			}
		})

		public.Route("/api/auth", func(auth chi.Router) {
			auth.Post("/login", cfg.Auth.Login)
			auth.Post("/logout", cfg.Auth.Logout)
			auth.Get("/me", cfg.Auth.Me)
		})

		if cfg.Voice != nil {
			public.Handle("/api/voice/live", cfg.Voice)
		}
	})

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.RequireSession(cfg.Sessions, cfg.Logger))

		admin.Get("/requests", cfg.Admin.ListRequests)
		admin.Patch("/requests/{id}/status", cfg.Admin.UpdateRequestStatus)
		admin.Post("/requests/{id}/analyze", cfg.Admin.AnalyzeRequest)

		admin.Get("/consultations", cfg.Admin.ListConsultations)
		admin.Patch("/consultations/{id}/status", cfg.Admin.UpdateConsultationStatus)

		admin.Put("/users/{username}/password", cfg.Admin.UpdatePassword)
		admin.Group(func(users chi.Router) {
			users.Use(httpmiddleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))
			users.Get("/users", cfg.Admin.ListUsers)
			users.Post("/users", cfg.Admin.CreateUser)
		})

		admin.Get("/audit-logs", cfg.Admin.ListAuditLogs)
	})

	return r
}

func healthHandler(live func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode := "degraded"
		if live != nil && live() {
			mode = "live"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "storage": mode})
	}
}
