package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/easygopharm/internal/lifecycle"
	"github.com/wolfman30/easygopharm/internal/models"
	"github.com/wolfman30/easygopharm/internal/session"
	"github.com/wolfman30/easygopharm/internal/sourcing"
	"github.com/wolfman30/easygopharm/internal/storage"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

// AdminService is the staff-facing part of the lifecycle service.
type AdminService interface {
	Requests(ctx context.Context) ([]models.DrugRequest, error)
	Request(ctx context.Context, id string) (*models.DrugRequest, error)
	UpdateRequestStatus(ctx context.Context, actor, id string, status models.RequestStatus, analysis *string, sources []models.GroundingSource) error
	Consultations(ctx context.Context) ([]models.Consultation, error)
	UpdateConsultationStatus(ctx context.Context, actor, id string, status models.ConsultStatus) error
	Users(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, in lifecycle.NewUser) (*models.User, error)
	UpdatePassword(ctx context.Context, username, password string) error
	AuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error)
}

// Analyzer produces sourcing intelligence for a drug.
type Analyzer interface {
	Analyze(ctx context.Context, drugName, notes string) sourcing.Analysis
}

// AdminHandler serves the triage console API. Every route sits behind a session.
type AdminHandler struct {
	svc      AdminService
	analyzer Analyzer
	logger   *logging.Logger
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(svc AdminService, analyzer Analyzer, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{svc: svc, analyzer: analyzer, logger: logger}
}

func actorFrom(r *http.Request) string {
	if user, ok := session.UserFromContext(r.Context()); ok {
		return user.Username
	}
	return ""
}

// ListRequests returns all drug requests, newest first.
// GET /admin/requests
func (h *AdminHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.svc.Requests(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if requests == nil {
		requests = []models.DrugRequest{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

type requestStatusUpdate struct {
	Status     models.RequestStatus     `json:"status"`
	AIAnalysis *string                  `json:"aiAnalysis,omitempty"`
	AISources  []models.GroundingSource `json:"aiSources,omitempty"`
}

// UpdateRequestStatus moves a request through triage.
// PATCH /admin/requests/{id}/status
func (h *AdminHandler) UpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var in requestStatusUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(string(in.Status)) == "" {
		jsonError(w, "status is required", http.StatusBadRequest)
		return
	}
	if err := h.svc.UpdateRequestStatus(r.Context(), actorFrom(r), id, in.Status, in.AIAnalysis, in.AISources); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": strings.ToUpper(string(in.Status))})
}

// AnalyzeRequest runs sourcing intelligence for a request. With attach=true the
// report is stored on the request without changing its status.
// POST /admin/requests/{id}/analyze
func (h *AdminHandler) AnalyzeRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := h.svc.Request(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	notes := ""
	if req.Notes != nil {
		notes = *req.Notes
	}
	analysis := sourcing.Analysis{Text: sourcing.DegradedAnalysis, Sources: []models.GroundingSource{}}
	if h.analyzer != nil {
		analysis = h.analyzer.Analyze(r.Context(), req.GenericName, notes)
	}

	attach, _ := strconv.ParseBool(r.URL.Query().Get("attach"))
	if attach && analysis.Text != sourcing.DegradedAnalysis {
		text := analysis.Text
		if err := h.svc.UpdateRequestStatus(r.Context(), actorFrom(r), id, req.Status, &text, analysis.Sources); err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, analysis)
}

// ListConsultations returns all consultations, newest first.
// GET /admin/consultations
func (h *AdminHandler) ListConsultations(w http.ResponseWriter, r *http.Request) {
	consultations, err := h.svc.Consultations(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if consultations == nil {
		consultations = []models.Consultation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"consultations": consultations})
}

// UpdateConsultationStatus changes a consultation's state.
// PATCH /admin/consultations/{id}/status
func (h *AdminHandler) UpdateConsultationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var in struct {
		Status models.ConsultStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(string(in.Status)) == "" {
		jsonError(w, "status is required", http.StatusBadRequest)
		return
	}
	if err := h.svc.UpdateConsultationStatus(r.Context(), actorFrom(r), id, in.Status); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": strings.ToUpper(string(in.Status))})
}

// ListUsers returns staff accounts without secrets.
// GET /admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Users(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// CreateUser adds a staff account.
// POST /admin/users
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.NewUser
	if err := decodeJSON(w, r, &in); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	created, err := h.svc.CreateUser(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdatePassword changes a password. Staff may only change their own.
// PUT /admin/users/{username}/password
func (h *AdminHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if user, ok := session.UserFromContext(r.Context()); ok && user.Role == models.RoleStaff && user.Username != username {
		jsonError(w, "forbidden", http.StatusForbidden)
		return
	}
	var in struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.svc.UpdatePassword(r.Context(), username, in.Password); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAuditLogs returns recent audit entries.
// GET /admin/audit-logs?limit=N
func (h *AdminHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > storage.DefaultAuditLimit {
		limit = storage.DefaultAuditLimit
	}
	logs, err := h.svc.AuditLogs(r.Context(), limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"auditLogs": logs})
}
