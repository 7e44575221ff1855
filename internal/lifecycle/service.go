// Package lifecycle orchestrates submissions and staff actions: every
// mutation is persisted first, then audited. New requests and consultations
// additionally trigger a detached, best-effort notification fan-out.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/easygopharm/internal/models"
	"github.com/wolfman30/easygopharm/internal/notify"
	"github.com/wolfman30/easygopharm/internal/session"
	"github.com/wolfman30/easygopharm/internal/storage"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

// ErrInvalidInput wraps every validation failure.
var ErrInvalidInput = errors.New("lifecycle: invalid input")

const (
	actorSystem = "System"
	actorAdmin  = "Admin"

	defaultNotifyTimeout = 30 * time.Second
)

// Notifier receives new-submission events. Both the in-process dispatcher
// and the remote endpoint client satisfy it.
type Notifier interface {
	Dispatch(ctx context.Context, evt notify.Event) (notify.Details, error)
}

// Sessions issues and resolves login sessions.
type Sessions interface {
	Create(ctx context.Context, user models.User) (string, error)
	Resolve(ctx context.Context, token string) (*models.User, error)
	Clear(ctx context.Context, token string) error
}

// Service is the lifecycle orchestrator.
type Service struct {
	store         storage.Store
	notifier      Notifier
	sessions      Sessions
	logger        *logging.Logger
	now           func() time.Time
	notifyTimeout time.Duration
	background    sync.WaitGroup
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the submission timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifyTimeout bounds each detached notification fan-out.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) { s.notifyTimeout = d }
}

// NewService wires the orchestrator. A nil notifier disables notifications.
func NewService(store storage.Store, notifier Notifier, sessions Sessions, logger *logging.Logger, opts ...Option) *Service {
	if store == nil {
		panic("lifecycle: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		store:         store,
		notifier:      notifier,
		sessions:      sessions,
		logger:        logger,
		now:           time.Now,
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitRequest validates and persists a drug request, then notifies and audits.
func (s *Service) SubmitRequest(ctx context.Context, in models.NewDrugRequest) (*models.DrugRequest, error) {
	req, err := buildDrugRequest(in, s.now().UTC())
	if err != nil {
		return nil, err
	}
	saved, err := s.store.AddRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	if evt, err := notify.NewDrugRequestEvent(*saved); err != nil {
		s.logger.Warn("lifecycle: build notification failed", "request_id", saved.ID, "error", err)
	} else {
		s.notifyAsync(ctx, evt)
	}
	s.audit(ctx, "New Drug Request", actorSystem)
	return saved, nil
}

// BookConsultation validates and persists a consultation, then notifies and audits.
func (s *Service) BookConsultation(ctx context.Context, in models.NewConsultation) (*models.Consultation, error) {
	c, err := buildConsultation(in, s.now().UTC())
	if err != nil {
		return nil, err
	}
	saved, err := s.store.AddConsultation(ctx, c)
	if err != nil {
		return nil, err
	}

	if evt, err := notify.NewConsultationEvent(*saved); err != nil {
		s.logger.Warn("lifecycle: build notification failed", "consultation_id", saved.ID, "error", err)
	} else {
		s.notifyAsync(ctx, evt)
	}
	s.audit(ctx, "New Consultation Booked", actorSystem)
	return saved, nil
}

// UpdateRequestStatus moves a request to status, optionally attaching an AI
// analysis and its sources in the same write.
func (s *Service) UpdateRequestStatus(ctx context.Context, actor, id string, status models.RequestStatus, analysis *string, sources []models.GroundingSource) error {
	id = strings.TrimSpace(id)
	status = models.RequestStatus(strings.ToUpper(strings.TrimSpace(string(status))))
	if id == "" || status == "" {
		return fmt.Errorf("%w: id and status are required", ErrInvalidInput)
	}
	// A blank analysis leaves the stored one in place.
	if analysis != nil && strings.TrimSpace(*analysis) == "" {
		analysis = nil
	}
	if err := s.store.UpdateRequestStatus(ctx, id, status, analysis, sources); err != nil {
		return err
	}
	s.audit(ctx, fmt.Sprintf("Request %s updated to %s", id, status), actorOr(actor))
	return nil
}

// UpdateConsultationStatus moves a consultation to status.
func (s *Service) UpdateConsultationStatus(ctx context.Context, actor, id string, status models.ConsultStatus) error {
	id = strings.TrimSpace(id)
	status = models.ConsultStatus(strings.ToUpper(strings.TrimSpace(string(status))))
	if id == "" || status == "" {
		return fmt.Errorf("%w: id and status are required", ErrInvalidInput)
	}
	if err := s.store.UpdateConsultationStatus(ctx, id, status); err != nil {
		return err
	}
	s.audit(ctx, fmt.Sprintf("Consultation %s updated to %s", id, status), actorOr(actor))
	return nil
}

// NewUser is the staff account creation payload.
type NewUser struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
}

// CreateUser stores a staff account with a bcrypt-hashed password.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	if in.Username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	role, err := parseRole(in.Role)
	if err != nil {
		return nil, err
	}
	if in.Name == "" {
		in.Name = in.Username
	}
	hash, err := session.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: hash password: %w", err)
	}

	created, err := s.store.AddUser(ctx, models.User{Username: in.Username, Password: hash, Name: in.Name, Role: role})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "Created user "+in.Username, actorAdmin)
	return created, nil
}

// UpdatePassword replaces a user's password.
func (s *Service) UpdatePassword(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	hash, err := session.HashPassword(password)
	if err != nil {
		return fmt.Errorf("lifecycle: hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, username, hash); err != nil {
		return err
	}
	s.audit(ctx, "Password Updated", username)
	return nil
}

// LoginResult carries the authenticated user and its session token.
type LoginResult struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Login checks backend credentials first and the built-in staff list second.
// A failed match returns nil without an error.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil
	}

	user := s.backendUser(ctx, username, password)
	if user == nil {
		if builtin, ok := storage.BuiltinUser(username); ok && session.CheckPassword(builtin.Password, password) {
			u := builtin.Sanitized()
			user = &u
		}
	}
	if user == nil {
		return nil, nil
	}

	if s.sessions == nil {
		return nil, errors.New("lifecycle: sessions not configured")
	}
	token, err := s.sessions.Create(ctx, *user)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "Login Success", user.Username)
	return &LoginResult{User: *user, Token: token}, nil
}

func (s *Service) backendUser(ctx context.Context, username, password string) *models.User {
	stored, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("lifecycle: backend user lookup failed", "username", username, "error", err)
		}
		return nil
	}
	if !session.CheckPassword(stored.Password, password) {
		return nil
	}
	u := stored.Sanitized()
	return &u
}

// Logout clears the session behind token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.Clear(ctx, token)
}

// CurrentUser resolves token. A missing or expired session yields nil.
func (s *Service) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	if s.sessions == nil || token == "" {
		return nil, nil
	}
	user, err := s.sessions.Resolve(ctx, token)
	if errors.Is(err, session.ErrNoSession) {
		return nil, nil
	}
	return user, err
}

// Requests lists drug requests, newest first.
func (s *Service) Requests(ctx context.Context) ([]models.DrugRequest, error) {
	return s.store.ListRequests(ctx)
}

// Request returns one drug request.
func (s *Service) Request(ctx context.Context, id string) (*models.DrugRequest, error) {
	return s.store.GetRequest(ctx, id)
}

// Consultations lists consultations, newest first.
func (s *Service) Consultations(ctx context.Context) ([]models.Consultation, error) {
	return s.store.ListConsultations(ctx)
}

// Users lists staff accounts without secrets.
func (s *Service) Users(ctx context.Context) ([]models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = users[i].Sanitized()
	}
	return users, nil
}

// AuditLogs lists the most recent audit entries.
func (s *Service) AuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	return s.store.ListAuditLogs(ctx, limit)
}

// Wait blocks until detached notifications finish. Used on shutdown.
func (s *Service) Wait() {
	s.background.Wait()
}

func (s *Service) notifyAsync(ctx context.Context, evt notify.Event) {
	if s.notifier == nil {
		return
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
		defer cancel()
		if _, err := s.notifier.Dispatch(nctx, evt); err != nil {
			s.logger.Warn("lifecycle: notification failed", "type", evt.Type, "error", err)
		}
	}()
}

func (s *Service) audit(ctx context.Context, action, actor string) {
	if err := s.store.LogAudit(ctx, action, actor); err != nil {
		s.logger.Warn("lifecycle: audit write failed", "action", action, "user", actor, "error", err)
	}
}

func actorOr(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return actorAdmin
	}
	return actor
}

func buildDrugRequest(in models.NewDrugRequest, now time.Time) (models.DrugRequest, error) {
	in.GenericName = strings.TrimSpace(in.GenericName)
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	if in.GenericName == "" {
		return models.DrugRequest{}, fmt.Errorf("%w: genericName is required", ErrInvalidInput)
	}
	if err := validateEmail(in.ContactEmail); err != nil {
		return models.DrugRequest{}, err
	}

	urgency := models.Urgency(strings.ToUpper(strings.TrimSpace(string(in.Urgency))))
	switch urgency {
	case "":
		urgency = models.UrgencyNormal
	case models.UrgencyNormal, models.UrgencyUrgent, models.UrgencyCritical:
	default:
		return models.DrugRequest{}, fmt.Errorf("%w: unknown urgency %q", ErrInvalidInput, in.Urgency)
	}

	requester := models.RequesterType(strings.ToUpper(strings.TrimSpace(string(in.RequesterType))))
	switch requester {
	case "":
		requester = models.RequesterPatient
	case models.RequesterPatient, models.RequesterClinic, models.RequesterHospital, models.RequesterPharmacy:
	default:
		return models.DrugRequest{}, fmt.Errorf("%w: unknown requesterType %q", ErrInvalidInput, in.RequesterType)
	}

	return models.DrugRequest{
		GenericName:    in.GenericName,
		BrandName:      models.StringPtr(strings.TrimSpace(in.BrandName)),
		DosageStrength: strings.TrimSpace(in.DosageStrength),
		Quantity:       strings.TrimSpace(in.Quantity),
		RequesterName:  strings.TrimSpace(in.RequesterName),
		RequesterType:  requester,
		ContactEmail:   in.ContactEmail,
		ContactPhone:   strings.TrimSpace(in.ContactPhone),
		Urgency:        urgency,
		Notes:          models.StringPtr(strings.TrimSpace(in.Notes)),
		Status:         models.RequestPending,
		CreatedAt:      now,
	}, nil
}

func buildConsultation(in models.NewConsultation, now time.Time) (models.Consultation, error) {
	in.PatientName = strings.TrimSpace(in.PatientName)
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	if in.PatientName == "" {
		return models.Consultation{}, fmt.Errorf("%w: patientName is required", ErrInvalidInput)
	}
	if err := validateEmail(in.ContactEmail); err != nil {
		return models.Consultation{}, err
	}
	when, ok := models.ParsePreferredDate(in.PreferredDate)
	if !ok {
		return models.Consultation{}, fmt.Errorf("%w: preferredDate %q is not a valid timestamp", ErrInvalidInput, in.PreferredDate)
	}
	return models.Consultation{
		PatientName:   in.PatientName,
		ContactEmail:  in.ContactEmail,
		ContactPhone:  strings.TrimSpace(in.ContactPhone),
		PreferredDate: when,
		Reason:        strings.TrimSpace(in.Reason),
		Status:        models.ConsultScheduled,
		CreatedAt:     now,
	}, nil
}

func validateEmail(addr string) error {
	if addr == "" {
		return fmt.Errorf("%w: contactEmail is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		return fmt.Errorf("%w: contactEmail %q is not a valid address", ErrInvalidInput, addr)
	}
	return nil
}

func parseRole(r models.Role) (models.Role, error) {
	role := models.Role(strings.ToUpper(strings.TrimSpace(string(r))))
	switch role {
	case "":
		return models.RoleStaff, nil
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleStaff:
		return role, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, r)
	}
}
