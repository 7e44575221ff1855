package storage

import (
	"context"

	"github.com/wolfman30/easygopharm/internal/models"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

// DegradedStore serves reads from an empty dataset and refuses inserts. Status
// and password updates are accepted and dropped. It is selected when no
// backend credentials are configured.
type DegradedStore struct {
	logger *logging.Logger
}

// NewDegradedStore creates the no-backend store.
func NewDegradedStore(logger *logging.Logger) *DegradedStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &DegradedStore{logger: logger}
}

var _ Store = (*DegradedStore)(nil)

func (s *DegradedStore) Live() bool { return false }

func (s *DegradedStore) ListUsers(context.Context) ([]models.User, error) {
	return BuiltinUsers(), nil
}

func (s *DegradedStore) AddUser(context.Context, models.User) (*models.User, error) {
	return nil, ErrDatabaseUnavailable
}

func (s *DegradedStore) GetUserByUsername(context.Context, string) (*models.User, error) {
	return nil, ErrNotFound
}

func (s *DegradedStore) UpdatePassword(_ context.Context, username, _ string) error {
	s.logger.Debug("storage: password update dropped in degraded mode", "username", username)
	return nil
}

func (s *DegradedStore) ListRequests(context.Context) ([]models.DrugRequest, error) {
	return []models.DrugRequest{}, nil
}

func (s *DegradedStore) GetRequest(context.Context, string) (*models.DrugRequest, error) {
	return nil, ErrNotFound
}

func (s *DegradedStore) AddRequest(context.Context, models.DrugRequest) (*models.DrugRequest, error) {
	return nil, ErrDatabaseUnavailable
}

func (s *DegradedStore) UpdateRequestStatus(_ context.Context, id string, status models.RequestStatus, _ *string, _ []models.GroundingSource) error {
	s.logger.Debug("storage: request update dropped in degraded mode", "request_id", id, "status", status)
	return nil
}

func (s *DegradedStore) ListConsultations(context.Context) ([]models.Consultation, error) {
	return []models.Consultation{}, nil
}

func (s *DegradedStore) AddConsultation(context.Context, models.Consultation) (*models.Consultation, error) {
	return nil, ErrDatabaseUnavailable
}

func (s *DegradedStore) UpdateConsultationStatus(_ context.Context, id string, status models.ConsultStatus) error {
	s.logger.Debug("storage: consultation update dropped in degraded mode", "consultation_id", id, "status", status)
	return nil
}

func (s *DegradedStore) ListAuditLogs(context.Context, int) ([]models.AuditLog, error) {
	return []models.AuditLog{}, nil
}

// LogAudit drops the entry; there is nowhere durable to put it.
func (s *DegradedStore) LogAudit(_ context.Context, action, actor string) error {
	s.logger.Debug("storage: audit dropped in degraded mode", "action", action, "user", actor)
	return nil
}
