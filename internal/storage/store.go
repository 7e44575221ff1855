// Package storage owns all entity state. Two interchangeable Store
// implementations exist: PostgresStore for a configured backend and
// DegradedStore when no credentials are present. The choice is made once at
// startup.
package storage

import (
	"context"
	"errors"

	"github.com/wolfman30/easygopharm/internal/models"
)

var (
	// ErrDatabaseUnavailable is returned by writes in degraded mode.
	ErrDatabaseUnavailable = errors.New("storage: database connection unavailable")

	// ErrNotFound is returned when the targeted row does not exist.
	ErrNotFound = errors.New("storage: not found")
)

// DefaultAuditLimit caps audit log listings.
const DefaultAuditLimit = 100

// Store is the persistence contract used by the lifecycle service and admin API.
type Store interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	AddUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, username, password string) error

	ListRequests(ctx context.Context) ([]models.DrugRequest, error)
	GetRequest(ctx context.Context, id string) (*models.DrugRequest, error)
	AddRequest(ctx context.Context, req models.DrugRequest) (*models.DrugRequest, error)
	UpdateRequestStatus(ctx context.Context, id string, status models.RequestStatus, analysis *string, sources []models.GroundingSource) error

	ListConsultations(ctx context.Context) ([]models.Consultation, error)
	AddConsultation(ctx context.Context, c models.Consultation) (*models.Consultation, error)
	UpdateConsultationStatus(ctx context.Context, id string, status models.ConsultStatus) error

	ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error)
	LogAudit(ctx context.Context, action, actor string) error

	// Live reports whether writes reach a real backend.
	Live() bool
}
