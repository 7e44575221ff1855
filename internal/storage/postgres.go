package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/easygopharm/internal/models"
)

// querier is the subset of pgxpool.Pool used here so tests can substitute pgxmock.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists entities in the hosted relational backend.
type PostgresStore struct {
	db querier
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("storage: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithQuerier(db querier) *PostgresStore {
	if db == nil {
		panic("storage: querier required")
	}
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) Live() bool { return true }

// Users

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.Query(ctx, `SELECT id::text, username, name, role FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("storage: list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.Role); err != nil {
			return nil, fmt.Errorf("storage: scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresStore) AddUser(ctx context.Context, user models.User) (*models.User, error) {
	query := `
		INSERT INTO users (username, password, name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text
	`
	if err := s.db.QueryRow(ctx, query, user.Username, user.Password, user.Name, user.Role).Scan(&user.ID); err != nil {
		return nil, databaseError(err)
	}
	out := user.Sanitized()
	return &out, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id::text, username, password, name, role FROM users WHERE username = $1`
	var u models.User
	if err := s.db.QueryRow(ctx, query, username).Scan(&u.ID, &u.Username, &u.Password, &u.Name, &u.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, username, password string) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET password = $2 WHERE username = $1`, username, password)
	if err != nil {
		return databaseError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Drug requests

const requestColumns = `id::text, generic_name, brand_name, dosage_strength, quantity, requester_name,
	requester_type, contact_email, contact_phone, urgency, notes, status, ai_analysis, ai_sources, created_at`

func (s *PostgresStore) ListRequests(ctx context.Context) ([]models.DrugRequest, error) {
	rows, err := s.db.Query(ctx, `SELECT `+requestColumns+` FROM drug_requests ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("storage: list requests: %w", err)
	}
	defer rows.Close()

	out := []models.DrugRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetRequest(ctx context.Context, id string) (*models.DrugRequest, error) {
	row := s.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM drug_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (s *PostgresStore) AddRequest(ctx context.Context, req models.DrugRequest) (*models.DrugRequest, error) {
	query := `
		INSERT INTO drug_requests (
			generic_name, brand_name, dosage_strength, quantity, requester_name,
			requester_type, contact_email, contact_phone, urgency, notes, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id::text
	`
	if err := s.db.QueryRow(ctx, query,
		req.GenericName,
		req.BrandName,
		req.DosageStrength,
		req.Quantity,
		req.RequesterName,
		req.RequesterType,
		req.ContactEmail,
		req.ContactPhone,
		req.Urgency,
		req.Notes,
		req.Status,
		req.CreatedAt,
	).Scan(&req.ID); err != nil {
		return nil, databaseError(err)
	}
	return &req, nil
}

func (s *PostgresStore) UpdateRequestStatus(ctx context.Context, id string, status models.RequestStatus, analysis *string, sources []models.GroundingSource) error {
	var sourcesJSON []byte
	if sources != nil {
		encoded, err := json.Marshal(sources)
		if err != nil {
			return fmt.Errorf("storage: encode sources: %w", err)
		}
		sourcesJSON = encoded
	}
	query := `
		UPDATE drug_requests
		SET status = $2,
			ai_analysis = COALESCE($3, ai_analysis),
			ai_sources = COALESCE($4::jsonb, ai_sources)
		WHERE id = $1
	`
	tag, err := s.db.Exec(ctx, query, id, status, analysis, sourcesJSON)
	if err != nil {
		return databaseError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Consultations

const consultationColumns = `id::text, patient_name, contact_email, contact_phone, preferred_date, reason, status, created_at`

func (s *PostgresStore) ListConsultations(ctx context.Context) ([]models.Consultation, error) {
	rows, err := s.db.Query(ctx, `SELECT `+consultationColumns+` FROM consultations ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("storage: list consultations: %w", err)
	}
	defer rows.Close()

	out := []models.Consultation{}
	for rows.Next() {
		var c models.Consultation
		if err := rows.Scan(&c.ID, &c.PatientName, &c.ContactEmail, &c.ContactPhone, &c.PreferredDate, &c.Reason, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan consultation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AddConsultation(ctx context.Context, c models.Consultation) (*models.Consultation, error) {
	query := `
		INSERT INTO consultations (patient_name, contact_email, contact_phone, preferred_date, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text
	`
	if err := s.db.QueryRow(ctx, query,
		c.PatientName,
		c.ContactEmail,
		c.ContactPhone,
		c.PreferredDate,
		c.Reason,
		c.Status,
		c.CreatedAt,
	).Scan(&c.ID); err != nil {
		return nil, databaseError(err)
	}
	return &c, nil
}

func (s *PostgresStore) UpdateConsultationStatus(ctx context.Context, id string, status models.ConsultStatus) error {
	tag, err := s.db.Exec(ctx, `UPDATE consultations SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return databaseError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Audit

func (s *PostgresStore) ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > DefaultAuditLimit {
		limit = DefaultAuditLimit
	}
	rows, err := s.db.Query(ctx, `SELECT id::text, action, "user", "timestamp" FROM audit_logs ORDER BY "timestamp" DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list audit logs: %w", err)
	}
	defer rows.Close()

	out := []models.AuditLog{}
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.Action, &l.User, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("storage: scan audit log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LogAudit(ctx context.Context, action, actor string) error {
	_, err := s.db.Exec(ctx, `INSERT INTO audit_logs (action, "user") VALUES ($1, $2)`, action, actor)
	if err != nil {
		return fmt.Errorf("storage: audit insert: %w", err)
	}
	return nil
}

func scanRequest(row pgx.Row) (*models.DrugRequest, error) {
	var (
		req     models.DrugRequest
		sources []byte
	)
	if err := row.Scan(
		&req.ID,
		&req.GenericName,
		&req.BrandName,
		&req.DosageStrength,
		&req.Quantity,
		&req.RequesterName,
		&req.RequesterType,
		&req.ContactEmail,
		&req.ContactPhone,
		&req.Urgency,
		&req.Notes,
		&req.Status,
		&req.AIAnalysis,
		&sources,
		&req.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("storage: scan request: %w", err)
	}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &req.AISources); err != nil {
			return nil, fmt.Errorf("storage: decode sources: %w", err)
		}
	}
	return &req, nil
}

// databaseError attaches the provider message to write failures.
func databaseError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("storage: database error: %s: %w", strings.TrimSpace(pgErr.Message), err)
	}
	return fmt.Errorf("storage: database error: %w", err)
}
