// Package models holds the entities shared by storage, notification and the admin API.
package models

import (
	"strings"
	"time"
)

// Role is a staff permission level.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleStaff      Role = "STAFF"
)

// User is a staff account. Password is never serialized.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}

// Sanitized returns a copy with the secret stripped.
func (u User) Sanitized() User {
	u.Password = ""
	return u
}

// Urgency of a drug request.
type Urgency string

const (
	UrgencyNormal   Urgency = "NORMAL"
	UrgencyUrgent   Urgency = "URGENT"
	UrgencyCritical Urgency = "CRITICAL"
)

// RequesterType identifies who is asking for the drug.
type RequesterType string

const (
	RequesterPatient  RequesterType = "PATIENT"
	RequesterClinic   RequesterType = "CLINIC"
	RequesterHospital RequesterType = "HOSPITAL"
	RequesterPharmacy RequesterType = "PHARMACY"
)

// RequestStatus is the triage state of a drug request. The admin layer owns
// the vocabulary; storage accepts any non-empty value.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestSourcing  RequestStatus = "SOURCING"
	RequestQuoted    RequestStatus = "QUOTED"
	RequestFulfilled RequestStatus = "FULFILLED"
	RequestCancelled RequestStatus = "CANCELLED"
)

// ConsultStatus is the state of a booked consultation.
type ConsultStatus string

const (
	ConsultScheduled ConsultStatus = "SCHEDULED"
	ConsultCompleted ConsultStatus = "COMPLETED"
	ConsultCancelled ConsultStatus = "CANCELLED"
)

// GroundingSource is a citation returned by a search-grounded AI query.
type GroundingSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// DrugRequest is a sourcing request for a rare or orphan drug.
type DrugRequest struct {
	ID             string            `json:"id"`
	GenericName    string            `json:"genericName"`
	BrandName      *string           `json:"brandName"`
	DosageStrength string            `json:"dosageStrength"`
	Quantity       string            `json:"quantity"`
	RequesterName  string            `json:"requesterName"`
	RequesterType  RequesterType     `json:"requesterType"`
	ContactEmail   string            `json:"contactEmail"`
	ContactPhone   string            `json:"contactPhone"`
	Urgency        Urgency           `json:"urgency"`
	Notes          *string           `json:"notes"`
	Status         RequestStatus     `json:"status"`
	AIAnalysis     *string           `json:"aiAnalysis,omitempty"`
	AISources      []GroundingSource `json:"aiSources,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// NewDrugRequest is the submission payload.
type NewDrugRequest struct {
	GenericName    string        `json:"genericName"`
	BrandName      string        `json:"brandName"`
	DosageStrength string        `json:"dosageStrength"`
	Quantity       string        `json:"quantity"`
	RequesterName  string        `json:"requesterName"`
	RequesterType  RequesterType `json:"requesterType"`
	ContactEmail   string        `json:"contactEmail"`
	ContactPhone   string        `json:"contactPhone"`
	Urgency        Urgency       `json:"urgency"`
	Notes          string        `json:"notes"`
}

// Consultation is a booked telehealth triage appointment.
type Consultation struct {
	ID            string        `json:"id"`
	PatientName   string        `json:"patientName"`
	ContactEmail  string        `json:"contactEmail"`
	ContactPhone  string        `json:"contactPhone"`
	PreferredDate time.Time     `json:"preferredDate"`
	Reason        string        `json:"reason"`
	Status        ConsultStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NewConsultation is the booking payload. PreferredDate is kept raw so
// validation can report a parse failure.
type NewConsultation struct {
	PatientName   string `json:"patientName"`
	ContactEmail  string `json:"contactEmail"`
	ContactPhone  string `json:"contactPhone"`
	PreferredDate string `json:"preferredDate"`
	Reason        string `json:"reason"`
}

// AuditLog is an append-only record of a mutating action.
type AuditLog struct {
	ID        string    `json:"id,omitempty"`
	Action    string    `json:"action"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

var preferredDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParsePreferredDate accepts RFC3339 and the datetime-local layouts browsers submit.
func ParsePreferredDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range preferredDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// StringPtr returns nil for blank strings.
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
