package handlers

import (
	"context"
	"net/http"

	"github.com/wolfman30/easygopharm/internal/models"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

// IntakeService accepts public submissions.
type IntakeService interface {
	SubmitRequest(ctx context.Context, in models.NewDrugRequest) (*models.DrugRequest, error)
	BookConsultation(ctx context.Context, in models.NewConsultation) (*models.Consultation, error)
}

// IntakeHandler serves the public request and booking forms.
type IntakeHandler struct {
	svc    IntakeService
	logger *logging.Logger
}

// NewIntakeHandler creates the public intake handler.
func NewIntakeHandler(svc IntakeService, logger *logging.Logger) *IntakeHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &IntakeHandler{svc: svc, logger: logger}
}

// SubmitRequest stores a new sourcing request.
// POST /api/requests
func (h *IntakeHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var in models.NewDrugRequest
	if err := decodeJSON(w, r, &in); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	created, err := h.svc.SubmitRequest(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// BookConsultation stores a new triage appointment.
// POST /api/consultations
func (h *IntakeHandler) BookConsultation(w http.ResponseWriter, r *http.Request) {
	var in models.NewConsultation
	if err := decodeJSON(w, r, &in); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	created, err := h.svc.BookConsultation(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
