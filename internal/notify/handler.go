package notify

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wolfman30/easygopharm/pkg/logging"
)

const maxEventBytes = 1 << 20

// SecretHeader carries the shared secret between the API and a remote
// notification endpoint.
const SecretHeader = "X-Notify-Secret"

// Response is the success envelope of the notification endpoint.
type Response struct {
	Success bool    `json:"success"`
	Details Details `json:"details"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler exposes the dispatcher as the notification endpoint.
type Handler struct {
	dispatcher *Dispatcher
	secret     string
	logger     *logging.Logger
}

// NewHandler wraps a dispatcher.
func NewHandler(dispatcher *Dispatcher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{dispatcher: dispatcher, logger: logger}
}

// WithSecret makes the handler reject callers that do not present secret in
// SecretHeader. An empty secret leaves the endpoint open.
func (h *Handler) WithSecret(secret string) *Handler {
	h.secret = secret
	return h
}

// Authorized reports whether token matches the configured secret.
func (h *Handler) Authorized(token string) bool {
	if h.secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}

// ServeHTTP implements POST /api/notify.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && !h.Authorized(r.Header.Get(SecretHeader)) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unable to read body"})
		return
	}
	status, payload := h.Process(r.Context(), r.Method, body)
	writeJSON(w, status, payload)
}

// Process is the transport-independent core shared with the Lambda entry
// point. It returns the status code and the JSON payload to send. Any method
// other than POST is rejected before the body is looked at.
func (h *Handler) Process(ctx context.Context, method string, body []byte) (status int, payload any) {
	if method != http.MethodPost {
		return http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"}
	}

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("notify: worker failure", "panic", r)
			status, payload = http.StatusInternalServerError, errorResponse{Error: "notification worker failure"}
		}
	}()

	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return http.StatusBadRequest, errorResponse{Error: "invalid JSON body"}
	}

	details, err := h.dispatcher.Dispatch(ctx, evt)
	switch {
	case errors.Is(err, ErrMissingData):
		return http.StatusBadRequest, errorResponse{Error: "Data payload required"}
	case errors.Is(err, ErrInvalidPayload):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case err != nil:
		h.logger.Error("notify: worker failure", "error", err)
		return http.StatusInternalServerError, errorResponse{Error: err.Error()}
	}
	return http.StatusOK, Response{Success: true, Details: details}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
