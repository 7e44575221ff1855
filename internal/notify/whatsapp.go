package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/easygopharm/pkg/logging"
)

var whatsappTracer = otel.Tracer("easygopharm.internal.notify.whatsapp")

const defaultTwilioBaseURL = "https://api.twilio.com"

// WhatsAppSender delivers a WhatsApp text to a normalized E.164 number.
type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, to, body string) (*Receipt, error)
}

// TwilioWhatsApp posts WhatsApp messages using Twilio's REST API.
type TwilioWhatsApp struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// TwilioConfig holds the Twilio account and sender number.
type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
	BaseURL     string
}

// NewTwilioWhatsApp returns nil unless credentials and a sender number are present.
func NewTwilioWhatsApp(cfg TwilioConfig, logger *logging.Logger) *TwilioWhatsApp {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.PhoneNumber == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultTwilioBaseURL
	}
	return &TwilioWhatsApp{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.PhoneNumber,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

var _ WhatsAppSender = (*TwilioWhatsApp)(nil)

// SendWhatsApp sends a single message. Failures are returned as-is; there is no retry.
func (s *TwilioWhatsApp) SendWhatsApp(ctx context.Context, to, body string) (*Receipt, error) {
	if s == nil {
		return nil, errors.New("notify: twilio not configured")
	}
	if to == "" {
		return nil, errors.New("notify: whatsapp recipient required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("notify: whatsapp body required")
	}

	ctx, span := whatsappTracer.Start(ctx, "notify.twilio.whatsapp")
	defer span.End()
	span.SetAttributes(attribute.String("easygopharm.to", to))

	payload := url.Values{}
	payload.Set("To", "whatsapp:"+to)
	payload.Set("From", "whatsapp:"+NormalizePhone(s.from))
	payload.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("notify: build twilio request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("notify: twilio request: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("notify: twilio send failed: %s", formatTwilioError(resp.StatusCode, respBody))
		span.RecordError(err)
		return nil, err
	}

	receipt := &Receipt{Provider: "twilio", To: to}
	var parsed struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(respBody, &parsed); err == nil {
		receipt.MessageID = parsed.SID
		receipt.Status = parsed.Status
	}
	s.logger.Info("twilio whatsapp sent", "to", to, "sid", receipt.MessageID)
	return receipt, nil
}

type twilioAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatTwilioError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
