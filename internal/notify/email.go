package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/easygopharm/pkg/logging"
)

// EmailSender defines the interface for sending emails.
// Implementations can be swapped (SendGrid, SES) without changing callers.
// A nil receipt with a nil error means the message was not sent (stub).
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) (*Receipt, error)
}

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	To       string
	ToName   string
	FromName string // overrides the sender default display name
	Subject  string
	Body     string // Plain text body
	HTML     string // Optional HTML body
}

// Receipt identifies a message accepted by a provider.
type Receipt struct {
	Provider  string `json:"provider"`
	MessageID string `json:"id,omitempty"`
	To        string `json:"to"`
	Status    string `json:"status,omitempty"`
}

// SendGridSender sends emails via SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender creates a new SendGrid email sender.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "EasygoPharm"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

var _ EmailSender = (*SendGridSender)(nil)

// Send sends an email via SendGrid.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) (*Receipt, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("notify: sendgrid client not configured")
	}

	fromName := s.fromName
	if msg.FromName != "" {
		fromName = msg.FromName
	}
	from := mail.NewEmail(fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)

	plain := msg.Body
	if plain == "" {
		plain = msg.HTML
	}
	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	message := mail.NewSingleEmail(from, msg.Subject, to, plain, html)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", msg.To)
		return nil, fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}

	receipt := &Receipt{Provider: "sendgrid", To: msg.To, Status: fmt.Sprint(response.StatusCode)}
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		receipt.MessageID = ids[0]
	}
	s.logger.Info("email sent via sendgrid", "to", msg.To, "subject", msg.Subject, "status", response.StatusCode)
	return receipt, nil
}

// StubEmailSender is a no-op sender used when no provider is configured.
type StubEmailSender struct {
	logger *logging.Logger
}

// NewStubEmailSender creates a stub email sender that logs but doesn't send.
func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

var _ EmailSender = (*StubEmailSender)(nil)

// Send logs the email and reports it as skipped.
func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) (*Receipt, error) {
	s.logger.Info("stub email sender: would send email", "to", msg.To, "subject", msg.Subject)
	return nil, nil
}
