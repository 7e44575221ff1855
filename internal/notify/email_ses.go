package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/wolfman30/easygopharm/pkg/logging"
)

const sesCharset = "UTF-8"

// sesAPI is the subset of the SES v2 client used here.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers notification email through Amazon SES v2.
type SESSender struct {
	client sesAPI
	from   mail.Address
	cfg    SESConfig
	logger *logging.Logger
}

// SESConfig holds the sender identity and optional SES routing.
type SESConfig struct {
	FromEmail string
	FromName  string
	// ReplyTo, when set, receives replies instead of the sender address.
	ReplyTo string
	// ConfigurationSet names the SES configuration set used for event publishing.
	ConfigurationSet string
}

// NewSESSender returns nil when client is nil.
func NewSESSender(client *sesv2.Client, cfg SESConfig, logger *logging.Logger) *SESSender {
	if client == nil {
		return nil
	}
	return newSESSender(client, cfg, logger)
}

func newSESSender(client sesAPI, cfg SESConfig, logger *logging.Logger) *SESSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "EasygoPharm"
	}
	return &SESSender{
		client: client,
		from:   mail.Address{Name: cfg.FromName, Address: cfg.FromEmail},
		cfg:    cfg,
		logger: logger,
	}
}

var _ EmailSender = (*SESSender)(nil)

// Send submits msg as a simple SES message.
func (s *SESSender) Send(ctx context.Context, msg EmailMessage) (*Receipt, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("notify: SES client not configured")
	}
	if strings.TrimSpace(msg.To) == "" {
		return nil, errors.New("notify: SES recipient is required")
	}

	from := s.fromFor(msg)
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from.String()),
		Destination:      &types.Destination{ToAddresses: []string{recipient(msg)}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: sesContent(msg.Subject),
				Body: &types.Body{
					Text: sesContent(msg.Body),
					Html: sesContent(msg.HTML),
				},
			},
		},
	}
	if s.cfg.ReplyTo != "" {
		input.ReplyToAddresses = []string{s.cfg.ReplyTo}
	}
	if s.cfg.ConfigurationSet != "" {
		input.ConfigurationSetName = aws.String(s.cfg.ConfigurationSet)
	}

	output, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("notify: SES send failed: %w", err)
	}

	id := aws.ToString(output.MessageId)
	s.logger.Info("email sent via SES", "to", msg.To, "subject", msg.Subject, "message_id", id)
	return &Receipt{Provider: "ses", MessageID: id, To: msg.To}, nil
}

func (s *SESSender) fromFor(msg EmailMessage) mail.Address {
	from := s.from
	if msg.FromName != "" {
		from.Name = msg.FromName
	}
	return from
}

func recipient(msg EmailMessage) string {
	if msg.ToName == "" {
		return msg.To
	}
	return (&mail.Address{Name: msg.ToName, Address: msg.To}).String()
}

// sesContent returns nil for empty parts so SES omits them.
func sesContent(data string) *types.Content {
	if data == "" {
		return nil
	}
	return &types.Content{Data: aws.String(data), Charset: aws.String(sesCharset)}
}
