package bootstrap

import (
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/easygopharm/internal/config"
	"github.com/wolfman30/easygopharm/internal/lifecycle"
	"github.com/wolfman30/easygopharm/internal/notify"
	"github.com/wolfman30/easygopharm/internal/observability/metrics"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

const remoteNotifyTimeout = 20 * time.Second

// BuildEmailSender picks the email provider named by EMAIL_PROVIDER.
// "auto" prefers SendGrid when a key is present. SES needs an AWS config.
// When nothing usable is configured the stub sender is returned, which logs
// and reports every email as skipped. The provider name is returned for logging.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, string) {
	if logger == nil {
		logger = logging.Default()
	}

	sendgrid := func() notify.EmailSender {
		s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
		if s == nil {
			return nil
		}
		return s
	}
	ses := func() notify.EmailSender {
		if awsCfg == nil {
			return nil
		}
		s := notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail:        cfg.EmailFromAddress,
			FromName:         cfg.EmailFromName,
			ReplyTo:          cfg.EmailReplyTo,
			ConfigurationSet: cfg.SESConfigSet,
		}, logger)
		if s == nil {
			return nil
		}
		return s
	}

	switch strings.ToLower(strings.TrimSpace(cfg.EmailProvider)) {
	case "sendgrid":
		if s := sendgrid(); s != nil {
			return s, "sendgrid"
		}
		logger.Warn("EMAIL_PROVIDER=sendgrid but SENDGRID_API_KEY is not set; email disabled")
	case "ses":
		if s := ses(); s != nil {
			return s, "ses"
		}
		logger.Warn("EMAIL_PROVIDER=ses but AWS config is unavailable; email disabled")
	default:
		if s := sendgrid(); s != nil {
			return s, "sendgrid"
		}
		logger.Warn("email notifications disabled (SENDGRID_API_KEY not set)")
	}
	return notify.NewStubEmailSender(logger), "stub"
}

// BuildWhatsAppSender returns the Twilio sender, or nil when credentials are missing.
func BuildWhatsAppSender(cfg *appconfig.Config, logger *logging.Logger) notify.WhatsAppSender {
	if !cfg.HasTwilio() {
		if logger != nil {
			logger.Warn("whatsapp notifications disabled (twilio credentials not set)")
		}
		return nil
	}
	return notify.NewTwilioWhatsApp(notify.TwilioConfig{
		AccountSID:  cfg.TwilioAccountSID,
		AuthToken:   cfg.TwilioAuthToken,
		PhoneNumber: cfg.TwilioPhoneNumber,
	}, logger)
}

// BuildDispatcher wires the in-process notification fan-out.
func BuildDispatcher(cfg *appconfig.Config, awsCfg *aws.Config, m *metrics.NotifyMetrics, logger *logging.Logger) *notify.Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	email, provider := BuildEmailSender(cfg, awsCfg, logger)
	whatsapp := BuildWhatsAppSender(cfg, logger)
	logger.Info("notification dispatcher initialized",
		"email_provider", provider,
		"whatsapp", whatsapp != nil,
		"admin_alerts", strings.TrimSpace(cfg.AdminEmail) != "",
	)
	return notify.NewDispatcher(email, whatsapp, notify.DispatcherConfig{AdminEmail: cfg.AdminEmail}, m, logger)
}

// BuildNotifier chooses where lifecycle events are delivered: a remote
// notification endpoint when NOTIFY_URL is set, the local dispatcher otherwise.
func BuildNotifier(cfg *appconfig.Config, local *notify.Dispatcher, logger *logging.Logger) lifecycle.Notifier {
	if remote := notify.NewRemoteDispatcher(cfg.NotifyURL, cfg.NotifySecret, remoteNotifyTimeout); remote != nil {
		if logger != nil {
			logger.Info("notifications forwarded to remote endpoint", "url", cfg.NotifyURL)
		}
		return remote
	}
	if local == nil {
		return nil
	}
	return local
}
