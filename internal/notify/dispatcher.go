// Package notify fans a submission event out to email and WhatsApp. Each
// channel is attempted independently; a failed channel is logged, counted and
// reported as null without affecting the others or the overall result.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/easygopharm/internal/models"
	"github.com/wolfman30/easygopharm/internal/observability/metrics"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

var dispatchTracer = otel.Tracer("easygopharm.internal.notify.dispatcher")

// EventType names the kind of submission being announced.
type EventType string

const (
	EventDrugRequest  EventType = "DRUG_REQUEST"
	EventConsultation EventType = "CONSULTATION"
)

const (
	channelEmailUser  = "email_user"
	channelEmailAdmin = "email_admin"
	channelWhatsApp   = "whatsapp"
)

var (
	// ErrMissingData is returned when the event carries no data object.
	ErrMissingData = errors.New("notify: data payload required")
	// ErrInvalidPayload is returned when the data object cannot be decoded.
	ErrInvalidPayload = errors.New("notify: invalid data payload")
)

// Event is the notification request body.
type Event struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Details reports each channel's receipt, or nil when skipped or failed.
type Details struct {
	EmailUser  *Receipt `json:"emailUser"`
	EmailAdmin *Receipt `json:"emailAdmin"`
	WhatsApp   *Receipt `json:"whatsapp"`
}

// NewDrugRequestEvent wraps a persisted request.
func NewDrugRequestEvent(req models.DrugRequest) (Event, error) {
	return newEvent(EventDrugRequest, req)
}

// NewConsultationEvent wraps a persisted consultation.
func NewConsultationEvent(c models.Consultation) (Event, error) {
	return newEvent(EventConsultation, c)
}

func newEvent(t EventType, v any) (Event, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Event{}, fmt.Errorf("notify: encode event: %w", err)
	}
	return Event{Type: t, Data: data}, nil
}

// requestData and consultationData accept both persisted records and
// hand-written payloads, so dates stay raw until formatting.
type requestData struct {
	ID            string `json:"id"`
	GenericName   string `json:"genericName"`
	RequesterName string `json:"requesterName"`
	ContactEmail  string `json:"contactEmail"`
	ContactPhone  string `json:"contactPhone"`
	Urgency       string `json:"urgency"`
}

type consultationData struct {
	ID            string `json:"id"`
	PatientName   string `json:"patientName"`
	ContactEmail  string `json:"contactEmail"`
	ContactPhone  string `json:"contactPhone"`
	PreferredDate string `json:"preferredDate"`
}

// DispatcherConfig configures addresses and date rendering.
type DispatcherConfig struct {
	// AdminEmail receives internal alerts. Empty skips the alert.
	AdminEmail string
	// Location renders appointment times. Defaults to UTC.
	Location *time.Location
}

// Dispatcher sends the notifications for one event.
type Dispatcher struct {
	email    EmailSender
	whatsapp WhatsAppSender
	cfg      DispatcherConfig
	metrics  *metrics.NotifyMetrics
	logger   *logging.Logger
}

// NewDispatcher builds a dispatcher. Nil senders disable their channel.
func NewDispatcher(email EmailSender, whatsapp WhatsAppSender, cfg DispatcherConfig, m *metrics.NotifyMetrics, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	cfg.AdminEmail = strings.TrimSpace(cfg.AdminEmail)
	return &Dispatcher{
		email:    email,
		whatsapp: whatsapp,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// Dispatch runs every applicable channel for evt. Channel failures never
// produce an error; only a missing or undecodable payload does. Unknown event
// types yield empty details.
func (d *Dispatcher) Dispatch(ctx context.Context, evt Event) (Details, error) {
	trimmed := bytes.TrimSpace(evt.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Details{}, ErrMissingData
	}

	ctx, span := dispatchTracer.Start(ctx, "notify.dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("easygopharm.event_type", string(evt.Type)))

	start := time.Now()
	defer func() {
		d.metrics.ObserveDispatchLatency(string(evt.Type), time.Since(start).Seconds())
	}()

	switch evt.Type {
	case EventDrugRequest:
		var data requestData
		if err := json.Unmarshal(trimmed, &data); err != nil {
			return Details{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return d.drugRequest(ctx, data), nil
	case EventConsultation:
		var data consultationData
		if err := json.Unmarshal(trimmed, &data); err != nil {
			return Details{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return d.consultation(ctx, data), nil
	default:
		d.logger.Warn("notify: unknown event type", "type", evt.Type)
		return Details{}, nil
	}
}

func (d *Dispatcher) drugRequest(ctx context.Context, data requestData) Details {
	var emailUser, emailAdmin, whatsapp Task[*Receipt]

	if d.email != nil && data.ContactEmail != "" {
		emailUser = func(ctx context.Context) (*Receipt, error) {
			return d.email.Send(ctx, EmailMessage{
				To:       data.ContactEmail,
				ToName:   data.RequesterName,
				FromName: "EasygoPharm",
				Subject:  "Request Received: " + data.GenericName,
				HTML: fmt.Sprintf("<h3>Submission Confirmed</h3><p>Hello %s, we have received your sourcing request for <b>%s</b>. Our team is currently reviewing global inventory.</p>",
					html.EscapeString(data.RequesterName), html.EscapeString(data.GenericName)),
			})
		}
	}
	if d.email != nil && d.cfg.AdminEmail != "" {
		emailAdmin = func(ctx context.Context) (*Receipt, error) {
			return d.email.Send(ctx, EmailMessage{
				To:       d.cfg.AdminEmail,
				FromName: "EasygoPharm System",
				Subject:  fmt.Sprintf("[URGENT: %s] New Sourcing Request", data.Urgency),
				Body: fmt.Sprintf("New request from %s. Drug: %s. Contact: %s",
					data.RequesterName, data.GenericName, data.ContactEmail),
			})
		}
	}
	if phone := NormalizePhone(data.ContactPhone); d.whatsapp != nil && data.ContactPhone != "" && hasDigits(phone) {
		whatsapp = func(ctx context.Context) (*Receipt, error) {
			return d.whatsapp.SendWhatsApp(ctx, phone, fmt.Sprintf(
				"EasygoPharm: Your request for %s is now in our tracking pipeline. Sourcing ID: %s",
				data.GenericName, SourcingID(data.ID)))
		}
	}

	out := SettleAll(ctx, emailUser, emailAdmin, whatsapp)
	return Details{
		EmailUser:  d.settle(EventDrugRequest, channelEmailUser, emailUser != nil, out[0]),
		EmailAdmin: d.settle(EventDrugRequest, channelEmailAdmin, emailAdmin != nil, out[1]),
		WhatsApp:   d.settle(EventDrugRequest, channelWhatsApp, whatsapp != nil, out[2]),
	}
}

func (d *Dispatcher) consultation(ctx context.Context, data consultationData) Details {
	var emailUser, whatsapp Task[*Receipt]
	date, clock, full := d.formatAppointment(data.PreferredDate)

	if d.email != nil && data.ContactEmail != "" {
		emailUser = func(ctx context.Context) (*Receipt, error) {
			return d.email.Send(ctx, EmailMessage{
				To:       data.ContactEmail,
				ToName:   data.PatientName,
				FromName: "EasygoPharm Support",
				Subject:  "Appointment Confirmed: EasygoPharm Triage",
				HTML: fmt.Sprintf("<p>Hello %s, your consultation is confirmed for %s. A specialist will contact you via WhatsApp at the scheduled time.</p>",
					html.EscapeString(data.PatientName), html.EscapeString(full)),
			})
		}
	}
	if phone := NormalizePhone(data.ContactPhone); d.whatsapp != nil && data.ContactPhone != "" && hasDigits(phone) {
		whatsapp = func(ctx context.Context) (*Receipt, error) {
			return d.whatsapp.SendWhatsApp(ctx, phone, fmt.Sprintf(
				"EasygoPharm: Your medical consultation is confirmed for %s at %s.", date, clock))
		}
	}

	out := SettleAll(ctx, emailUser, whatsapp)
	return Details{
		EmailUser: d.settle(EventConsultation, channelEmailUser, emailUser != nil, out[0]),
		WhatsApp:  d.settle(EventConsultation, channelWhatsApp, whatsapp != nil, out[1]),
	}
}

func (d *Dispatcher) settle(evt EventType, channel string, attempted bool, o Outcome[*Receipt]) *Receipt {
	switch {
	case !attempted || (o.Err == nil && o.Value == nil):
		d.metrics.ObserveChannel(string(evt), channel, "skipped")
		return nil
	case o.Err != nil:
		d.logger.Warn("notify: channel failed", "event_type", evt, "channel", channel, "error", o.Err)
		d.metrics.ObserveChannel(string(evt), channel, "failed")
		return nil
	default:
		d.metrics.ObserveChannel(string(evt), channel, "sent")
		return o.Value
	}
}

// formatAppointment renders the date, the time and both together. An
// unparseable value is echoed unchanged.
func (d *Dispatcher) formatAppointment(raw string) (date, clock, full string) {
	t, ok := models.ParsePreferredDate(raw)
	if !ok {
		return raw, raw, raw
	}
	t = t.In(d.cfg.Location)
	date = t.Format("Monday, 2 January 2006")
	clock = t.Format("3:04 PM MST")
	return date, clock, date + " at " + clock
}

// SourcingID is the short reference quoted to requesters: the last six
// characters of the request id.
func SourcingID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}
