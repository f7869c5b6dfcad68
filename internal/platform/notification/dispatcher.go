package notification

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event carries the details needed to render an appointment email.
type Event struct {
	To           string
	FacilityName string
	Date         string
	Start        string
	End          string
	Reason       string
	Status       string
}

func (e Event) data() map[string]string {
	return map[string]string{
		"facility_name": e.FacilityName,
		"date":          e.Date,
		"start":         e.Start,
		"end":           e.End,
		"reason":        e.Reason,
		"status":        e.Status,
	}
}

// Dispatcher sends appointment emails asynchronously. Failures are logged and
// never propagated to the caller.
type Dispatcher struct {
	sender    EmailSender
	templates *TemplateEngine
	log       zerolog.Logger
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher. A nil sender disables delivery.
func NewDispatcher(sender EmailSender, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:    sender,
		templates: NewTemplateEngine(),
		log:       log,
		timeout:   15 * time.Second,
	}
}

// Booked sends the booking confirmation email.
func (d *Dispatcher) Booked(e Event) { d.dispatch(TemplateBooked, e) }

// Rescheduled sends the reschedule email.
func (d *Dispatcher) Rescheduled(e Event) { d.dispatch(TemplateRescheduled, e) }

// Cancelled sends the cancellation email.
func (d *Dispatcher) Cancelled(e Event) { d.dispatch(TemplateCancelled, e) }

// StatusChanged sends the status update email.
func (d *Dispatcher) StatusChanged(e Event) { d.dispatch(TemplateStatusChanged, e) }

func (d *Dispatcher) dispatch(templateID string, e Event) {
	if d.sender == nil || e.To == "" {
		return
	}

	subject, body, err := d.templates.Render(templateID, e.data())
	if err != nil {
		d.log.Error().Err(err).Str("template", templateID).Msg("render notification")
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sender.SendEmail(ctx, e.To, subject, body); err != nil {
			d.log.Error().Err(err).
				Str("template", templateID).
				Str("recipient", e.To).
				Msg("send notification")
		}
	}()
}

// Wait blocks until all in-flight sends have completed. Used on shutdown and
// in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
