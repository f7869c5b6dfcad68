// Package events publishes appointment lifecycle events to Kafka so
// downstream consumers (reminders, analytics) can react without coupling to
// the booking path.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Event types published on the appointment topic.
const (
	TypeBooked        = "appointment.booked"
	TypeRescheduled   = "appointment.rescheduled"
	TypeCancelled     = "appointment.cancelled"
	TypeStatusChanged = "appointment.status_changed"
)

// AppointmentEvent is the message payload. The appointment id is also used
// as the partition key so events for one appointment stay ordered.
type AppointmentEvent struct {
	Type          string    `json:"type"`
	AppointmentID string    `json:"appointment_id"`
	UserID        string    `json:"user_id"`
	FacilityID    string    `json:"facility_id"`
	Date          string    `json:"date"`
	SlotStart     string    `json:"slot_start"`
	SlotEnd       string    `json:"slot_end"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher emits appointment events. The zero-value-like NoopPublisher is
// used when no broker is configured.
type Publisher interface {
	Publish(ctx context.Context, evt AppointmentEvent)
	Close() error
}

const publishTimeout = 5 * time.Second

// messageWriter is the slice of kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic. Publish is best-effort and
// asynchronous: the write runs in its own goroutine with its own deadline so
// a slow broker never delays the booking path, and failures are logged, never
// returned. Close drains in-flight writes.
type KafkaPublisher struct {
	writer messageWriter
	log    zerolog.Logger
	wg     sync.WaitGroup
}

// NewKafkaPublisher creates a publisher for the given broker and topic.
func NewKafkaPublisher(broker, topic string, log zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
		log: log,
	}
}

func (p *KafkaPublisher) Publish(_ context.Context, evt AppointmentEvent) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	value, err := json.Marshal(evt)
	if err != nil {
		p.log.Error().Err(err).Str("type", evt.Type).Msg("marshal event")
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		// The request context may be cancelled as soon as the response is
		// written; the write gets its own deadline instead.
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		err := p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(evt.AppointmentID),
			Value: value,
		})
		if err != nil {
			p.log.Error().Err(err).
				Str("type", evt.Type).
				Str("appointment_id", evt.AppointmentID).
				Msg("publish event")
		}
	}()
}

// Close waits for in-flight writes before closing the writer.
func (p *KafkaPublisher) Close() error {
	p.wg.Wait()
	return p.writer.Close()
}

// NoopPublisher drops all events. Used when KAFKA_BROKER is unset.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, AppointmentEvent) {}
func (NoopPublisher) Close() error                              { return nil }
