// Package service holds the outbound collaborators of the handlers.  The
// publisher sends audit events to RabbitMQ.  Publishing is best-effort:
// errors are logged and returned so callers can ignore them without
// interrupting the request flow.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/finapp/internal/queue"
)

// EventPublisher is what handlers depend on.
type EventPublisher interface {
	Publish(ctx context.Context, ev q.AuditEvent) error
}

// NopPublisher drops every event.  It is used when EVENTS_ENABLED is off.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, q.AuditEvent) error { return nil }

// AMQPPublisher publishes events to the finapp.events topic exchange.  It
// opens a connection per publish, which is acceptable for the low volume
// of audit writes.
type AMQPPublisher struct {
	url         string
	log         *slog.Logger
	now         func() time.Time
	dialTimeout time.Duration
}

// DefaultDialTimeout bounds how long a publish waits for the broker.
const DefaultDialTimeout = 2 * time.Second

func NewAMQPPublisher(url string, log *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, log: log, now: time.Now, dialTimeout: DefaultDialTimeout}
}

// Publish marks messages persistent and stamps OccurredAt when unset.
func (p *AMQPPublisher) Publish(ctx context.Context, ev q.AuditEvent) error {
	if ev.OccurredAt == "" {
		ev.OccurredAt = p.now().UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.ErrorContext(ctx, "rabbitmq: marshal event failed", "type", ev.Type, "err", err)
		return err
	}

	timeout := p.dialTimeout
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}
	if timeout <= 0 {
		return ctx.Err()
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		p.log.WarnContext(ctx, "rabbitmq: dial failed", "err", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WarnContext(ctx, "rabbitmq: channel open failed", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := q.DeclareTopology(ch); err != nil {
		p.log.WarnContext(ctx, "rabbitmq: declare failed", "err", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    p.now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, q.ExchangeName, ev.Type, false, false, pub); err != nil {
		p.log.WarnContext(ctx, "rabbitmq: publish failed", "type", ev.Type, "err", err)
		return err
	}
	return nil
}

// Recorder keeps published events in memory.  Tests use it to assert on
// what a handler emitted.
type Recorder struct {
	Events []q.AuditEvent
}

func (r *Recorder) Publish(_ context.Context, ev q.AuditEvent) error {
	r.Events = append(r.Events, ev)
	return nil
}
