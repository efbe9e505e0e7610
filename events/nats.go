package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix is the base subject for engine events. The event type is
// appended, e.g. "threadflow.events.thread.created".
const SubjectPrefix = "threadflow.events"

// NATSPublisher publishes engine events to NATS subjects.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSPublisher wraps an existing NATS connection. A custom prefix may be
// supplied; empty uses SubjectPrefix.
func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = SubjectPrefix
	}
	return &NATSPublisher{nc: nc, prefix: prefix}
}

// Publish sends the event as JSON. A nil connection is a silent no-op so the
// engine keeps working when no event sink is configured.
func (p *NATSPublisher) Publish(_ context.Context, ev Event) error {
	if p == nil || p.nc == nil {
		return nil
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.prefix, ev.Type)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish event %s: %w", ev.Type, err)
	}

	return nil
}
