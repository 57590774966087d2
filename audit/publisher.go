// Package audit publishes validation decision events over NATS so
// operators can trace which outbound requests were refused and why.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/c360studio/webguard/metrics"
)

// Event is one validation decision.
type Event struct {
	ID      string    `json:"id"`
	URL     string    `json:"url"`
	Host    string    `json:"host,omitempty"`
	Verdict string    `json:"verdict"`
	Reason  string    `json:"reason"`
	Detail  string    `json:"detail,omitempty"`
	Time    time.Time `json:"time"`
}

// NewEvent builds a decision event from a validation outcome. A nil
// error is an allowed verdict; anything else is blocked.
func NewEvent(rawURL, host string, err error) Event {
	event := Event{
		ID:      uuid.NewString(),
		URL:     rawURL,
		Host:    host,
		Verdict: "allowed",
		Reason:  metrics.Reason(err),
		Time:    time.Now().UTC(),
	}
	if err != nil {
		event.Verdict = "blocked"
		event.Detail = err.Error()
	}
	return event
}

// Publisher publishes decision events to a NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to NATS and returns a publisher for the given
// subject.
func NewPublisher(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("webguard-audit"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Publisher{conn: conn, subject: subject}, nil
}

// Publish sends one decision event. Publishing is fire-and-forget;
// callers treat failures as log-worthy, never as validation failures.
func (p *Publisher) Publish(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}

// Close flushes and closes the NATS connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
