// Package events publishes build lifecycle events to NATS when the project
// configuration names a server. Publishing is best-effort: a slow or absent
// broker never blocks or fails a build.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// BuildEvent is the payload published per build outcome.
type BuildEvent struct {
	BuildID   string    `json:"build_id"`
	Status    string    `json:"status"` // "success" or "error"
	Hash      string    `json:"hash,omitempty"`
	Error     string    `json:"error,omitempty"`
	Title     string    `json:"title,omitempty"`
	Duration  int64     `json:"duration_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher sends build events to a NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to the NATS server at url.
func NewPublisher(url, subject string) (*Publisher, error) {
	if url == "" {
		return nil, fmt.Errorf("events: server URL is required")
	}
	if subject == "" {
		subject = "loom.builds"
	}
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("events: connect to NATS: %w", err)
	}
	slog.Info("build event publishing enabled", "url", url, "subject", subject)
	return &Publisher{conn: conn, subject: subject}, nil
}

// Publish sends one build event. Errors are logged, not returned: event
// delivery must never affect the build loop.
func (p *Publisher) Publish(ev BuildEvent) {
	if p == nil || p.conn == nil {
		return
	}
	ev.Timestamp = time.Now()
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("encode build event", "error", err)
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		slog.Warn("publish build event", "error", err)
		return
	}
	slog.Debug("published build event", "build_id", ev.BuildID, "status", ev.Status)
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}
