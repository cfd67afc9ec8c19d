// Package events publishes domain events to NATS, degrading to a no-op
// publisher when NATS is not configured or unreachable.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/JaimeStill/rancoqc/pkg/lifecycle"
)

// Envelope wraps every published payload.
type Envelope struct {
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// Publisher sends events on subjects relative to the configured prefix.
type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Start(lc *lifecycle.Coordinator) error
	Ready() bool
}

type noop struct{}

// Noop returns a Publisher that discards every event.
func Noop() Publisher {
	return noop{}
}

func (noop) Publish(context.Context, string, any) error { return nil }
func (noop) Start(*lifecycle.Coordinator) error         { return nil }
func (noop) Ready() bool                                { return true }

type publisher struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// New connects to NATS when cfg.URL is set. Connection failures are logged
// and yield the no-op publisher so the service keeps running without events.
func New(cfg *Config, logger *slog.Logger) Publisher {
	logger = logger.With("system", "events")

	if !cfg.Enabled() {
		logger.Info("event publishing disabled")
		return Noop()
	}

	conn, err := nats.Connect(
		cfg.URL,
		nats.Name(cfg.ClientName),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		logger.Warn("nats connect failed, using noop publisher", "error", err)
		return Noop()
	}

	return &publisher{
		conn:   conn,
		prefix: cfg.SubjectPrefix,
		logger: logger,
	}
}

func (p *publisher) Publish(ctx context.Context, subject string, data any) error {
	full := p.prefix + "." + subject

	payload, err := json.Marshal(Envelope{
		Subject:    full,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", full, err)
	}

	if err := p.conn.Publish(full, payload); err != nil {
		return fmt.Errorf("publish event %s: %w", full, err)
	}

	p.logger.DebugContext(ctx, "event published", "subject", full)
	return nil
}

func (p *publisher) Ready() bool {
	return p.conn.IsConnected()
}

func (p *publisher) Start(lc *lifecycle.Coordinator) error {
	lc.Track("events", p)
	lc.OnShutdown("events", func(context.Context) error {
		p.logger.Info("draining nats connection")
		return p.conn.Drain()
	})
	return nil
}
