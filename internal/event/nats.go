package event

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/nhle/dev-tracker/internal/model"
)

// NATSSink publishes change events to NATS subjects named
// "<prefix>.<topic>", e.g. "devtracker.events.project_updated".
// Out-of-process consumers get the same full-record payloads as in-process
// subscribers.
type NATSSink struct {
	conn   *nats.Conn
	prefix string
	logger zerolog.Logger
}

// Compile-time assertion that NATSSink implements Sink.
var _ Sink = (*NATSSink)(nil)

// NewNATSSink connects to the NATS server at url.
func NewNATSSink(url, prefix string, logger zerolog.Logger) (*NATSSink, error) {
	conn, err := nats.Connect(url,
		nats.Name("devtracker-events"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSink{
		conn:   conn,
		prefix: prefix,
		logger: logger.With().Str("component", "nats").Logger(),
	}, nil
}

// Publish marshals the event and publishes it to its topic subject.
func (s *NATSSink) Publish(ev model.ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	subject := s.prefix + "." + ev.Topic
	if err := s.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (s *NATSSink) Close() {
	if err := s.conn.Drain(); err != nil {
		s.logger.Warn().Err(err).Msg("draining NATS connection")
	}
}
