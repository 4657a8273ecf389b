// Package event publishes project and notification change events to
// in-process subscribers and, optionally, an external sink.
package event

import (
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog"

	"github.com/nhle/dev-tracker/internal/model"
)

// Sink receives every published event for delivery outside the process.
type Sink interface {
	Publish(ev model.ChangeEvent) error
}

// subscriber wraps a per-subscriber channel. The mutex serializes sends
// against close so an unsubscribe during publish cannot panic.
type subscriber struct {
	ch     chan model.ChangeEvent
	mu     sync.Mutex
	closed bool
}

// trySend delivers without blocking. A full subscriber drops the event:
// events are refetch hints, and a slow consumer reconciles by reading
// authoritative state, not by replaying a backlog.
func (s *subscriber) trySend(ev model.ChangeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Notifier fans change events out to subscribers. Safe for concurrent use.
type Notifier struct {
	nextID      atomic.Uint64
	subscribers *xsync.Map[uint64, *subscriber]
	sink        Sink
	logger      zerolog.Logger
}

// NewNotifier creates a notifier. sink may be nil.
func NewNotifier(sink Sink, logger zerolog.Logger) *Notifier {
	return &Notifier{
		subscribers: xsync.NewMap[uint64, *subscriber](),
		sink:        sink,
		logger:      logger.With().Str("component", "event").Logger(),
	}
}

// Subscribe registers a new subscriber with the given channel buffer and
// returns its channel plus an unsubscribe function that closes it.
func (n *Notifier) Subscribe(buffer int) (<-chan model.ChangeEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	id := n.nextID.Add(1)
	sub := &subscriber{ch: make(chan model.ChangeEvent, buffer)}
	n.subscribers.Store(id, sub)

	unsubscribe := func() {
		if sub, ok := n.subscribers.LoadAndDelete(id); ok {
			sub.close()
		}
	}
	return sub.ch, unsubscribe
}

// Publish delivers the event to every subscriber and the external sink.
// It never blocks on a slow subscriber.
func (n *Notifier) Publish(ev model.ChangeEvent) {
	n.subscribers.Range(func(id uint64, sub *subscriber) bool {
		if !sub.trySend(ev) {
			n.logger.Debug().
				Uint64("subscriber", id).
				Str("topic", ev.Topic).
				Msg("subscriber buffer full, event dropped")
		}
		return true
	})

	if n.sink != nil {
		if err := n.sink.Publish(ev); err != nil {
			n.logger.Warn().Err(err).Str("topic", ev.Topic).Msg("sink publish failed")
		}
	}
}

// Close unsubscribes everyone, closing their channels.
func (n *Notifier) Close() {
	n.subscribers.Range(func(id uint64, _ *subscriber) bool {
		if sub, ok := n.subscribers.LoadAndDelete(id); ok {
			sub.close()
		}
		return true
	})
}
