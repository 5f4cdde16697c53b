// Package live fans bus messages out to connected SSE viewers. The Hub is
// the sole owner of the live-connection set: registration, removal on
// delivery failure, and the bridge loop that consumes the event bus all
// go through it.
package live

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fleetops/eldstream/internal/bus"
)

// Subscriber is one live viewer connection. Ephemeral: created on
// connect, closed on disconnect or delivery failure, never reused. A
// reconnecting client is a brand-new Subscriber.
type Subscriber struct {
	id   string
	ch   chan []byte
	done chan struct{}
	once sync.Once
}

// NewSubscriber returns a Subscriber buffering up to buffer undelivered
// messages.
func NewSubscriber(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 64
	}
	return &Subscriber{
		id:   uuid.NewString(),
		ch:   make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// ID returns the subscriber's connection id.
func (s *Subscriber) ID() string { return s.id }

// Messages returns the subscriber's delivery stream.
func (s *Subscriber) Messages() <-chan []byte { return s.ch }

// Done is closed when the hub removes the subscriber.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// Options tunes hub delivery.
type Options struct {
	// SendTimeout bounds how long one delivery may wait on a full
	// subscriber buffer before the subscriber is dropped.
	SendTimeout time.Duration
}

// Hub tracks live subscribers and broadcasts each message to all of them.
// Register, Unregister, and Broadcast are safe to call concurrently; a
// fan-out pass iterates a snapshot, so membership changes during a pass
// never corrupt it.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*Subscriber

	sendTimeout time.Duration
	log         zerolog.Logger
}

// NewHub returns an empty hub.
func NewHub(logger zerolog.Logger, opts Options) *Hub {
	timeout := opts.SendTimeout
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	return &Hub{
		subs:        make(map[string]*Subscriber),
		sendTimeout: timeout,
		log:         logger.With().Str("component", "live").Logger(),
	}
}

// Register adds the subscriber to the live set. Registering one that is
// already present is a no-op.
func (h *Hub) Register(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.id]; ok {
		return
	}
	h.subs[sub.id] = sub
	h.log.Debug().Str("subscriber", sub.id).Int("live", len(h.subs)).Msg("subscriber registered")
}

// Unregister removes the subscriber and closes its stream. Unregistering
// one that is absent is a no-op.
func (h *Hub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	_, ok := h.subs[sub.id]
	if ok {
		delete(h.subs, sub.id)
	}
	remaining := len(h.subs)
	h.mu.Unlock()

	if ok {
		sub.close()
		h.log.Debug().Str("subscriber", sub.id).Int("live", remaining).Msg("subscriber removed")
	}
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast delivers msg to every currently-registered subscriber. Each
// delivery is attempted independently: a dead or stalled subscriber is
// marked and removed after the pass, and never blocks delivery to the
// rest or the caller beyond the send timeout.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	snapshot := make([]*Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		snapshot = append(snapshot, sub)
	}
	h.mu.RUnlock()

	var failed []*Subscriber
	timer := time.NewTimer(h.sendTimeout)
	defer timer.Stop()
	for _, sub := range snapshot {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(h.sendTimeout)
		select {
		case <-sub.done:
			failed = append(failed, sub)
		case sub.ch <- msg:
		case <-timer.C:
			failed = append(failed, sub)
		}
	}
	for _, sub := range failed {
		h.Unregister(sub)
		h.log.Warn().Str("subscriber", sub.id).Msg("dropped unresponsive subscriber")
	}
}

// Run is the bridge loop between the event bus and the hub: it consumes
// the subscription stream and broadcasts each message, until the context
// is cancelled or the stream ends. Start it once at process init.
func (h *Hub) Run(ctx context.Context, sub *bus.Subscription) {
	defer sub.Close()
	h.log.Info().Msg("live bridge started")
	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("live bridge stopped: context cancelled")
			return
		case <-sub.Done():
			h.log.Info().Msg("live bridge stopped: bus closed")
			return
		case msg := <-sub.C():
			h.Broadcast(msg)
		}
	}
}

// Shutdown removes and closes every subscriber.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = make(map[string]*Subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
