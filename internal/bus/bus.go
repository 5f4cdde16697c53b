// Package bus is the single-topic in-process broadcast channel between
// the ingest pipeline and the live fan-out. It is live-only: messages
// published before a subscription opens are never replayed; history goes
// through the store instead.
package bus

import (
	"errors"
	"sync"

	"github.com/fleetops/eldstream/internal/fault"
)

// Topic is the one topic the bus carries: raw device event payloads.
const Topic = "eld.events"

// ErrClosed is returned (wrapped in a fault.DeliveryError) by Publish
// after Close.
var ErrClosed = errors.New("bus closed")

// Bus broadcasts each published message to every open subscription, in
// publish order per producer.
type Bus struct {
	mu     sync.Mutex
	subs   []*Subscription
	buffer int
	closed bool
}

// Subscription is one ordered, live-only message stream. The consumer
// reads C until it or the bus is closed; Done is closed at that point.
type Subscription struct {
	ch   chan []byte
	done chan struct{}
	bus  *Bus
	once sync.Once
}

// C returns the subscription's message stream.
func (s *Subscription) C() <-chan []byte { return s.ch }

// Done is closed when the subscription or the bus shuts down.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close ends the subscription. Idempotent. Messages still buffered in C
// may be read until drained; no further messages arrive.
func (s *Subscription) Close() {
	s.once.Do(func() { close(s.done) })
	s.bus.remove(s)
}

// New returns a Bus whose subscriptions buffer up to buffer messages
// between publisher and consumer.
func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	return &Bus{buffer: buffer}
}

// Subscribe opens a new stream receiving every message published from now
// on. Nothing published earlier is replayed.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		ch:   make(chan []byte, b.buffer),
		done: make(chan struct{}),
		bus:  b,
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.once.Do(func() { close(sub.done) })
		return sub
	}
	b.subs = append(b.subs, sub)
	return sub
}

// Publish delivers msg to every open subscription in order. The send
// blocks if a subscription's buffer is full, so the stream is never
// silently truncated; a subscription that closes mid-send is skipped.
// Publishing on a closed bus returns a fault.DeliveryError.
func (b *Bus) Publish(msg []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return &fault.DeliveryError{Stage: "publish", Err: ErrClosed}
	}
	subs := make([]*Subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		select {
		case <-sub.done:
		case sub.ch <- msg:
		}
	}
	return nil
}

// Close shuts the bus down and ends every subscription. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		sub.once.Do(func() { close(sub.done) })
	}
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}
