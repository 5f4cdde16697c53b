package live

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetops/eldstream/internal/bus"
)

func newTestHub() *Hub {
	return NewHub(zerolog.Nop(), Options{SendTimeout: 50 * time.Millisecond})
}

func recvOrFail(t *testing.T, sub *Subscriber, want string) {
	t.Helper()
	select {
	case got := <-sub.Messages():
		if string(got) != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	h := newTestHub()
	sub := NewSubscriber(4)
	h.Register(sub)
	h.Register(sub)
	if got := h.Len(); got != 1 {
		t.Fatalf("len = %d after duplicate register, want 1", got)
	}
}

func TestUnregisterAbsentIsNoOp(t *testing.T) {
	h := newTestHub()
	registered := NewSubscriber(4)
	h.Register(registered)

	h.Unregister(NewSubscriber(4)) // never registered
	if got := h.Len(); got != 1 {
		t.Fatalf("len = %d, want 1", got)
	}

	h.Unregister(registered)
	h.Unregister(registered) // second removal is a no-op
	if got := h.Len(); got != 0 {
		t.Fatalf("len = %d after unregister, want 0", got)
	}
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	h := newTestHub()
	first := NewSubscriber(4)
	second := NewSubscriber(4)
	h.Register(first)
	h.Register(second)

	h.Broadcast([]byte("status-change"))
	recvOrFail(t, first, "status-change")
	recvOrFail(t, second, "status-change")
}

func TestStalledSubscriberIsIsolatedAndRemoved(t *testing.T) {
	h := newTestHub()
	stalled := NewSubscriber(1)
	healthy := NewSubscriber(4)
	h.Register(stalled)
	h.Register(healthy)

	// Fill the stalled subscriber's buffer; it never drains.
	h.Broadcast([]byte("one"))
	recvOrFail(t, healthy, "one")

	// Second pass: the stalled send times out, the healthy subscriber
	// still receives, and the stalled one is dropped afterwards.
	h.Broadcast([]byte("two"))
	recvOrFail(t, healthy, "two")

	if got := h.Len(); got != 1 {
		t.Fatalf("len = %d after stalled subscriber drop, want 1", got)
	}
	select {
	case <-stalled.Done():
	case <-time.After(time.Second):
		t.Fatal("stalled subscriber was not closed")
	}

	// The healthy subscriber keeps receiving subsequent messages.
	h.Broadcast([]byte("three"))
	recvOrFail(t, healthy, "three")
}

func TestClosedSubscriberDoesNotBlockOthers(t *testing.T) {
	h := newTestHub()
	dead := NewSubscriber(4)
	alive := NewSubscriber(4)
	h.Register(dead)
	h.Register(alive)
	h.Unregister(dead)

	h.Broadcast([]byte("after-disconnect"))
	recvOrFail(t, alive, "after-disconnect")
	if got := h.Len(); got != 1 {
		t.Fatalf("len = %d, want 1", got)
	}
}

func TestRunBridgesBusToSubscribers(t *testing.T) {
	h := newTestHub()
	sub := NewSubscriber(4)
	h.Register(sub)

	b := bus.New(16)
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	busSub := b.Subscribe()
	bridgeDone := make(chan struct{})
	go func() {
		h.Run(ctx, busSub)
		close(bridgeDone)
	}()

	if err := b.Publish([]byte("via-bus")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	recvOrFail(t, sub, "via-bus")

	cancel()
	select {
	case <-bridgeDone:
	case <-time.After(time.Second):
		t.Fatal("bridge loop did not stop on context cancel")
	}
}

func TestRunStopsWhenBusCloses(t *testing.T) {
	h := newTestHub()
	b := bus.New(16)

	bridgeDone := make(chan struct{})
	go func() {
		h.Run(context.Background(), b.Subscribe())
		close(bridgeDone)
	}()

	b.Close()
	select {
	case <-bridgeDone:
	case <-time.After(time.Second):
		t.Fatal("bridge loop did not stop on bus close")
	}
}

func TestShutdownClosesAllSubscribers(t *testing.T) {
	h := newTestHub()
	first := NewSubscriber(4)
	second := NewSubscriber(4)
	h.Register(first)
	h.Register(second)

	h.Shutdown()
	if got := h.Len(); got != 0 {
		t.Fatalf("len = %d after shutdown, want 0", got)
	}
	for _, sub := range []*Subscriber{first, second} {
		select {
		case <-sub.Done():
		case <-time.After(time.Second):
			t.Fatal("subscriber not closed by shutdown")
		}
	}
}
