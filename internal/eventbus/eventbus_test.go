package eventbus

import (
	"testing"
	"time"

	"github.com/acasal/alertd/core/events"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	defer b.Close()
	sub := b.Subscribe()

	b.Publish(events.AlertPending{AlertID: 7, Category: "fire"})

	select {
	case ev := <-sub:
		p, ok := ev.(events.AlertPending)
		if !ok {
			t.Fatalf("unexpected event type %T", ev)
		}
		if p.AlertID != 7 {
			t.Errorf("alert id: got %d, want 7", p.AlertID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := New()
	defer b.Close()
	sub := b.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(events.AlertResolved{AlertID: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	// Buffer holds at most 16; the rest were dropped, not queued.
	n := 0
	for {
		select {
		case <-sub:
			n++
		default:
			if n == 0 || n > 16 {
				t.Errorf("received %d events, want 1..16", n)
			}
			return
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	defer b.Close()
	sub := b.Subscribe()
	b.Unsubscribe(sub)
	if _, ok := <-sub; ok {
		t.Error("expected closed channel after unsubscribe")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	b.Close()
	b.Close()
	if _, ok := <-sub; ok {
		t.Error("expected closed channel after bus close")
	}
	// Publishing after close must not panic.
	b.Publish(events.AlertReceived{SourceID: "x"})
}
