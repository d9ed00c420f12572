package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesPublishedEvents(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()
	defer sub.Close()

	b.Publish(Event{Type: Added, Kind: "Pod", Object: "p1"})

	select {
	case ev := <-sub.Events():
		assert.Equal(t, Added, ev.Type)
		assert.Equal(t, "p1", ev.Object)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

// TestPublishNeverBlocksOnSlowSubscriber covers spec.md §4.2's
// back-pressure rule: a subscriber's full channel gets it dropped, not
// the publisher blocked.
func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberCapacity+10; i++ {
			b.Publish(Event{Type: Modified, Kind: "Pod"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	closed := false
	for !closed {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				closed = true
			}
		case <-time.After(time.Second):
			t.Fatal("slow subscriber's channel was never closed")
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()
	sub.Close()
	require.NotPanics(t, sub.Close)
}
