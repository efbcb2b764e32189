package migrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishDeliversToAllSubscribers(t *testing.T) {
	bus := NewEventBus()
	ch1, unsub1 := bus.Subscribe(4)
	defer unsub1()
	ch2, unsub2 := bus.Subscribe(4)
	defer unsub2()

	bus.Publish(Event{DBPath: "a.db", Status: Completed})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, "a.db", ev.DBPath)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("subscriber did not receive published event")
		}
	}
}

func TestEventBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewEventBus()
	ch, unsub := bus.Subscribe(4)
	unsub()

	bus.Publish(Event{DBPath: "a.db", Status: Completed})

	select {
	case ev := <-ch:
		t.Fatalf("unsubscribed channel received an event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBus_FullChannelDropsOldestEvent(t *testing.T) {
	bus := NewEventBus()
	ch, unsub := bus.Subscribe(1)
	defer unsub()

	bus.Publish(Event{DBPath: "first"})
	bus.Publish(Event{DBPath: "second"})

	require.Len(t, ch, 1)
	ev := <-ch
	assert.Equal(t, "second", ev.DBPath)
}
