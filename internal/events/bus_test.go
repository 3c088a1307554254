package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBusFanOut(t *testing.T) {
	bus := NewBus()

	a, cancelA := bus.Subscribe()
	b, cancelB := bus.Subscribe()
	defer cancelA()
	defer cancelB()

	require.Equal(t, 2, bus.Subscribers())

	bus.Publish("surface.label", map[string]any{"text": "Step 1"})

	cmdA := <-a
	cmdB := <-b
	require.Equal(t, "surface.label", cmdA.Type)
	require.Equal(t, "Step 1", cmdA.Payload["text"])
	require.Equal(t, cmdA.ID, cmdB.ID, "both subscribers see the same command")
	require.False(t, cmdA.Time.IsZero())
}

func TestBusCancelClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	cancel()
	cancel() // second cancel is harmless

	_, open := <-ch
	require.False(t, open)
	require.Equal(t, 0, bus.Subscribers())

	// Publishing with no subscribers is a no-op.
	bus.Publish("surface.open", nil)
}

func TestBusSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Publish("tick", nil)
	}

	require.Len(t, ch, subscriberBuffer, "overflow is dropped, publisher never blocks")
}
