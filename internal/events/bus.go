// Package events carries UI commands from the tour orchestrator to attached
// dashboard surfaces.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opentelematics/fleetdeck/internal/logging"
)

// subscriberBuffer is per-subscriber channel capacity. A subscriber that
// falls further behind loses commands rather than stalling the publisher.
const subscriberBuffer = 256

// Command is one instruction to a dashboard surface.
type Command struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
	Time    time.Time      `json:"time"`
}

// Bus fans commands out to every subscriber. Publishing never blocks.
type Bus struct {
	logger zerolog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]chan Command
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		logger: logging.Component("event-bus"),
		subs:   make(map[int]chan Command),
	}
}

// Subscribe registers a consumer. The returned cancel function removes the
// subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan Command, func()) {
	ch := make(chan Command, subscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		sub, ok := b.subs[id]
		delete(b.subs, id)
		b.mu.Unlock()
		if ok {
			close(sub)
		}
	}
	return ch, cancel
}

// Publish sends a command to every subscriber, dropping it for any whose
// buffer is full.
func (b *Bus) Publish(cmdType string, payload map[string]any) {
	cmd := Command{
		ID:      uuid.NewString(),
		Type:    cmdType,
		Payload: payload,
		Time:    time.Now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- cmd:
		default:
			b.logger.Warn().Int("subscriber", id).Str("type", cmdType).Msg("subscriber behind, command dropped")
		}
	}
}

// Subscribers reports how many consumers are attached.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
