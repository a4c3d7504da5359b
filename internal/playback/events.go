package playback

import (
	"slices"
	"sync"

	"github.com/desertthunder/likesorter/internal/models"
)

// EventType names a player event.
type EventType string

const (
	EventReady        EventType = "ready"
	EventNotReady     EventType = "not_ready"
	EventStateChanged EventType = "state_changed"
	EventError        EventType = "error"
)

// ErrorKind classifies [EventError] events.
type ErrorKind string

const (
	ErrorInitialization ErrorKind = "initialization"
	ErrorAuthentication ErrorKind = "authentication"
	ErrorAccount        ErrorKind = "account"
	ErrorPlayback       ErrorKind = "playback"
)

// fatal reports whether an error of this kind means the player will never become ready.
func (k ErrorKind) fatal() bool {
	return k == ErrorInitialization || k == ErrorAuthentication || k == ErrorAccount
}

// Snapshot is the player state carried by [EventStateChanged].
type Snapshot struct {
	Track  models.Track
	Paused bool
}

// Event is a single player notification. Only the fields relevant to Type are set.
type Event struct {
	Type     EventType
	DeviceID string
	State    *Snapshot
	Kind     ErrorKind
	Message  string
}

// Handler receives events from a [Bus].
type Handler func(Event)

// Bus delivers events to subscribers one at a time, in publish order.
//
// Whichever goroutine finds the bus idle becomes the dispatcher and drains the queue,
// so a handler may publish without deadlocking; its event is delivered after the current one.
type Bus struct {
	mu          sync.Mutex
	handlers    map[EventType][]Handler
	pending     []Event
	dispatching bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: map[EventType][]Handler{}}
}

// Subscribe registers h for events of type t. Handlers run in registration order.
func (b *Bus) Subscribe(t EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish queues e and, unless another goroutine is already dispatching, delivers the queue.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	b.pending = append(b.pending, e)
	if b.dispatching {
		b.mu.Unlock()
		return
	}
	b.dispatching = true

	for len(b.pending) > 0 {
		next := b.pending[0]
		b.pending = b.pending[1:]
		handlers := slices.Clone(b.handlers[next.Type])
		b.mu.Unlock()

		for _, h := range handlers {
			h(next)
		}

		b.mu.Lock()
	}

	b.dispatching = false
	b.mu.Unlock()
}
