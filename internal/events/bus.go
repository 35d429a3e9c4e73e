package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block; slow consumers buffer in
// their own channels and drop.
type Handler func(*Event)

// wildcard is the internal subscription key for all-event subscribers.
const wildcard EventType = "*"

// Bus is a minimal in-process publish/subscribe hub. Subscriptions are
// keyed by event type; an integer token identifies each subscription
// for Unsubscribe.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType]map[int]Handler
	nextID      int
	log         zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[EventType]map[int]Handler),
		log:         log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for one event type and returns a token
// for Unsubscribe.
func (b *Bus) Subscribe(eventType EventType, handler Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[eventType] == nil {
		b.subscribers[eventType] = make(map[int]Handler)
	}
	b.nextID++
	b.subscribers[eventType][b.nextID] = handler
	return b.nextID
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) int {
	return b.Subscribe(wildcard, handler)
}

// Unsubscribe removes a subscription by its token. Unknown tokens are
// ignored.
func (b *Bus) Unsubscribe(eventType EventType, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.subscribers[eventType]; ok {
		delete(handlers, id)
	}
}

// UnsubscribeAll removes an all-events subscription by its token.
func (b *Bus) UnsubscribeAll(id int) {
	b.Unsubscribe(wildcard, id)
}

// Publish delivers the event to every matching subscriber. Handlers are
// snapshotted under the read lock and invoked after it is released, so
// a handler may subscribe or unsubscribe without deadlocking.
func (b *Bus) Publish(event *Event) {
	if event == nil {
		return
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subscribers[event.Type])+len(b.subscribers[wildcard]))
	for _, h := range b.subscribers[event.Type] {
		handlers = append(handlers, h)
	}
	for _, h := range b.subscribers[wildcard] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// Manager is the producer-side facade over the bus: it stamps and
// publishes typed event payloads.
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates an event manager over the given bus.
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("component", "event_manager").Logger(),
	}
}

// Emit publishes a typed payload. The event type comes from the payload
// itself; module names the emitting component.
func (m *Manager) Emit(module string, data EventData) {
	event := &Event{
		Type:      data.EventType(),
		Timestamp: time.Now().UTC(),
		Module:    module,
		Data:      data,
	}

	m.log.Debug().
		Str("type", string(event.Type)).
		Str("module", module).
		Msg("Event emitted")
	m.bus.Publish(event)
}

// Bus returns the underlying bus for subscribers.
func (m *Manager) Bus() *Bus {
	return m.bus
}
