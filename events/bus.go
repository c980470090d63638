package events

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrBusClosed          = errors.New("events: bus is closed")
	ErrSubscriberExists   = errors.New("events: subscriber already exists")
	ErrSubscriberNotFound = errors.New("events: subscriber not found")
	ErrNilHandler         = errors.New("events: nil handler provided")
)

type subscriber struct {
	id      string
	handler Handler
}

// Bus delivers every published event to every subscriber, synchronously and in the order they
// subscribed. All methods are safe for concurrent use. Handlers are called outside the bus lock,
// so a handler may itself publish or (un)subscribe.
type Bus struct {
	mu          sync.RWMutex
	subscribers []subscriber
	published   uint64
	closed      bool
}

// NewBus returns an empty, open bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler under id.
func (bus *Bus) Subscribe(id string, handler Handler) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return ErrBusClosed
	}
	if handler == nil {
		return ErrNilHandler
	}
	for _, sub := range bus.subscribers {
		if sub.id == id {
			return ErrSubscriberExists
		}
	}

	bus.subscribers = append(bus.subscribers, subscriber{id: id, handler: handler})
	return nil
}

// Unsubscribe removes the subscriber registered under id.
func (bus *Bus) Unsubscribe(id string) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	for i, sub := range bus.subscribers {
		if sub.id == id {
			// Copy rather than shift in place: Publish may be iterating the old slice.
			remaining := make([]subscriber, 0, len(bus.subscribers)-1)
			remaining = append(remaining, bus.subscribers[:i]...)
			bus.subscribers = append(remaining, bus.subscribers[i+1:]...)
			return nil
		}
	}
	return ErrSubscriberNotFound
}

// Publish hands ev to every current subscriber. Publishing on a closed bus is a no-op.
func (bus *Bus) Publish(ev Event) {
	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}
	subscribers := bus.subscribers
	bus.mu.RUnlock()

	atomic.AddUint64(&bus.published, 1)
	for _, sub := range subscribers {
		sub.handler.Handle(ev)
	}
}

// Handle lets a Bus be subscribed to another publisher, relaying everything it receives.
func (bus *Bus) Handle(ev Event) {
	bus.Publish(ev)
}

// Published returns the number of events published so far.
func (bus *Bus) Published() uint64 {
	return atomic.LoadUint64(&bus.published)
}

// Len returns the number of subscribers.
func (bus *Bus) Len() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.subscribers)
}

// Close drops every subscriber; later Subscribe calls fail and Publish does nothing.
func (bus *Bus) Close() {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.closed = true
	bus.subscribers = nil
}

// Stats counts deliveries for a channel-backed subscriber.
type Stats struct {
	Sent    uint64
	Dropped uint64
}

// ChanHandler is a Handler that forwards events to a buffered channel without ever blocking the
// publisher: when the buffer is full the event is dropped and counted. This keeps one slow
// websocket client from stalling the engine loop.
type ChanHandler struct {
	ch      chan Event
	sent    uint64
	dropped uint64
}

// NewChanHandler returns a handler whose channel holds up to buffer pending events.
func NewChanHandler(buffer int) *ChanHandler {
	return &ChanHandler{ch: make(chan Event, buffer)}
}

func (handler *ChanHandler) Handle(ev Event) {
	select {
	case handler.ch <- ev:
		atomic.AddUint64(&handler.sent, 1)
	default:
		atomic.AddUint64(&handler.dropped, 1)
	}
}

// Events is the receive side of the handler.
func (handler *ChanHandler) Events() <-chan Event {
	return handler.ch
}

func (handler *ChanHandler) Stats() Stats {
	return Stats{
		Sent:    atomic.LoadUint64(&handler.sent),
		Dropped: atomic.LoadUint64(&handler.dropped),
	}
}
