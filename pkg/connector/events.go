package connector

import "sync"

// EventType enumerates the normalized connector lifecycle events.
type EventType string

const (
	// EventConnecting fires when a Connect attempt starts, before the
	// wallet prompts the user.
	EventConnecting EventType = "connecting"

	// EventChange fires when the active account or chain changes. At least
	// one of Account and Chain is set on the event.
	EventChange EventType = "change"

	// EventDisconnect fires when the wallet session ends or the account
	// list empties.
	EventDisconnect EventType = "disconnect"
)

// Event is a normalized connector event.
type Event struct {
	Type EventType

	// Account is set on change events carrying a new active account, in
	// checksum form.
	Account string

	// Chain is set on change events carrying a chain move.
	Chain *ChainState
}

// EventHandler receives normalized events. Handlers run synchronously on the
// goroutine that observed the underlying wallet event; they must not block.
type EventHandler func(Event)

// emitter is the handler registry behind Base. Registration order is not
// preserved across handlers on emit.
type emitter struct {
	mu       sync.Mutex
	handlers map[uint64]EventHandler
	nextID   uint64
}

func newEmitter() *emitter {
	return &emitter{handlers: make(map[uint64]EventHandler)}
}

func (e *emitter) subscribe(fn EventHandler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.handlers[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers, id)
	}
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	handlers := make([]EventHandler, 0, len(e.handlers))
	for _, fn := range e.handlers {
		handlers = append(handlers, fn)
	}
	e.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
