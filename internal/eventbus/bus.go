// Package eventbus implements the in-process publish/subscribe mechanism that
// decouples the state manager from UI and SDK-adapter observers.
//
// Dispatch is synchronous: Publish invokes every handler registered for the
// event's name, in registration order, on the publishing goroutine. Handlers
// that need to do asynchronous work must schedule it themselves and return
// promptly.
package eventbus

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/sessionstate/internal/logging"
)

// Handler receives published events. The concrete event type identifies the
// payload.
type Handler func(Event)

// Subscription identifies a single handler registration. Go functions are not
// comparable, so removal goes through the handle rather than the handler
// value itself.
type Subscription struct {
	bus  *Bus
	name string
	id   uint64
}

// Unsubscribe removes exactly this registration. Calling it more than once,
// or after UnsubscribeAll, is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.remove(s.name, s.id)
}

type registration struct {
	id uint64
	h  Handler
}

// Bus is a synchronous in-process event bus. The zero value is not usable;
// construct with New.
type Bus struct {
	mu     sync.Mutex
	subs   map[string][]registration
	nextID uint64
	log    logging.Logger
}

// New returns an empty Bus. log may be nil.
func New(log logging.Logger) *Bus {
	if log == nil {
		log = logging.Nop()
	}
	return &Bus{subs: make(map[string][]registration), log: log}
}

// Subscribe registers h for events with the given name. Handlers for the same
// name are invoked in registration order.
func (b *Bus) Subscribe(name string, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs[name] = append(b.subs[name], registration{id: b.nextID, h: h})
	return &Subscription{bus: b, name: name, id: b.nextID}
}

// Publish delivers e to every handler subscribed to e.Name(), in registration
// order. A panicking handler is recovered and logged; remaining handlers
// still run. Ordering is guaranteed only within a single Publish call.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	regs := make([]registration, len(b.subs[e.Name()]))
	copy(regs, b.subs[e.Name()])
	b.mu.Unlock()

	for _, r := range regs {
		b.dispatch(e, r.h)
	}
}

func (b *Bus) dispatch(e Event, h Handler) {
	defer func() {
		if p := recover(); p != nil {
			b.log.Error(context.Background(), "event handler panicked",
				"event", e.Name(), "panic", p)
		}
	}()
	h(e)
}

// UnsubscribeAll clears every handler registered for name.
func (b *Bus) UnsubscribeAll(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, name)
}

// Reset clears every handler for every event name.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string][]registration)
}

func (b *Bus) remove(name string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	regs := b.subs[name]
	for i, r := range regs {
		if r.id == id {
			b.subs[name] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}
