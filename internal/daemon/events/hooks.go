package events

import (
	"context"
	"errors"
	"sync"
)

// Handler reacts to one event. Handlers run on the event loop goroutine, one
// at a time and to completion.
type Handler func(ctx context.Context, evt Event) error

type hook struct {
	id   uint64
	fn   Handler
	once bool
}

// Hooks is a registry of named handlers, the attachment points components
// use to react to lifecycle and data signals.
type Hooks struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[string][]hook
}

func NewHooks() *Hooks {
	return &Hooks{handlers: make(map[string][]hook)}
}

// On attaches fn to every future event named name.
func (h *Hooks) On(name string, fn Handler) uint64 {
	return h.add(name, fn, false)
}

// Once attaches fn to the next event named name only.
func (h *Hooks) Once(name string, fn Handler) uint64 {
	return h.add(name, fn, true)
}

func (h *Hooks) add(name string, fn Handler, once bool) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.handlers[name] = append(h.handlers[name], hook{id: h.nextID, fn: fn, once: once})
	return h.nextID
}

// Off detaches the handler with id.
func (h *Hooks) Off(name string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.handlers[name]
	for i, hk := range list {
		if hk.id == id {
			h.handlers[name] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(h.handlers[name]) == 0 {
		delete(h.handlers, name)
	}
}

// Count returns the number of handlers attached to name.
func (h *Hooks) Count(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handlers[name])
}

// Total returns the number of attached handlers across all names.
func (h *Hooks) Total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, list := range h.handlers {
		n += len(list)
	}
	return n
}

// Call runs the handlers attached to evt's name in attachment order. Once
// handlers are detached before they run. Every handler runs even if an
// earlier one fails; the errors are joined.
func (h *Hooks) Call(ctx context.Context, evt Event) error {
	name := evt.EventName()

	h.mu.Lock()
	list := append([]hook(nil), h.handlers[name]...)
	kept := h.handlers[name][:0:0]
	for _, hk := range h.handlers[name] {
		if !hk.once {
			kept = append(kept, hk)
		}
	}
	if len(kept) == 0 {
		delete(h.handlers, name)
	} else {
		h.handlers[name] = kept
	}
	h.mu.Unlock()

	var errs []error
	for _, hk := range list {
		if err := hk.fn(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
