// Package event provides a simple synchronous/async event dispatcher.
package event

import (
	"sync"
)

// Handler is a function that receives an event payload.
type Handler func(payload interface{})

type subscription struct {
	id      uint64
	handler Handler
}

var (
	mu       sync.RWMutex
	nextID   uint64
	handlers = map[string][]subscription{}
)

// Listen registers a permanent handler for the given event name.
func Listen(event string, handler Handler) {
	Subscribe(event, handler)
}

// Subscribe registers a handler and returns a cancel function that removes
// it again. Used by per-connection listeners such as SSE streams.
func Subscribe(event string, handler Handler) (cancel func()) {
	mu.Lock()
	nextID++
	id := nextID
	handlers[event] = append(handlers[event], subscription{id: id, handler: handler})
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		subs := handlers[event]
		for i := range subs {
			if subs[i].id == id {
				handlers[event] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

func snapshot(event string) []Handler {
	mu.RLock()
	defer mu.RUnlock()

	hs := make([]Handler, len(handlers[event]))
	for i, s := range handlers[event] {
		hs[i] = s.handler
	}
	return hs
}

// Fire dispatches an event synchronously to all registered listeners.
func Fire(event string, payload interface{}) {
	for _, h := range snapshot(event) {
		h(payload)
	}
}

// FireAsync dispatches the event to all listeners concurrently.
// It returns immediately without waiting for handlers to complete.
func FireAsync(event string, payload interface{}) {
	for _, h := range snapshot(event) {
		go h(payload)
	}
}

// Flush removes all listeners (useful in tests).
func Flush() {
	mu.Lock()
	defer mu.Unlock()
	handlers = map[string][]subscription{}
}
