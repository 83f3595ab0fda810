package event

import (
	"log/slog"
	"sync"
)

// Registry fans a value out to registered handlers. Safe for concurrent use.
type Registry[T any] struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]func(T)
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{handlers: make(map[uint64]func(T))}
}

// Add registers fn and returns its subscription.
func (r *Registry[T]) Add(fn func(T)) *Subscription {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.handlers[id] = fn
	r.mu.Unlock()

	return NewSubscription(func() {
		r.mu.Lock()
		delete(r.handlers, id)
		r.mu.Unlock()
	})
}

// Emit calls every handler with v. A panicking handler is logged and
// does not stop delivery to the others.
func (r *Registry[T]) Emit(v T) {
	r.mu.RLock()
	handlers := make([]func(T), 0, len(r.handlers))
	for _, h := range r.handlers {
		handlers = append(handlers, h)
	}
	r.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if p := recover(); p != nil {
					slog.Error("Listener panic recovered", slog.Any("panic", p))
				}
			}()
			h(v)
		}()
	}
}

// Len returns the number of registered handlers.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Clear drops every handler. Subscriptions stay safe to release.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	r.handlers = make(map[uint64]func(T))
	r.mu.Unlock()
}

// Subscription releases a listener. Unsubscribe is idempotent.
type Subscription struct {
	once   sync.Once
	remove func()
}

// NewSubscription wraps remove; a nil remove yields a no-op subscription.
func NewSubscription(remove func()) *Subscription {
	return &Subscription{remove: remove}
}

// Unsubscribe releases the listener. Extra calls do nothing.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.remove != nil {
			s.remove()
		}
	})
}
