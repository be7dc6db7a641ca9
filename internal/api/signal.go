package api

import (
	"sort"
	"sync"
	"time"
)

// AuthErrorEvent is broadcast when the backend rejects the session with 401.
type AuthErrorEvent struct {
	Status int
	Method string
	Path   string
	At     time.Time
}

// Signals fans auth-error events out to subscribers. Handlers run
// synchronously on the goroutine that received the rejected response, so the
// session is torn down before the failing call returns to its caller.
type Signals struct {
	mu       sync.RWMutex
	seq      int
	handlers map[int]func(AuthErrorEvent)
}

// NewSignals returns an empty channel.
func NewSignals() *Signals {
	return &Signals{handlers: make(map[int]func(AuthErrorEvent))}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Signals) Subscribe(fn func(AuthErrorEvent)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	s.seq++
	id := s.seq
	s.handlers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.handlers, id)
			s.mu.Unlock()
		})
	}
}

// Publish delivers ev to every subscriber in subscription order.
func (s *Signals) Publish(ev AuthErrorEvent) {
	s.mu.RLock()
	ids := make([]int, 0, len(s.handlers))
	for id := range s.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(AuthErrorEvent), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, s.handlers[id])
	}
	s.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Len reports the number of subscribers.
func (s *Signals) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}
