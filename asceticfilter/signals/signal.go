package signals

import (
	"reflect"
	"sync"
)

type Observer[E any] func(E)

// Detach removes the observer it was returned for. Calling it twice is safe.
type Detach func()

type entry[E any] struct {
	id       any
	observer Observer[E]
}

// Signal is a synchronous observer list safe for concurrent use. Observers
// run in attach order on the goroutine calling Notify.
type Signal[E any] struct {
	mu        sync.Mutex
	observers []entry[E]
}

func NewSignal[E any]() *Signal[E] {
	return &Signal[E]{}
}

// Attach registers observer once per id; the id defaults to the function
// pointer.
func (s *Signal[E]) Attach(observer Observer[E], observerID ...any) Detach {
	id := resolveID(observer, observerID)
	s.mu.Lock()
	defer s.mu.Unlock()
	detach := func() { s.detach(id) }
	for _, e := range s.observers {
		if e.id == id {
			return detach
		}
	}
	s.observers = append(s.observers, entry[E]{id: id, observer: observer})
	return detach
}

func (s *Signal[E]) Detach(observer Observer[E], observerID ...any) {
	s.detach(resolveID(observer, observerID))
}

func (s *Signal[E]) detach(id any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.observers {
		if e.id == id {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

func (s *Signal[E]) Notify(event E) {
	s.mu.Lock()
	observers := make([]entry[E], len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()
	for _, e := range observers {
		e.observer(event)
	}
}

func (s *Signal[E]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

func resolveID[E any](observer Observer[E], observerID []any) any {
	if len(observerID) > 0 {
		return observerID[0]
	}
	return reflect.ValueOf(observer).Pointer()
}
