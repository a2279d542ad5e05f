package mavlink

import "sync"

type subscribers[T any] struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(T)
}

func (s *subscribers[T]) add(cb func(T)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = map[int]func(T){}
	}
	id := s.next
	s.next++
	s.subs[id] = cb
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *subscribers[T]) each(fn func(cb func(T))) {
	s.mu.RLock()
	cbs := make([]func(T), 0, len(s.subs))
	for _, cb := range s.subs {
		cbs = append(cbs, cb)
	}
	s.mu.RUnlock()

	for _, cb := range cbs {
		fn(cb)
	}
}
