package cart

import "sync"

// subject fans out cart count changes to registered listeners.
type subject struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(int)
}

func (s *subject) subscribe(fn func(int)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[int]func(int))
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *subject) publish(count int) {
	s.mu.Lock()
	listeners := make([]func(int), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(count)
	}
}
