package store

import (
	"prefectlog/internal/domain/attendance"
)

// Listener receives the full record set after every successful write.
type Listener func(records []attendance.Record)

// Subscribe registers fn and returns its deinstall function. Delivery is
// fire-and-forget: a panic in one listener never blocks delivery to the
// others.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.listenerMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

func (s *Store) notify(records []attendance.Record) {
	s.listenerMu.Lock()
	snapshot := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		snapshot = append(snapshot, fn)
	}
	s.listenerMu.Unlock()

	for _, fn := range snapshot {
		s.deliver(fn, records)
	}
}

func (s *Store) deliver(fn Listener, records []attendance.Record) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("change listener panicked", "panic", r)
		}
	}()
	fn(records)
}
