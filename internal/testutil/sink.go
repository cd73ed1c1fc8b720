package testutil

import (
	"sync"

	"github.com/hupe1980/guesswho/core"
)

// CollectorSink records every emitted event for later assertions.
type CollectorSink struct {
	mu     sync.Mutex
	events []core.Event
}

// NewCollectorSink returns an empty collector.
func NewCollectorSink() *CollectorSink {
	return &CollectorSink{}
}

// Emit implements core.Sink.
func (s *CollectorSink) Emit(ev core.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of all recorded events.
func (s *CollectorSink) Events() []core.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Event, len(s.events))
	copy(out, s.events)
	return out
}

// EventsOfType returns recorded events matching t, in emission order.
func (s *CollectorSink) EventsOfType(t core.EventType) []core.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Event
	for _, ev := range s.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// Reset discards all recorded events.
func (s *CollectorSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
