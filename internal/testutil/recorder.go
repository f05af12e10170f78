package testutil

import (
	"sync"

	"github.com/vk/listmodel/internal/listmodel"
)

// Recorder is a listmodel.Observer that keeps every event it sees.
type Recorder struct {
	mu     sync.Mutex
	events []listmodel.Event
}

// OnEvent implements listmodel.Observer.
func (r *Recorder) OnEvent(e listmodel.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events, nil if there are none.
func (r *Recorder) Events() []listmodel.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	out := make([]listmodel.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kinds of the recorded events, in order.
func (r *Recorder) Kinds() []listmodel.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]listmodel.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
