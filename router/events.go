package router

import "time"

// EventType identifies a router lifecycle event.
type EventType string

const (
	// EventBackendSelected fires when a strategy picks a backend for a call.
	EventBackendSelected EventType = "backend_selected"
	// EventBackendFailed fires when a backend call fails.
	EventBackendFailed EventType = "backend_failed"
	// EventBackendSwitched fires when dispatch falls over to another backend.
	EventBackendSwitched EventType = "backend_switched"
)

// Event describes one router lifecycle occurrence.
type Event struct {
	Type      EventType `json:"type"`
	Backend   string    `json:"backend"`
	Previous  string    `json:"previous,omitempty"` // set on switch events
	Attempt   int       `json:"attempt"`
	Err       error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscribe registers a listener invoked synchronously for every event.
// Listeners must be fast; they run on the dispatching goroutine, outside the
// router lock.
func (r *Router) Subscribe(fn func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

func (r *Router) emit(ev Event) {
	ev.Timestamp = time.Now().UTC()
	r.mu.Lock()
	subs := make([]func(Event), len(r.subscribers))
	copy(subs, r.subscribers)
	r.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}
