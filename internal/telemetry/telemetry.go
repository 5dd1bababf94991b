// Package telemetry publishes connectivity lifecycle events.
//
// Events are informational. Publishing never blocks the caller for long and
// never fails it: errors are logged and the event is dropped.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Event is one lifecycle transition or fault.
type Event struct {
	State    string    `json:"state"`
	Attempts int       `json:"attempts"`
	Detail   string    `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}

// Marshal encodes the event as the JSON payload published on the wire.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(Event) {}

// DefaultTopic returns "vakit/<hostname>/events".
func DefaultTopic() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("vakit/%s/events", host)
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// States returns the State field of every event in order.
func (r *Recorder) States() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.State
	}
	return out
}
