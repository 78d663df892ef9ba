package trigger

import (
	"fmt"
	"log"
	"sync"
)

// Kind describes what was switched
type Kind string

const (
	LayoutSwitch   Kind = "layout"
	DynamicsSwitch Kind = "dynamics"
	Rotation       Kind = "environment"
)

// Cause describes which call led to a switch
type Cause string

const (
	OnStep   Cause = "step"
	OnReset  Cause = "reset"
	Explicit Cause = "explicit"
)

// Event describes a single switch between two variants
type Event struct {
	Kind  Kind
	Cause Cause

	// Step is the interaction count at the moment of the switch
	Step int

	// Switches is the number of switches taken so far, including this one
	Switches int

	From string
	To   string

	// SpecsChanged is set when the observation or action
	// specifications differ before and after the switch
	SpecsChanged bool
}

func (e Event) String() string {
	str := fmt.Sprintf("Switching environment %v after %d steps (%v, switch "+
		"#%d): %v -> %v", e.Kind, e.Step, e.Cause, e.Switches, e.From, e.To)
	if e.SpecsChanged {
		str += " [observation/action specs changed]"
	}
	return str
}

// Observer is notified of every switch
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(Event)

// Observe calls f(e)
func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// Discard is an Observer which ignores all events
var Discard Observer = ObserverFunc(func(Event) {})

// LogObserver returns an Observer which writes one line per Event to
// l. If l is nil, the standard logger is used.
func LogObserver(l *log.Logger) Observer {
	return ObserverFunc(func(e Event) {
		if l == nil {
			log.Println(e)
			return
		}
		l.Println(e)
	})
}

// Multi returns an Observer which forwards every Event to each of
// observers in order
func Multi(observers ...Observer) Observer {
	return ObserverFunc(func(e Event) {
		for _, o := range observers {
			o.Observe(e)
		}
	})
}

// Recorder is an Observer which stores all Events it receives. It is
// safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Observe records e
func (r *Recorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded Events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Len returns the number of recorded Events
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
