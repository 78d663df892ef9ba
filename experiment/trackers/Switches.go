package trackers

import (
	"sync"

	ts "github.com/samuelfneumann/nonstationary/timestep"
	"github.com/samuelfneumann/nonstationary/trigger"
)

// Switch is a switch event together with the episode it occurred in
type Switch struct {
	trigger.Event
	Episode int
}

// Switches is both a Tracker and a trigger.Observer. As an Observer it
// records the switches of a wrapper, as a Tracker it counts episodes so
// that each switch is attributed to the episode it occurred in.
type Switches struct {
	mu       sync.Mutex
	episode  int
	switches []Switch
	filename string
}

// NewSwitches returns a new Switches Tracker saving to filename
func NewSwitches(filename string) *Switches {
	return &Switches{filename: filename}
}

// Observe records a switch
func (s *Switches) Observe(e trigger.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switches = append(s.switches, Switch{Event: e, Episode: s.episode})
}

// Track counts finished episodes
func (s *Switches) Track(t ts.TimeStep) {
	if t.Last() {
		s.mu.Lock()
		s.episode++
		s.mu.Unlock()
	}
}

// Switches returns the recorded switches
func (s *Switches) Switches() []Switch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Switch(nil), s.switches...)
}

// Episodes returns the episodes in which switches occurred, once per
// switch
func (s *Switches) Episodes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	episodes := make([]int, len(s.switches))
	for i, sw := range s.switches {
		episodes[i] = sw.Episode
	}
	return episodes
}

// Save saves the recorded switches to disk
func (s *Switches) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return save(s.filename, s.switches)
}

// LoadSwitches loads the switches saved by a Switches Tracker
func LoadSwitches(filename string) ([]Switch, error) {
	var switches []Switch
	if err := load(filename, &switches); err != nil {
		return nil, err
	}
	return switches, nil
}
