package trackers

import (
	ts "github.com/samuelfneumann/nonstationary/timestep"
)

// EpisodeLength tracks and saves the lengths of episodes in an
// experiment. An episode's length is the number of steps taken in it,
// counted by the Tracker itself since a switching wrapper may restart
// the step numbers of the environment mid episode.
type EpisodeLength struct {
	current        int
	episodeLengths []float64
	filename       string
}

// NewEpisodeLength returns a new EpisodeLength Tracker which will save
// its data at the specified location filename
func NewEpisodeLength(filename string) *EpisodeLength {
	return &EpisodeLength{filename: filename}
}

// Track tracks the episode lengths in an experiment
func (e *EpisodeLength) Track(t ts.TimeStep) {
	if t.First() {
		e.current = 0
		return
	}

	e.current++
	if t.Last() {
		e.episodeLengths = append(e.episodeLengths, float64(e.current))
	}
}

// Lengths returns the lengths of all finished episodes
func (e *EpisodeLength) Lengths() []float64 {
	return append([]float64(nil), e.episodeLengths...)
}

// Save saves the data tracked by the EpisodeLength Tracker to disk
func (e *EpisodeLength) Save() error {
	return save(e.filename, e.episodeLengths)
}
