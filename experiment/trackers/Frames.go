package trackers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"github.com/samuelfneumann/nonstationary/environment"
	ts "github.com/samuelfneumann/nonstationary/timestep"
)

// Frames renders an Environment to PNG files every few tracked
// timesteps. Frames tracks the registered Environment only, the
// TimeStep passed to Track is used for counting.
type Frames struct {
	env   environment.Environment
	dir   string
	every int

	tracked int
	saved   int
	err     error
}

// NewFrames returns a new Frames Tracker which saves a frame of e to
// dir every every timesteps
func NewFrames(e environment.Environment, dir string, every int) (*Frames,
	error) {
	if every < 1 {
		return nil, fmt.Errorf("newFrames: frame interval must be "+
			"positive (have %d)", every)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("newFrames: %w", err)
	}
	return &Frames{env: e, dir: dir, every: every}, nil
}

// Track renders a frame if due. The first rendering error is kept and
// returned by Save.
func (f *Frames) Track(ts.TimeStep) {
	defer func() { f.tracked++ }()
	if f.err != nil || f.tracked%f.every != 0 {
		return
	}

	frame, err := f.env.Render(environment.RGBArray)
	if err != nil {
		f.err = fmt.Errorf("track: %w", err)
		return
	}

	path := filepath.Join(f.dir, fmt.Sprintf("frame_%06d.png", f.tracked))
	if err := gg.SavePNG(path, frame.Image); err != nil {
		f.err = fmt.Errorf("track: %w", err)
		return
	}
	f.saved++
}

// Saved returns the number of frames saved so far
func (f *Frames) Saved() int {
	return f.saved
}

// Save returns the first error encountered while saving frames
func (f *Frames) Save() error {
	return f.err
}
