// Package environment outlines the interfaces and structs needed to
// implement concrete environments and the wrappers around them.
package environment

import (
	"errors"
	"image"

	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/nonstationary/timestep"
)

// ErrEmptyVariants is returned when a wrapper is constructed with an
// empty list of variants to switch between
var ErrEmptyVariants = errors.New("no variants to switch between")

// Environment is the capability set shared by every simulation backend
// and every wrapper around one. Wrappers own the Environment they wrap
// and are responsible for closing it.
type Environment interface {
	// Reset starts a new episode and returns its first TimeStep
	Reset(opts ...ResetOption) (ts.TimeStep, error)

	// Step takes one environmental step and returns the next TimeStep
	// and whether the episode has ended
	Step(action *mat.VecDense) (ts.TimeStep, bool, error)

	ObservationSpec() Spec
	ActionSpec() Spec
	DiscountSpec() Spec

	Render(mode RenderMode) (Frame, error)
	Close() error
}

// Starter implements a distribution of starting states and samples starting
// states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when episodes end. End should adjust the TimeStep's
// StepType and EndType if the TimeStep ends the episode.
type Ender interface {
	End(*ts.TimeStep) bool
}

// RenderMode determines how an Environment is rendered
type RenderMode string

const (
	// Human renders to the terminal or screen and returns the frame
	Human RenderMode = "human"

	// ANSI renders to text, possibly with terminal colour codes
	ANSI RenderMode = "ansi"

	// RGBArray renders to an image
	RGBArray RenderMode = "rgb_array"
)

// Frame is a single rendered frame of an Environment. Depending on the
// RenderMode, either Text or Image is set.
type Frame struct {
	Text  string
	Image image.Image
}

// ResetConfig holds the options passed to Reset
type ResetConfig struct {
	Seed    *uint64
	Options map[string]interface{}
}

// ResetOption configures a call to Reset
type ResetOption func(*ResetConfig)

// WithSeed reseeds the Environment's random number generators before
// resetting
func WithSeed(seed uint64) ResetOption {
	return func(c *ResetConfig) {
		c.Seed = &seed
	}
}

// WithOptions passes backend specific options to Reset
func WithOptions(options map[string]interface{}) ResetOption {
	return func(c *ResetConfig) {
		c.Options = options
	}
}

// NewResetConfig applies opts and returns the resulting ResetConfig
func NewResetConfig(opts ...ResetOption) ResetConfig {
	var c ResetConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
