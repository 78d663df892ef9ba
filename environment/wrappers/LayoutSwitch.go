package wrappers

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nonstationary/environment"
	"github.com/samuelfneumann/nonstationary/environment/gridworld"
	ts "github.com/samuelfneumann/nonstationary/timestep"
	"github.com/samuelfneumann/nonstationary/trigger"
)

// LayoutSetter is a gridworld whose map layout can be replaced in
// place. *gridworld.GridWorld is a LayoutSetter.
type LayoutSetter interface {
	environment.Environment

	LayoutName() string
	HasLayout(name string) bool

	// SetLayout replaces the layout and everything derived from it
	// atomically. Unknown names return a
	// *gridworld.UnsupportedLayoutError.
	SetLayout(name string) error

	Dims() (r, c int)
}

// invariantChecker is implemented by LayoutSetters which can verify
// their derived state
type invariantChecker interface {
	CheckInvariants() error
}

// LayoutSwitch wraps a gridworld and replaces its layout with a target
// layout once a number of steps has been taken.
//
// With the trigger.Once policy (the default) the layout is switched
// to the target on the first step, or reset under the wrapper's
// trigger.ResetRule, at which threshold steps have been taken and the
// target is not active. The switch is therefore taken once, and taken
// again only if the layout is explicitly moved off the target. With the
// trigger.Periodic policy the layout alternates between the initial and
// the target layout every threshold steps.
type LayoutSwitch struct {
	mu sync.Mutex

	grid     LayoutSetter
	initial  string
	target   string
	trig     *trigger.Trigger
	observer trigger.Observer
	switches int

	// err is set when the wrapper becomes unusable
	err error
}

// NewLayoutSwitch returns a new LayoutSwitch which switches grid to
// the target layout after threshold steps. The LayoutSwitch owns grid
// and closes it when closed.
//
// Options default to trigger.Once and trigger.ResetPending.
func NewLayoutSwitch(grid LayoutSetter, target string, threshold int,
	opts ...Option) (*LayoutSwitch, error) {
	if !grid.HasLayout(target) {
		return nil, fmt.Errorf("newLayoutSwitch: %w",
			&gridworld.UnsupportedLayoutError{Name: target})
	}

	c := newConfig(trigger.Once, trigger.ResetPending, opts)
	trig, err := trigger.New(c.policy, threshold, c.resetRule)
	if err != nil {
		return nil, fmt.Errorf("newLayoutSwitch: %w", err)
	}

	trig.SetCondition(func() bool {
		return grid.LayoutName() != target
	})

	return &LayoutSwitch{
		grid:     grid,
		initial:  grid.LayoutName(),
		target:   target,
		trig:     trig,
		observer: c.observer,
	}, nil
}

// Step takes one environmental step in the gridworld. If the step
// triggers a switch, the layout is replaced before Step returns, and
// the returned TimeStep is the one observed before the switch.
func (l *LayoutSwitch) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: %w", l.err)
	}

	step, done, err := l.grid.Step(a)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: %w", err)
	}

	if l.trig.RecordStep() {
		if err := l.switchNext(trigger.OnStep); err != nil {
			l.err = err
			return step, done, fmt.Errorf("step: %w", err)
		}
	}
	return step, done, nil
}

// Reset resets the gridworld. A switch which is due according to the
// wrapper's trigger.ResetRule is taken before the reset, so that the
// returned TimeStep is drawn from the new layout.
func (l *LayoutSwitch) Reset(opts ...environment.ResetOption) (ts.TimeStep,
	error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", l.err)
	}

	if l.trig.CheckOnReset() {
		if err := l.switchNext(trigger.OnReset); err != nil {
			l.err = err
			return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
		}
	}

	step, err := l.grid.Reset(opts...)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
	}
	return step, nil
}

// SwitchLayout replaces the gridworld's layout with the layout called
// name. On error, the layout is left unchanged.
func (l *LayoutSwitch) SwitchLayout(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return fmt.Errorf("switchLayout: %w", l.err)
	}
	return l.switchTo(name, trigger.Explicit)
}

// switchNext switches to the layout following the active one. A
// one-shot switch to a layout which is already active is skipped.
func (l *LayoutSwitch) switchNext(cause trigger.Cause) error {
	next := l.target
	current := l.grid.LayoutName()

	if l.trig.Policy() == trigger.Periodic && current == l.target {
		next = l.initial
	} else if l.trig.Policy() == trigger.Once && current == l.target {
		return nil
	}
	return l.switchTo(next, cause)
}

func (l *LayoutSwitch) switchTo(name string, cause trigger.Cause) error {
	from := l.grid.LayoutName()
	before := l.grid.ObservationSpec()

	if err := l.grid.SetLayout(name); err != nil {
		return fmt.Errorf("switchLayout: %w", err)
	}
	if c, ok := l.grid.(invariantChecker); ok {
		if err := c.CheckInvariants(); err != nil {
			panic(fmt.Sprintf("switchLayout: %v -> %v: %v", from, name, err))
		}
	}
	l.switches++

	l.observer.Observe(trigger.Event{
		Kind:         trigger.LayoutSwitch,
		Cause:        cause,
		Step:         l.trig.Count(),
		Switches:     l.switches,
		From:         from,
		To:           name,
		SpecsChanged: !environment.SameShape(before, l.grid.ObservationSpec()),
	})
	return nil
}

// LayoutName returns the name of the active layout
func (l *LayoutSwitch) LayoutName() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.grid.LayoutName()
}

// Target returns the name of the layout switched to
func (l *LayoutSwitch) Target() string {
	return l.target
}

// Dims returns the rows and columns of the active layout
func (l *LayoutSwitch) Dims() (r, c int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.grid.Dims()
}

// Count returns the number of steps taken through the wrapper
func (l *LayoutSwitch) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.trig.Count()
}

// Switches returns the number of layout switches taken
func (l *LayoutSwitch) Switches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.switches
}

// ObservationSpec returns the observation specification of the active
// layout
func (l *LayoutSwitch) ObservationSpec() environment.Spec {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.grid.ObservationSpec()
}

// ActionSpec returns the action specification of the gridworld
func (l *LayoutSwitch) ActionSpec() environment.Spec {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.grid.ActionSpec()
}

// DiscountSpec returns the discount specification of the gridworld
func (l *LayoutSwitch) DiscountSpec() environment.Spec {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.grid.DiscountSpec()
}

// Render renders the gridworld
func (l *LayoutSwitch) Render(mode environment.RenderMode) (
	environment.Frame, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return environment.Frame{}, fmt.Errorf("render: %w", l.err)
	}
	return l.grid.Render(mode)
}

// Close closes the gridworld. A closed LayoutSwitch returns ErrClosed
// from every operation.
func (l *LayoutSwitch) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err == ErrClosed {
		return nil
	}
	l.err = ErrClosed
	return l.grid.Close()
}

func (l *LayoutSwitch) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fmt.Sprintf("LayoutSwitch(%v -> %v, %v): %v", l.initial,
		l.target, l.trig, l.grid)
}
