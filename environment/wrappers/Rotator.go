package wrappers

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nonstationary/environment"
	ts "github.com/samuelfneumann/nonstationary/timestep"
	"github.com/samuelfneumann/nonstationary/trigger"
)

// Factory constructs an environment and returns it along with its first
// TimeStep. gym.Factory returns a Factory.
type Factory func() (environment.Environment, ts.TimeStep, error)

// Rotator rotates through a list of arbitrary environments. Every time
// its trigger fires, the active environment is replaced by the next one
// in the list, cycling back to the first after the last. The
// environments need not share observation or action specifications.
type Rotator struct {
	mu sync.Mutex

	factories []Factory
	names     []string
	env       environment.Environment
	index     int
	switches  int

	// cache holds constructed environments by index when reusing
	reuse bool
	cache []environment.Environment

	observationSpec environment.Spec
	actionSpec      environment.Spec

	trig     *trigger.Trigger
	observer trigger.Observer

	// err is set when the wrapper becomes unusable
	err error
}

// NewRotator returns a new Rotator over the environments constructed by
// factories, starting with factories[0], along with the first TimeStep
// of the initial environment.
//
// Options default to trigger.Periodic and trigger.ResetPastThreshold,
// which rotates on every reset once threshold steps have been taken.
func NewRotator(factories []Factory, threshold int, opts ...Option) (
	*Rotator, ts.TimeStep, error) {
	if len(factories) == 0 {
		return nil, ts.TimeStep{}, fmt.Errorf("newRotator: %w",
			environment.ErrEmptyVariants)
	}

	c := newConfig(trigger.Periodic, trigger.ResetPastThreshold, opts)
	trig, err := trigger.New(c.policy, threshold, c.resetRule)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("newRotator: %w", err)
	}

	env, step, err := factories[0]()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("newRotator: could not "+
			"construct environment 0: %w", err)
	}

	r := &Rotator{
		factories:       append([]Factory(nil), factories...),
		names:           make([]string, len(factories)),
		env:             env,
		reuse:           c.reuse,
		cache:           make([]environment.Environment, len(factories)),
		observationSpec: env.ObservationSpec(),
		actionSpec:      env.ActionSpec(),
		trig:            trig,
		observer:        c.observer,
	}
	r.names[0] = name(env, 0)
	if r.reuse {
		r.cache[0] = env
	}
	return r, step, nil
}

// namer is implemented by environments which have a name, such as Gym
// environments
type namer interface {
	Name() string
}

func name(env environment.Environment, index int) string {
	if n, ok := env.(namer); ok {
		return fmt.Sprintf("%v (#%d)", n.Name(), index)
	}
	return fmt.Sprintf("%T (#%d)", env, index)
}

// Step takes one environmental step in the active environment. If the
// step triggers a rotation, the environment is replaced before Step
// returns, and the returned TimeStep is the one observed before the
// rotation.
func (r *Rotator) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: %w", r.err)
	}

	step, done, err := r.env.Step(a)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: %w", err)
	}

	if r.trig.RecordStep() {
		if err := r.rotate(trigger.OnStep); err != nil {
			return step, done, fmt.Errorf("step: %w", err)
		}
	}
	return step, done, nil
}

// Reset resets the active environment. If a rotation is due according
// to the wrapper's trigger.ResetRule, the environment is rotated first
// and the new environment is reset.
func (r *Rotator) Reset(opts ...environment.ResetOption) (ts.TimeStep,
	error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", r.err)
	}

	if r.trig.CheckOnReset() {
		if err := r.rotate(trigger.OnReset); err != nil {
			return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
		}
	}

	step, err := r.env.Reset(opts...)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
	}
	return step, nil
}

// SwitchDynamics rotates to the next environment, constructing it or,
// when reusing environments, resetting a previously constructed one.
// If the next environment cannot be constructed, the wrapper becomes
// unusable.
func (r *Rotator) SwitchDynamics() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return fmt.Errorf("switchDynamics: %w", r.err)
	}
	return r.rotate(trigger.Explicit)
}

func (r *Rotator) rotate(cause trigger.Cause) error {
	from := r.names[r.index]
	next := (r.index + 1) % len(r.factories)

	if !r.reuse {
		if err := r.env.Close(); err != nil {
			r.env = nil
			r.err = fmt.Errorf("switchDynamics: could not close %v: %w", from,
				err)
			return r.err
		}
	}

	env := r.cache[next]
	if env != nil {
		if _, err := env.Reset(); err != nil {
			r.err = fmt.Errorf("switchDynamics: could not reset environment "+
				"%d: %w", next, err)
			return r.err
		}
	} else {
		var err error
		env, _, err = r.factories[next]()
		if err != nil {
			r.env = nil
			r.err = fmt.Errorf("switchDynamics: could not construct "+
				"environment %d: %w", next, err)
			return r.err
		}
		if r.reuse {
			r.cache[next] = env
		}
	}

	r.env = env
	r.index = next
	r.switches++
	r.names[next] = name(env, next)

	observationSpec, actionSpec := env.ObservationSpec(), env.ActionSpec()
	changed := !environment.SameShape(r.observationSpec, observationSpec) ||
		!environment.SameShape(r.actionSpec, actionSpec)
	r.observationSpec, r.actionSpec = observationSpec, actionSpec

	r.observer.Observe(trigger.Event{
		Kind:         trigger.Rotation,
		Cause:        cause,
		Step:         r.trig.Count(),
		Switches:     r.switches,
		From:         from,
		To:           r.names[next],
		SpecsChanged: changed,
	})
	return nil
}

// Index returns the index of the active environment
func (r *Rotator) Index() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index
}

// Switches returns the number of rotations taken
func (r *Rotator) Switches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.switches
}

// Count returns the number of steps taken through the wrapper
func (r *Rotator) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trig.Count()
}

// Env returns the active environment
func (r *Rotator) Env() environment.Environment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.env
}

// ObservationSpec returns the observation specification of the active
// environment
func (r *Rotator) ObservationSpec() environment.Spec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observationSpec
}

// ActionSpec returns the action specification of the active
// environment
func (r *Rotator) ActionSpec() environment.Spec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.actionSpec
}

// DiscountSpec returns the discount specification of the active
// environment
func (r *Rotator) DiscountSpec() environment.Spec {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.env == nil {
		return environment.Spec{}
	}
	return r.env.DiscountSpec()
}

// Render renders the active environment
func (r *Rotator) Render(mode environment.RenderMode) (environment.Frame,
	error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return environment.Frame{}, fmt.Errorf("render: %w", r.err)
	}
	return r.env.Render(mode)
}

// Close closes the active environment and, when reusing environments,
// every cached one. A closed Rotator returns ErrClosed from every
// operation.
func (r *Rotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err == ErrClosed {
		return nil
	}
	r.err = ErrClosed

	var firstErr error
	closed := false
	for _, env := range r.cache {
		if env == nil {
			continue
		}
		if env == r.env {
			closed = true
		}
		if err := env.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if !closed && r.env != nil {
		if err := r.env.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		return fmt.Errorf("close: %w", firstErr)
	}
	return nil
}

func (r *Rotator) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("Rotator(%d environments, %v): %v", len(r.factories),
		r.trig, r.names[r.index])
}
