package wrappers

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nonstationary/environment"
	ts "github.com/samuelfneumann/nonstationary/timestep"
	"github.com/samuelfneumann/nonstationary/trigger"
)

// ModelFactory constructs a backend from a model definition and returns
// it along with its first TimeStep. walker.Factory returns a
// ModelFactory.
type ModelFactory func(model string) (environment.Environment, ts.TimeStep,
	error)

// DynamicsSwitch wraps a continuous-control backend and rebuilds it from
// the next model definition every time its trigger fires. Model
// definitions are used in order, cycling back to the first after the
// last. Only the step and switch counters survive a switch.
type DynamicsSwitch struct {
	mu sync.Mutex

	factory  ModelFactory
	models   []string
	env      environment.Environment
	switches int

	trig     *trigger.Trigger
	observer trigger.Observer

	// err is set when the wrapper becomes unusable
	err error
}

// NewDynamicsSwitch returns a new DynamicsSwitch over the given model
// definitions, starting with models[0], along with the first TimeStep
// of the initial backend.
//
// Options default to trigger.Periodic and trigger.ResetIgnore.
func NewDynamicsSwitch(factory ModelFactory, models []string, threshold int,
	opts ...Option) (*DynamicsSwitch, ts.TimeStep, error) {
	if len(models) == 0 {
		return nil, ts.TimeStep{}, fmt.Errorf("newDynamicsSwitch: %w",
			environment.ErrEmptyVariants)
	}

	c := newConfig(trigger.Periodic, trigger.ResetIgnore, opts)
	trig, err := trigger.New(c.policy, threshold, c.resetRule)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("newDynamicsSwitch: %w", err)
	}

	env, step, err := factory(models[0])
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("newDynamicsSwitch: could "+
			"not construct model %v: %w", models[0], err)
	}

	return &DynamicsSwitch{
		factory:  factory,
		models:   append([]string(nil), models...),
		env:      env,
		trig:     trig,
		observer: c.observer,
	}, step, nil
}

// Step takes one environmental step in the active backend. If the step
// triggers a switch, the backend is replaced before Step returns, and
// the returned TimeStep is the transition observed before the switch.
func (d *DynamicsSwitch) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: %w", d.err)
	}

	step, done, err := d.env.Step(a)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: %w", err)
	}

	if d.trig.RecordStep() {
		if err := d.switchDynamics(trigger.OnStep); err != nil {
			return step, done, fmt.Errorf("step: %w", err)
		}
	}
	return step, done, nil
}

// Reset resets the active backend, switching it first if a switch is
// due according to the wrapper's trigger.ResetRule
func (d *DynamicsSwitch) Reset(opts ...environment.ResetOption) (
	ts.TimeStep, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", d.err)
	}

	if d.trig.CheckOnReset() {
		if err := d.switchDynamics(trigger.OnReset); err != nil {
			return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
		}
	}

	step, err := d.env.Reset(opts...)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
	}
	return step, nil
}

// SwitchDynamics closes the active backend and replaces it with a new,
// freshly reset backend built from the next model definition. If the
// new backend cannot be built, the wrapper becomes unusable.
func (d *DynamicsSwitch) SwitchDynamics() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return fmt.Errorf("switchDynamics: %w", d.err)
	}
	return d.switchDynamics(trigger.Explicit)
}

func (d *DynamicsSwitch) switchDynamics(cause trigger.Cause) error {
	from := d.model()
	before := d.env.ObservationSpec()
	beforeAction := d.env.ActionSpec()

	to := d.models[(d.switches+1)%len(d.models)]

	if err := d.env.Close(); err != nil {
		d.env = nil
		d.err = fmt.Errorf("switchDynamics: could not close model %v: %w",
			from, err)
		return d.err
	}

	// The factory returns the backend already reset
	env, _, err := d.factory(to)
	if err != nil {
		d.env = nil
		d.err = fmt.Errorf("switchDynamics: could not construct model %v: "+
			"%w", to, err)
		return d.err
	}
	d.env = env
	d.switches++

	d.observer.Observe(trigger.Event{
		Kind:     trigger.DynamicsSwitch,
		Cause:    cause,
		Step:     d.trig.Count(),
		Switches: d.switches,
		From:     from,
		To:       to,
		SpecsChanged: !environment.SameShape(before, env.ObservationSpec()) ||
			!environment.SameShape(beforeAction, env.ActionSpec()),
	})
	return nil
}

func (d *DynamicsSwitch) model() string {
	return d.models[d.switches%len(d.models)]
}

// Model returns the name of the active model definition
func (d *DynamicsSwitch) Model() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.model()
}

// Switches returns the number of switches taken
func (d *DynamicsSwitch) Switches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.switches
}

// Count returns the number of steps taken through the wrapper
func (d *DynamicsSwitch) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.trig.Count()
}

// Env returns the active backend
func (d *DynamicsSwitch) Env() environment.Environment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.env
}

// ObservationSpec returns the observation specification of the active
// backend. The specification is not re-validated across switches.
func (d *DynamicsSwitch) ObservationSpec() environment.Spec {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.env == nil {
		return environment.Spec{}
	}
	return d.env.ObservationSpec()
}

// ActionSpec returns the action specification of the active backend
func (d *DynamicsSwitch) ActionSpec() environment.Spec {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.env == nil {
		return environment.Spec{}
	}
	return d.env.ActionSpec()
}

// DiscountSpec returns the discount specification of the active
// backend
func (d *DynamicsSwitch) DiscountSpec() environment.Spec {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.env == nil {
		return environment.Spec{}
	}
	return d.env.DiscountSpec()
}

// Render renders the active backend
func (d *DynamicsSwitch) Render(mode environment.RenderMode) (
	environment.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return environment.Frame{}, fmt.Errorf("render: %w", d.err)
	}
	return d.env.Render(mode)
}

// Close closes the active backend. A closed DynamicsSwitch returns
// ErrClosed from every operation.
func (d *DynamicsSwitch) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err == ErrClosed {
		return nil
	}
	d.err = ErrClosed
	if d.env == nil {
		return nil
	}
	return d.env.Close()
}

func (d *DynamicsSwitch) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fmt.Sprintf("DynamicsSwitch(%v, %v): %v", d.models, d.trig,
		d.model())
}
