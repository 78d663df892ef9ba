// Package gym provides access to OpenAI Gym environments as backends
// for the non-stationary wrappers.
//
// All environments only work with their default tasks and episode
// cutoffs. Gym does not distinguish terminated from truncated
// episodes, so every episode ends as terminated unless the Gym
// environment reports a "TimeLimit.truncated" info flag, which GoGym
// does not expose.
//
// This is made possible through the Go bindings for OpenAI Gym,
// found at https://github.com/samuelfneumann/GoGym.
package gym

import (
	"errors"
	"fmt"

	"github.com/samuelfneumann/gogym"
	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/nonstationary/environment"
	ts "github.com/samuelfneumann/nonstationary/timestep"
)

// ErrRender is returned when rendering a GymEnv
var ErrRender = errors.New("rendering is not supported for Gym environments")

// GymEnv implements access to an OpenAI Gym environment using GoGym
type GymEnv struct {
	gym  gogym.Environment
	name string

	currentStep ts.TimeStep
	discount    float64
}

// New returns a new GymEnv with the given name, which must be a legal
// name from the OpenAI Gym suite.
func New(name string, discount float64, seed uint64) (*GymEnv,
	ts.TimeStep, error) {
	goGymEnv, err := gogym.Make(name)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: could not create "+
			"environment %v: %w", name, err)
	}

	g := &GymEnv{
		gym:      goGymEnv,
		name:     name,
		discount: discount,
	}

	step, err := g.Reset(env.WithSeed(seed))
	if err != nil {
		g.Close()
		return nil, ts.TimeStep{}, fmt.Errorf("new: %w", err)
	}
	return g, step, nil
}

// Factory returns a function constructing the Gym environment name.
// Each call seeds its environment with the next seed after seed.
func Factory(name string, discount float64, seed uint64) func() (
	env.Environment, ts.TimeStep, error) {
	return func() (env.Environment, ts.TimeStep, error) {
		g, step, err := New(name, discount, seed)
		seed++
		if err != nil {
			return nil, ts.TimeStep{}, err
		}
		return g, step, nil
	}
}

// Name returns the Gym name of the environment
func (g *GymEnv) Name() string {
	return g.name
}

// Step takes a single environmental step
func (g *GymEnv) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	obs, reward, done, err := g.gym.Step(a)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: could not step "+
			"GoGym environment %v: %w", g.name, err)
	}

	t := ts.New(ts.Mid, reward, g.discount, obs, g.currentStep.Number+1)
	if done {
		t.StepType = ts.Last
		t.SetEnd(ts.TerminalStateReached)
	}
	g.currentStep = t

	return t, done, nil
}

// Reset resets the environment to some starting state, reseeding it
// first if a seed is given. Options are ignored.
func (g *GymEnv) Reset(opts ...env.ResetOption) (ts.TimeStep, error) {
	cfg := env.NewResetConfig(opts...)
	if cfg.Seed != nil {
		g.gym.Seed(int(*cfg.Seed))
	}

	obs, err := g.gym.Reset()
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not reset "+
			"environment %v: %w", g.name, err)
	}

	t := ts.New(ts.First, 0, g.discount, obs, 0)
	g.currentStep = t

	return t, nil
}

// CurrentTimeStep returns the current timestep in the environment
func (g *GymEnv) CurrentTimeStep() ts.TimeStep {
	return g.currentStep
}

// ObservationSpec returns the observation spec of the environment
func (g *GymEnv) ObservationSpec() env.Spec {
	return spec(g.gym.ObservationSpace(), env.Observation)
}

// ActionSpec returns the action specification of the environment
func (g *GymEnv) ActionSpec() env.Spec {
	return spec(g.gym.ActionSpace(), env.Action)
}

// gymSpace is the part of a GoGym space needed to build a Spec
type gymSpace interface {
	Low() []*mat.VecDense
	High() []*mat.VecDense
}

func spec(space gymSpace, t env.SpecType) env.Spec {
	var cardinality env.Cardinality
	switch space.(type) {
	case *gogym.BoxSpace:
		cardinality = env.Continuous
	case *gogym.DiscreteSpace:
		cardinality = env.Discrete
	default:
		panic("spec: invalid space type, package gym supports only " +
			"GoGym's BoxSpace or DiscreteSpace")
	}

	low := space.Low()[0]
	high := space.High()[0]
	shape := mat.NewVecDense(low.Len(), nil)
	return env.NewSpec(shape, t, low, high, cardinality)
}

// DiscountSpec returns the discount specification of the environment
func (g *GymEnv) DiscountSpec() env.Spec {
	return env.NewBoundedSpec(env.Discount, []float64{g.discount},
		[]float64{g.discount}, env.Continuous)
}

// Render implements the environment.Environment interface. It always
// returns ErrRender.
func (g *GymEnv) Render(env.RenderMode) (env.Frame, error) {
	return env.Frame{}, fmt.Errorf("render: %v: %w", g.name, ErrRender)
}

// Close performs resource cleanup after the environment is no longer
// needed
func (g *GymEnv) Close() error {
	g.gym.Close()
	return nil
}
