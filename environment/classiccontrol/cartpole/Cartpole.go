// Package cartpole implements the Cartpole classic control environment
package cartpole

import (
	"fmt"
	"math"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/nonstationary/environment"
	ts "github.com/samuelfneumann/nonstationary/timestep"
	"github.com/samuelfneumann/nonstationary/utils/floatutils"
)

const (
	// Physical constants
	Gravity        float64 = 9.8
	CartMass       float64 = 1.0
	PoleMass       float64 = 0.1
	HalfPoleLength float64 = 0.5  // half of pole length
	ForceMag       float64 = 10.0 // Magnification of force applied
	Dt             float64 = 0.02 // seconds between state updates

	// Bounds (+/-) on state variables
	PositionBounds        float64 = 2.4
	SpeedBounds           float64 = math.MaxFloat64
	AngleBounds           float64 = math.Pi
	AngularVelocityBounds float64 = math.MaxFloat64

	// FailAngle is the pole angle past which the episode ends
	FailAngle float64 = 12 * 2 * math.Pi / 360

	// StartBound bounds (+/-) each feature of the starting state
	StartBound float64 = 0.05

	// Discrete Actions
	ActionDims        int = 1
	MinDiscreteAction int = 0
	MaxDiscreteAction int = 2

	Observations     int = 4
	DefaultStepLimit int = 500
)

// Rendering constants
const (
	ViewportW   = 600
	ViewportH   = 400
	CartWidth   = 50.0
	CartHeight  = 30.0
	PoleWidth   = 10.0
	PolePixels  = 150.0
	TrackPixelY = 300.0
)

// Config configures a Cartpole
type Config struct {
	Discount float64

	// StepLimit truncates episodes, DefaultStepLimit is used if not
	// positive
	StepLimit int

	Seed uint64
}

// Cartpole implements the classic control environment Cartpole with
// discrete actions. In this environment, a pole is attached to a cart,
// which can move horizontally. The agent must keep the pole upright
// for as long as possible.
//
// The state features are continuous and consist of the cart's x
// position and speed, as well as the pole's angle from the positive
// y-axis and the pole's angular velocity.
//
// Actions are discrete and consist of the force applied to the cart:
//
//	Action	Meaning
//	  0		Accelerate left
//	  1		Do nothing
//	  2		Accelerate right
//
// Rewards are +1 on each step. Episodes terminate when the pole falls
// past FailAngle or the cart leaves the track, and are truncated after
// the step limit.
type Cartpole struct {
	starter *env.UniformStarter
	ender   env.Ender

	discount float64
	lastStep ts.TimeStep
	closed   bool
}

// New constructs a new Cartpole environment
func New(c Config) (*Cartpole, ts.TimeStep, error) {
	limit := c.StepLimit
	if limit <= 0 {
		limit = DefaultStepLimit
	}

	bound := r1.Interval{Min: -StartBound, Max: StartBound}
	bounds := []r1.Interval{bound, bound, bound, bound}

	cartpole := &Cartpole{
		starter:  env.NewUniformStarter(bounds, c.Seed),
		discount: c.Discount,
		ender: env.NewCompositeEnder(
			env.NewFunctionEnder(failed, ts.TerminalStateReached),
			env.NewStepLimit(limit),
		),
	}

	step, err := cartpole.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: %w", err)
	}
	return cartpole, step, nil
}

// Factory returns a function constructing a new Cartpole on each call.
// Each Cartpole is seeded with the next seed after the previous one.
func Factory(c Config) func() (env.Environment, ts.TimeStep, error) {
	return func() (env.Environment, ts.TimeStep, error) {
		cartpole, step, err := New(c)
		c.Seed++
		if err != nil {
			return nil, ts.TimeStep{}, err
		}
		return cartpole, step, nil
	}
}

func failed(state *mat.VecDense) bool {
	return math.Abs(state.AtVec(0)) >= PositionBounds ||
		math.Abs(state.AtVec(2)) >= FailAngle
}

// Name returns the name of the environment
func (c *Cartpole) Name() string {
	return "Cartpole"
}

// Reset resets the environment and returns a starting state drawn
// uniformly from [-StartBound, StartBound]
func (c *Cartpole) Reset(opts ...env.ResetOption) (ts.TimeStep, error) {
	if c.closed {
		return ts.TimeStep{}, fmt.Errorf("reset: environment closed")
	}

	cfg := env.NewResetConfig(opts...)
	if cfg.Seed != nil {
		c.starter.Seed(*cfg.Seed)
	}

	startStep := ts.New(ts.First, 0, c.discount, c.starter.Start(), 0)
	c.lastStep = startStep
	return startStep, nil
}

// Step takes one environmental step given action a and returns the next
// state as a timestep.TimeStep and a bool indicating whether or not the
// episode has ended
func (c *Cartpole) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if c.closed {
		return ts.TimeStep{}, true, fmt.Errorf("step: environment closed")
	}
	if a.Len() != ActionDims {
		return ts.TimeStep{}, true, fmt.Errorf("step: actions should be "+
			"%d-dimensional", ActionDims)
	}

	// Ensure a legal action was selected
	action := int(a.AtVec(0))
	if action < MinDiscreteAction || action > MaxDiscreteAction {
		return ts.TimeStep{}, true, fmt.Errorf("step: illegal action %v "+
			"∉ (0, 1, 2)", action)
	}

	// Convert action (0, 1, 2) to a force in direction (-1, 0, 1)
	force := ForceMag * float64(action-1)

	state := c.lastStep.Observation
	x, xDot := state.AtVec(0), state.AtVec(1)
	th, thDot := state.AtVec(2), state.AtVec(3)

	cosTheta := math.Cos(th)
	sinTheta := math.Sin(th)

	totalMass := PoleMass + CartMass
	poleMassLength := PoleMass * HalfPoleLength

	temp := (force + poleMassLength*thDot*thDot*sinTheta) / totalMass
	thAcc := (Gravity*sinTheta - cosTheta*temp) / (HalfPoleLength *
		(4.0/3.0 - PoleMass*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thAcc*cosTheta/totalMass

	// Euler kinematic integration
	x += Dt * xDot
	x = floatutils.Clip(x, -PositionBounds, PositionBounds)
	xDot += Dt * xAcc
	th = normalizeAngle(th + Dt*thDot)
	thDot += Dt * thAcc

	next := mat.NewVecDense(Observations, []float64{x, xDot, th, thDot})
	nextStep := ts.New(ts.Mid, 1.0, c.discount, next, c.lastStep.Number+1)
	c.ender.End(&nextStep)

	c.lastStep = nextStep
	return nextStep, nextStep.Last(), nil
}

// normalizeAngle wraps th into (-π, π]
func normalizeAngle(th float64) float64 {
	th = math.Mod(th+AngleBounds, 2*AngleBounds)
	if th <= 0 {
		th += 2 * AngleBounds
	}
	return th - AngleBounds
}

// CurrentTimeStep returns the last TimeStep of the environment
func (c *Cartpole) CurrentTimeStep() ts.TimeStep {
	return c.lastStep
}

// ActionSpec returns the action specification of the environment
func (c *Cartpole) ActionSpec() env.Spec {
	return env.NewBoundedSpec(env.Action,
		[]float64{float64(MinDiscreteAction)},
		[]float64{float64(MaxDiscreteAction)}, env.Discrete)
}

// ObservationSpec returns the observation specification of the
// environment
func (c *Cartpole) ObservationSpec() env.Spec {
	lower := []float64{-PositionBounds, -SpeedBounds, -AngleBounds,
		-AngularVelocityBounds}
	upper := []float64{PositionBounds, SpeedBounds, AngleBounds,
		AngularVelocityBounds}
	return env.NewBoundedSpec(env.Observation, lower, upper, env.Continuous)
}

// DiscountSpec returns the discounting specification of the environment
func (c *Cartpole) DiscountSpec() env.Spec {
	return env.NewBoundedSpec(env.Discount, []float64{c.discount},
		[]float64{c.discount}, env.Continuous)
}

// Render renders the environment. ANSI renders a one-line summary,
// RGBArray and Human draw the cart and pole.
func (c *Cartpole) Render(mode env.RenderMode) (env.Frame, error) {
	switch mode {
	case env.ANSI:
		return env.Frame{Text: c.String()}, nil

	case env.RGBArray, env.Human:
		state := c.lastStep.Observation
		scale := ViewportW / (2 * PositionBounds)
		cartX := ViewportW/2 + state.AtVec(0)*scale

		dc := gg.NewContext(ViewportW, ViewportH)
		dc.SetRGB(1, 1, 1)
		dc.Clear()

		dc.SetRGB(0, 0, 0)
		dc.DrawLine(0, TrackPixelY, ViewportW, TrackPixelY)
		dc.Stroke()
		dc.DrawRectangle(cartX-CartWidth/2, TrackPixelY-CartHeight/2,
			CartWidth, CartHeight)
		dc.Fill()

		th := state.AtVec(2)
		dc.SetRGB(0.8, 0.6, 0.4)
		dc.SetLineWidth(PoleWidth)
		dc.DrawLine(cartX, TrackPixelY, cartX+PolePixels*math.Sin(th),
			TrackPixelY-PolePixels*math.Cos(th))
		dc.Stroke()

		return env.Frame{Image: dc.Image()}, nil
	}

	return env.Frame{}, fmt.Errorf("render: unsupported render mode %q",
		mode)
}

// Close closes the environment
func (c *Cartpole) Close() error {
	c.closed = true
	return nil
}

func (c *Cartpole) String() string {
	msg := "Cartpole  |  Position: %.3f  |  Speed: %.3f  |  Angle: %.3f" +
		"  |  Angular Velocity: %.3f"

	state := c.lastStep.Observation
	return fmt.Sprintf(msg, state.AtVec(0), state.AtVec(1), state.AtVec(2),
		state.AtVec(3))
}
