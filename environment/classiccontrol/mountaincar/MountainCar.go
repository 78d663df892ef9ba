// Package mountaincar implements the Mountain Car classic control
// environment
package mountaincar

import (
	"fmt"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/nonstationary/environment"
	ts "github.com/samuelfneumann/nonstationary/timestep"
	"github.com/samuelfneumann/nonstationary/utils/floatutils"
)

const (
	MinPosition float64 = -1.2
	MaxPosition float64 = 0.6
	MaxSpeed    float64 = 0.07
	Power       float64 = 0.0015 // Engine power
	Gravity     float64 = 0.0025

	// Commonly used goal position
	GoalPosition float64 = 0.45

	// Starting positions are drawn uniformly from this interval, with
	// zero velocity
	MinStartPosition float64 = -0.6
	MaxStartPosition float64 = -0.4

	// Discrete Actions
	MinDiscreteAction int = 0
	MaxDiscreteAction int = 2

	Observations     int = 2
	DefaultStepLimit int = 200
)

// Rendering constants
const (
	ViewportW = 600
	ViewportH = 400
	CarRadius = 10.0
	textWidth = 16
)

// Config configures a MountainCar
type Config struct {
	Discount float64

	// StepLimit truncates episodes, DefaultStepLimit is used if not
	// positive
	StepLimit int

	Seed uint64
}

// MountainCar implements the classic control task of reaching a goal on
// a hill with an underpowered car, which must rock back and forth from
// hill to hill until it reaches the goal.
//
// The state consists of the car's x position and velocity. Actions are
// discrete:
//
//	Action	Meaning
//	  0		Accelerate left
//	  1		Do nothing
//	  2		Accelerate right
//
// Rewards are -1 on each timestep and 0 for the action which
// transitions the car to the goal. Episodes terminate at the goal and
// are truncated after the step limit.
type MountainCar struct {
	starter *env.UniformStarter
	ender   env.Ender

	positionBounds r1.Interval
	speedBounds    r1.Interval

	discount float64
	lastStep ts.TimeStep
	closed   bool
}

// New creates a new MountainCar and returns it along with its first
// TimeStep
func New(c Config) (*MountainCar, ts.TimeStep, error) {
	limit := c.StepLimit
	if limit <= 0 {
		limit = DefaultStepLimit
	}

	start := []r1.Interval{
		{Min: MinStartPosition, Max: MaxStartPosition},
		{Min: 0, Max: 0},
	}
	atGoal := func(state *mat.VecDense) bool {
		return state.AtVec(0) >= GoalPosition
	}

	m := &MountainCar{
		starter:        env.NewUniformStarter(start, c.Seed),
		positionBounds: r1.Interval{Min: MinPosition, Max: MaxPosition},
		speedBounds:    r1.Interval{Min: -MaxSpeed, Max: MaxSpeed},
		discount:       c.Discount,
		ender: env.NewCompositeEnder(
			env.NewFunctionEnder(atGoal, ts.TerminalStateReached),
			env.NewStepLimit(limit),
		),
	}

	step, err := m.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: %w", err)
	}
	return m, step, nil
}

// Factory returns a function constructing a new MountainCar on each
// call. Each MountainCar is seeded with the next seed after the
// previous one.
func Factory(c Config) func() (env.Environment, ts.TimeStep, error) {
	return func() (env.Environment, ts.TimeStep, error) {
		m, step, err := New(c)
		c.Seed++
		if err != nil {
			return nil, ts.TimeStep{}, err
		}
		return m, step, nil
	}
}

// Name returns the name of the environment
func (m *MountainCar) Name() string {
	return "MountainCar"
}

// Reset resets the environment and returns a starting state drawn from
// the start distribution
func (m *MountainCar) Reset(opts ...env.ResetOption) (ts.TimeStep, error) {
	if m.closed {
		return ts.TimeStep{}, fmt.Errorf("reset: environment closed")
	}

	cfg := env.NewResetConfig(opts...)
	if cfg.Seed != nil {
		m.starter.Seed(*cfg.Seed)
	}

	startStep := ts.New(ts.First, 0, m.discount, m.starter.Start(), 0)
	m.lastStep = startStep
	return startStep, nil
}

// Step takes one environmental step given action a
func (m *MountainCar) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if m.closed {
		return ts.TimeStep{}, true, fmt.Errorf("step: environment closed")
	}

	if a.Len() != 1 {
		return ts.TimeStep{}, true, fmt.Errorf("step: actions should be " +
			"1-dimensional")
	}
	action := int(a.AtVec(0))
	if action < MinDiscreteAction || action > MaxDiscreteAction {
		return ts.TimeStep{}, true, fmt.Errorf("step: illegal action %v "+
			"∉ (0, 1, 2)", action)
	}
	force := float64(action - 1)

	state := m.lastStep.Observation
	position, velocity := state.AtVec(0), state.AtVec(1)

	velocity += force*Power - Gravity*math.Cos(3*position)
	velocity = floatutils.ClipInterval(velocity, m.speedBounds)

	position += velocity
	position = floatutils.ClipInterval(position, m.positionBounds)

	// The left wall is inelastic
	if position <= m.positionBounds.Min && velocity < 0 {
		velocity = 0
	}

	next := mat.NewVecDense(Observations, []float64{position, velocity})
	reward := -1.0
	if position >= GoalPosition {
		reward = 0.0
	}

	nextStep := ts.New(ts.Mid, reward, m.discount, next,
		m.lastStep.Number+1)
	m.ender.End(&nextStep)

	m.lastStep = nextStep
	return nextStep, nextStep.Last(), nil
}

// CurrentTimeStep returns the last TimeStep of the environment
func (m *MountainCar) CurrentTimeStep() ts.TimeStep {
	return m.lastStep
}

// ActionSpec returns the action specification of the environment
func (m *MountainCar) ActionSpec() env.Spec {
	return env.NewBoundedSpec(env.Action,
		[]float64{float64(MinDiscreteAction)},
		[]float64{float64(MaxDiscreteAction)}, env.Discrete)
}

// ObservationSpec returns the observation specification of the
// environment
func (m *MountainCar) ObservationSpec() env.Spec {
	return env.NewBoundedSpec(env.Observation,
		[]float64{m.positionBounds.Min, m.speedBounds.Min},
		[]float64{m.positionBounds.Max, m.speedBounds.Max}, env.Continuous)
}

// DiscountSpec returns the discounting specification of the environment
func (m *MountainCar) DiscountSpec() env.Spec {
	return env.NewBoundedSpec(env.Discount, []float64{m.discount},
		[]float64{m.discount}, env.Continuous)
}

// Render renders the environment. ANSI renders the car on a text
// track, RGBArray and Human draw the hill and car.
func (m *MountainCar) Render(mode env.RenderMode) (env.Frame, error) {
	switch mode {
	case env.ANSI:
		return env.Frame{Text: m.track()}, nil

	case env.RGBArray, env.Human:
		return env.Frame{Image: m.rgb().Image()}, nil
	}

	return env.Frame{}, fmt.Errorf("render: unsupported render mode %q",
		mode)
}

// track renders the car's position along a text track ending at the
// goal flag
func (m *MountainCar) track() string {
	x := m.fraction(m.lastStep.Observation.AtVec(0))
	car := int(x * float64(textWidth-1))

	var b strings.Builder
	for i := 0; i < textWidth; i++ {
		switch {
		case i == car:
			b.WriteString("C")
		case i == textWidth-1:
			b.WriteString("|")
		default:
			b.WriteString("=")
		}
	}
	return b.String()
}

// fraction maps position to [0, 1] across the track
func (m *MountainCar) fraction(position float64) float64 {
	return (position - m.positionBounds.Min) /
		(m.positionBounds.Max - m.positionBounds.Min)
}

// height returns the pixel height of the hill at position
func height(position float64) float64 {
	return ViewportH/2 - 100*math.Sin(3*position)
}

func (m *MountainCar) rgb() *gg.Context {
	dc := gg.NewContext(ViewportW, ViewportH)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB(0, 0, 0)
	for i := 0; i <= ViewportW; i += 10 {
		p := m.positionBounds.Min + float64(i)/ViewportW*
			(m.positionBounds.Max-m.positionBounds.Min)
		dc.LineTo(float64(i), height(p))
	}
	dc.Stroke()

	flag := m.fraction(GoalPosition) * ViewportW
	dc.SetRGB(0.9, 0.8, 0)
	dc.DrawLine(flag, height(GoalPosition), flag, height(GoalPosition)-40)
	dc.Stroke()

	position := m.lastStep.Observation.AtVec(0)
	dc.SetRGB(0.2, 0.2, 0.8)
	dc.DrawCircle(m.fraction(position)*ViewportW, height(position)-CarRadius,
		CarRadius)
	dc.Fill()
	return dc
}

// Close closes the environment
func (m *MountainCar) Close() error {
	m.closed = true
	return nil
}

// String returns a string representation of the environment
func (m *MountainCar) String() string {
	str := "Mountain Car  |  Position: %.3f  |  Speed: %.3f"
	state := m.lastStep.Observation
	return fmt.Sprintf(str, state.AtVec(0), state.AtVec(1))
}
