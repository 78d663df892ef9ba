// Package walker provides a planar four-jointed locomotion environment
// simulated with Box2D.
//
// A Walker has a box torso with a back and a front leg. Each leg has a
// thigh attached to the torso by a motorized hip joint and a shin
// attached to the thigh by a motorized knee joint. Its dynamics are
// described by a Model, which is loaded from a JSON model definition.
// The agent is rewarded for moving forward and penalized for large
// actions.
package walker

import (
	"fmt"
	"math"

	"github.com/ByteArena/box2d"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/nonstationary/environment"
	ts "github.com/samuelfneumann/nonstationary/timestep"
	"github.com/samuelfneumann/nonstationary/utils/floatutils"
)

const (
	// Joints in action and observation order
	BackHip int = iota
	BackKnee
	FrontHip
	FrontKnee

	Joints int = 4

	// StateObservations is the number of values in an observation: torso
	// height, angle, x and y velocity, angular velocity, and the angle and
	// speed of each joint
	StateObservations int = 5 + 2*Joints

	MinAction float64 = -1.0
	MaxAction float64 = 1.0

	// DefaultStepLimit is the default number of steps per episode
	DefaultStepLimit int = 1000

	VelocityIterations int = 180
	PositionIterations int = 60

	// Ground extends this far to either side of the origin
	GroundExtent float64 = 1000.0
)

// Collision categories: walker parts collide only with the ground
const (
	groundCategory = 0x0001
	walkerCategory = 0x0002
)

// Config configures a Walker independently of its Model
type Config struct {
	Discount float64

	// StepLimit truncates episodes, DefaultStepLimit is used if not
	// positive
	StepLimit int

	Seed uint64
}

// Walker is a planar legged robot. A Walker is not safe for concurrent
// use.
type Walker struct {
	model Model
	world box2d.B2World

	ground *box2d.B2Body
	torso  *box2d.B2Body
	thighs [2]*box2d.B2Body
	shins  [2]*box2d.B2Body
	joints [Joints]*box2d.B2RevoluteJoint

	starter *environment.UniformStarter
	ender   environment.Ender
	limit   int

	actionBounds r1.Interval
	lastAction   *mat.VecDense
	discount     float64
	currentStep  ts.TimeStep
}

// New loads the model definition called model (see LoadModel) and
// returns a new Walker simulating it along with its first TimeStep
func New(model string, c Config) (*Walker, ts.TimeStep, error) {
	m, err := LoadModel(model)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: %w", err)
	}
	return NewFromModel(m, c)
}

// NewFromModel returns a new Walker simulating m along with its first
// TimeStep
func NewFromModel(m Model, c Config) (*Walker, ts.TimeStep, error) {
	if err := m.Validate(); err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("newFromModel: %w", err)
	}

	limit := c.StepLimit
	if limit <= 0 {
		limit = DefaultStepLimit
	}

	noise := r1.Interval{Min: -m.InitNoise, Max: m.InitNoise}
	starter := environment.NewUniformStarter(
		[]r1.Interval{noise, noise, noise}, c.Seed)

	w := &Walker{
		model:        m,
		starter:      starter,
		limit:        limit,
		actionBounds: r1.Interval{Min: MinAction, Max: MaxAction},
		discount:     c.Discount,
	}
	w.ender = environment.NewCompositeEnder(
		environment.NewFunctionEnder(nonFinite, ts.TerminalStateReached),
		environment.NewStepLimit(limit),
	)

	step, err := w.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("newFromModel: %w", err)
	}
	return w, step, nil
}

// Factory returns a function which constructs a Walker from a model
// definition name using configuration c. Each constructed Walker is
// seeded with the next seed after the previous one.
func Factory(c Config) func(model string) (environment.Environment,
	ts.TimeStep, error) {
	return func(model string) (environment.Environment, ts.TimeStep, error) {
		w, step, err := New(model, c)
		c.Seed++
		if err != nil {
			return nil, ts.TimeStep{}, err
		}
		return w, step, nil
	}
}

func nonFinite(obs *mat.VecDense) bool {
	data := obs.RawVector().Data
	if floats.HasNaN(data) {
		return true
	}
	for _, v := range data {
		if math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// Model returns the Walker's model definition
func (w *Walker) Model() Model {
	return w.model
}

// Reset resets the environment, rebuilding the Walker standing at its
// starting height with a small random initial velocity. A seed option
// reseeds the initial velocity noise.
func (w *Walker) Reset(opts ...environment.ResetOption) (ts.TimeStep,
	error) {
	cfg := environment.NewResetConfig(opts...)
	if cfg.Seed != nil {
		w.starter.Seed(*cfg.Seed)
	}

	w.destroy()
	w.world = box2d.MakeB2World(box2d.MakeB2Vec2(0, w.model.Gravity))
	w.build()

	noise := w.starter.Start()
	w.torso.SetLinearVelocity(box2d.MakeB2Vec2(noise.AtVec(0),
		noise.AtVec(1)))
	w.torso.SetAngularVelocity(noise.AtVec(2))

	w.lastAction = mat.NewVecDense(Joints, nil)
	step := ts.New(ts.First, 0, w.discount, w.observation(), 0)
	if nonFinite(step.Observation) {
		return ts.TimeStep{}, fmt.Errorf("reset: model %v produced a "+
			"non-finite starting state", w.model.Name)
	}
	w.currentStep = step
	return step, nil
}

// build creates the ground and all bodies and joints of the Walker
func (w *Walker) build() {
	m := w.model

	groundDef := box2d.MakeB2BodyDef()
	groundDef.Type = 0 // Static body
	w.ground = w.world.CreateBody(&groundDef)
	groundShape := box2d.NewB2EdgeShape()
	groundShape.Set(box2d.MakeB2Vec2(-GroundExtent, 0),
		box2d.MakeB2Vec2(GroundExtent, 0))
	groundFix := box2d.MakeB2FixtureDef()
	groundFix.Shape = groundShape
	groundFix.Friction = m.Friction
	groundFilter := box2d.MakeB2Filter()
	groundFilter.CategoryBits = groundCategory
	groundFix.Filter = groundFilter
	w.ground.CreateFixtureFromDef(&groundFix)

	w.torso = w.box(0, m.StartHeight, m.Torso.Length/2, m.Torso.Height/2,
		m.Torso.Density)

	thighY := m.StartHeight - m.Thigh.Length/2
	shinY := m.StartHeight - m.Thigh.Length - m.Shin.Length/2
	for i, side := range []float64{-1.0, 1.0} {
		hipX := side * m.Torso.Length / 2

		w.thighs[i] = w.box(hipX, thighY, m.Thigh.Width/2, m.Thigh.Length/2,
			m.Thigh.Density)
		w.shins[i] = w.box(hipX, shinY, m.Shin.Width/2, m.Shin.Length/2,
			m.Shin.Density)

		w.joints[2*i] = w.joint(w.torso, w.thighs[i],
			box2d.MakeB2Vec2(hipX, 0), m.Thigh.Length/2, m.Hip)
		w.joints[2*i+1] = w.joint(w.thighs[i], w.shins[i],
			box2d.MakeB2Vec2(0, -m.Thigh.Length/2), m.Shin.Length/2, m.Knee)
	}
}

// box creates a dynamic box body centred at (x, y) with half extents
// hw and hh
func (w *Walker) box(x, y, hw, hh, density float64) *box2d.B2Body {
	def := box2d.MakeB2BodyDef()
	def.Type = 2 // Dynamic body
	def.Position = box2d.MakeB2Vec2(x, y)
	body := w.world.CreateBody(&def)

	shape := box2d.NewB2PolygonShape()
	shape.SetAsBox(hw, hh)

	fix := box2d.MakeB2FixtureDef()
	fix.Shape = shape
	fix.Density = density
	fix.Friction = w.model.Friction
	fix.Restitution = 0.0
	filter := box2d.MakeB2Filter()
	filter.CategoryBits = walkerCategory
	filter.MaskBits = groundCategory
	fix.Filter = filter
	body.CreateFixtureFromDef(&fix)

	return body
}

// joint attaches child below parent at anchor (in parent coordinates)
// with a motorized, limited revolute joint
func (w *Walker) joint(parent, child *box2d.B2Body, anchor box2d.B2Vec2,
	childHalfLength float64, j Joint) *box2d.B2RevoluteJoint {
	rjd := box2d.MakeB2RevoluteJointDef()
	rjd.BodyA = parent
	rjd.BodyB = child
	rjd.LocalAnchorA = anchor
	rjd.LocalAnchorB = box2d.MakeB2Vec2(0, childHalfLength)
	rjd.EnableMotor = true
	rjd.EnableLimit = true
	rjd.MaxMotorTorque = j.Torque
	rjd.MotorSpeed = 0.0
	rjd.LowerAngle = j.Lower
	rjd.UpperAngle = j.Upper

	return w.world.CreateJoint(&rjd).(*box2d.B2RevoluteJoint)
}

// destroy removes all bodies, and so all joints, from the world
func (w *Walker) destroy() {
	if w.torso == nil {
		return
	}
	for i := range w.thighs {
		w.world.DestroyBody(w.shins[i])
		w.world.DestroyBody(w.thighs[i])
	}
	w.world.DestroyBody(w.torso)
	w.world.DestroyBody(w.ground)

	w.torso, w.ground = nil, nil
	w.thighs, w.shins = [2]*box2d.B2Body{}, [2]*box2d.B2Body{}
	w.joints = [Joints]*box2d.B2RevoluteJoint{}
}

// Step takes one environmental step given action a, which sets the
// motor of each joint. Actions are clipped to [-1, 1].
func (w *Walker) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if w.torso == nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: walker is closed")
	}
	if a.Len() != Joints {
		return ts.TimeStep{}, false, fmt.Errorf("step: actions must be "+
			"%d-dimensional, got %d dimensions", Joints, a.Len())
	}

	action := mat.NewVecDense(Joints, nil)
	for i := 0; i < Joints; i++ {
		action.SetVec(i, floatutils.ClipInterval(a.AtVec(i), w.actionBounds))
	}

	for i, joint := range w.joints {
		spec := w.model.Hip
		if i%2 == 1 {
			spec = w.model.Knee
		}
		u := action.AtVec(i)
		joint.SetMotorSpeed(math.Copysign(spec.Speed, u))
		joint.SetMaxMotorTorque(spec.Torque * math.Abs(u))
	}

	xBefore := w.torso.GetPosition().X
	for i := 0; i < w.model.FrameSkip; i++ {
		w.world.Step(w.model.Timestep, VelocityIterations, PositionIterations)
	}
	xAfter := w.torso.GetPosition().X
	w.lastAction = action

	forward := (xAfter - xBefore) / (w.model.Timestep *
		float64(w.model.FrameSkip))
	control := w.model.ControlCost * mat.Dot(action, action)

	step := ts.New(ts.Mid, forward-control, w.discount, w.observation(),
		w.currentStep.Number+1)
	step.SetInfo("x_position", xAfter)
	step.SetInfo("forward_velocity", forward)
	step.SetInfo("control_cost", control)
	w.ender.End(&step)

	w.currentStep = step
	return step, step.Last(), nil
}

func (w *Walker) observation() *mat.VecDense {
	pos := w.torso.GetPosition()
	vel := w.torso.GetLinearVelocity()

	obs := make([]float64, 0, StateObservations)
	obs = append(obs, pos.Y, w.torso.GetAngle(), vel.X, vel.Y,
		w.torso.GetAngularVelocity())
	for _, j := range w.joints {
		obs = append(obs, j.GetJointAngle())
	}
	for _, j := range w.joints {
		obs = append(obs, j.GetJointSpeed())
	}

	if len(obs) != StateObservations {
		panic(fmt.Sprintf("observation: illegal number of state "+
			"observations \n\twant(%v) \n\thave(%v)", StateObservations,
			len(obs)))
	}
	return mat.NewVecDense(StateObservations, obs)
}

// CurrentTimeStep returns the current TimeStep in the environment
func (w *Walker) CurrentTimeStep() ts.TimeStep {
	return w.currentStep
}

// StepLimit returns the number of steps after which episodes are
// truncated
func (w *Walker) StepLimit() int {
	return w.limit
}

// Position returns the torso's position in world coordinates
func (w *Walker) Position() (x, y float64) {
	pos := w.torso.GetPosition()
	return pos.X, pos.Y
}

// ObservationSpec returns the observation specification of the
// environment
func (w *Walker) ObservationSpec() environment.Spec {
	low := make([]float64, StateObservations)
	high := make([]float64, StateObservations)
	for i := range low {
		low[i], high[i] = math.Inf(-1), math.Inf(1)
	}

	// Torso height
	low[0] = 0.0

	// Joint angles
	for i := 0; i < Joints; i++ {
		spec := w.model.Hip
		if i%2 == 1 {
			spec = w.model.Knee
		}
		low[5+i], high[5+i] = spec.Lower, spec.Upper
	}

	return environment.NewBoundedSpec(environment.Observation, low, high,
		environment.Continuous)
}

// ActionSpec returns the action specification of the environment
func (w *Walker) ActionSpec() environment.Spec {
	low := make([]float64, Joints)
	high := make([]float64, Joints)
	for i := range low {
		low[i], high[i] = MinAction, MaxAction
	}
	return environment.NewBoundedSpec(environment.Action, low, high,
		environment.Continuous)
}

// DiscountSpec returns the discount specification of the environment
func (w *Walker) DiscountSpec() environment.Spec {
	return environment.NewBoundedSpec(environment.Discount,
		[]float64{w.discount}, []float64{w.discount}, environment.Continuous)
}

// Close destroys the simulated Walker. A closed Walker can be brought
// back with Reset.
func (w *Walker) Close() error {
	w.destroy()
	return nil
}

func (w *Walker) String() string {
	if w.torso == nil {
		return fmt.Sprintf("Walker | Model: %v  |  closed", w.model.Name)
	}
	x, y := w.Position()
	return fmt.Sprintf("Walker | Model: %v  |  At: (%.2f, %.2f)  |  "+
		"Step: %d", w.model.Name, x, y, w.currentStep.Number)
}
