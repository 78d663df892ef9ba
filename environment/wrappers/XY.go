package wrappers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/nonstationary/environment"
	ts "github.com/samuelfneumann/nonstationary/timestep"
	"github.com/samuelfneumann/nonstationary/utils/floatutils"
)

// RowColer is a gridworld with one-hot observations whose dimensions
// may change over time. Both *gridworld.GridWorld and *LayoutSwitch are
// RowColers.
type RowColer interface {
	env.Environment
	Dims() (r, c int)
}

// XY converts one-hot state encodings of a RowColer to the
// corresponding (x, y) == (col, row) coordinates. Coordinates are
// computed from the dimensions at the time of each step, so XY keeps
// working across layout switches.
type XY struct {
	RowColer

	currentTimeStep ts.TimeStep
}

// NewXY returns a new XY environment wrapper
func NewXY(e RowColer) *XY {
	return &XY{RowColer: e}
}

// Reset resets the environment to some starting state
func (x *XY) Reset(opts ...env.ResetOption) (ts.TimeStep, error) {
	step, err := x.RowColer.Reset(opts...)
	if err != nil {
		return ts.TimeStep{}, err
	}

	rows, cols := x.Dims()
	newObs, err := x.getObs(step.Observation, rows, cols)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not calculate "+
			"observation: %v", err)
	}

	step.Observation = newObs
	x.currentTimeStep = step

	return step, nil
}

// Step takes one environmental step given some action
func (x *XY) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	rows, cols := x.Dims()
	step, done, err := x.RowColer.Step(action)
	if err != nil {
		return ts.TimeStep{}, true, err
	}

	newObs, err := x.getObs(step.Observation, rows, cols)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: could not calculate "+
			"observation: %v", err)
	}

	step.Observation = newObs
	x.currentTimeStep = step

	return step, done, nil
}

// CurrentTimeStep returns the current time step in the environment
func (x *XY) CurrentTimeStep() ts.TimeStep {
	return x.currentTimeStep
}

// getObs returns the (x, y) version of a one-hot encoded vector of a
// (rows, cols) grid. A step that switches the layout returns the
// observation of the old layout, so callers pass the dimensions from
// before the step.
func (x *XY) getObs(obs *mat.VecDense, rows, cols int) (*mat.VecDense,
	error) {
	index := floatutils.Where(
		obs.RawVector().Data,
		func(v float64) bool {
			return v == 1.0
		},
	)
	if len(index) != 1 {
		return nil, fmt.Errorf("getObs: vector is not one-hot")
	}

	if obs.Len() != rows*cols {
		return nil, fmt.Errorf("getObs: one-hot vector of length %d does "+
			"not match (%d, %d) grid", obs.Len(), rows, cols)
	}

	row := index[0] / cols
	col := index[0] % cols
	return mat.NewVecDense(2, []float64{float64(col), float64(row)}), nil
}

// ObservationSpec returns the observation specification of the
// environment
func (x *XY) ObservationSpec() env.Spec {
	rows, cols := x.Dims()
	return env.NewBoundedSpec(env.Observation, []float64{0, 0},
		[]float64{float64(cols - 1), float64(rows - 1)}, env.Discrete)
}

// String returns the string representation of the environment
func (x *XY) String() string {
	return fmt.Sprintf("XY: %v", x.RowColer)
}
