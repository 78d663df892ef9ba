// Package experiment implements functionality for running rollouts in
// (possibly non-stationary) environments
package experiment

import (
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/nonstationary/environment"
	ts "github.com/samuelfneumann/nonstationary/timestep"
)

// Policy selects actions in an environment. The current action
// specification is passed on every call, since the environment behind
// a wrapper may change between two steps.
type Policy interface {
	SelectAction(t ts.TimeStep, spec environment.Spec) *mat.VecDense
}

// UnboundedAction is the bound used by Random in place of infinite
// continuous action bounds
const UnboundedAction float64 = 1.0

// Random selects actions uniformly at random from the bounds of the
// action specification. Discrete actions are sampled from the integers
// within the bounds.
type Random struct {
	seed   uint64
	source rand.Source
}

// NewRandom returns a new Random policy
func NewRandom(seed uint64) *Random {
	return &Random{seed: seed, source: rand.NewSource(seed)}
}

// SelectAction samples an action from spec
func (r *Random) SelectAction(_ ts.TimeStep,
	spec environment.Spec) *mat.VecDense {
	n := spec.Shape.Len()

	if spec.Cardinality == environment.Discrete {
		action := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			min := math.Ceil(spec.LowerBound.AtVec(i))
			max := math.Floor(spec.UpperBound.AtVec(i))

			u := distuv.Uniform{Min: min, Max: max + 1, Src: r.source}
			action.SetVec(i, math.Min(math.Floor(u.Rand()), max))
		}
		return action
	}

	bounds := make([]r1.Interval, n)
	for i := range bounds {
		bounds[i] = r1.Interval{
			Min: math.Max(spec.LowerBound.AtVec(i), -UnboundedAction),
			Max: math.Min(spec.UpperBound.AtVec(i), UnboundedAction),
		}
	}
	u := distmv.NewUniform(bounds, r.source)
	return mat.NewVecDense(n, u.Rand(nil))
}

// Seed returns the seed of the policy
func (r *Random) Seed() uint64 {
	return r.seed
}
