package environment

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// CategoricalStarter samples a single index from a categorical
// distribution over (0, 1, 2, ... N-1) with given probabilities and
// returns it as a 1-dimensional starting state.
type CategoricalStarter struct {
	weights []float64
	seed    uint64
	rand    distuv.Categorical
}

// NewCategoricalStarter returns a new CategoricalStarter sampling index
// i with probability proportional to weights[i]. At least one weight
// must be positive and none may be negative.
func NewCategoricalStarter(weights []float64,
	seed uint64) (*CategoricalStarter, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("newCategoricalStarter: no weights")
	}
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("newCategoricalStarter: weight %d is "+
				"negative (%v)", i, w)
		}
	}
	if floats.Sum(weights) <= 0 {
		return nil, fmt.Errorf("newCategoricalStarter: weights sum to zero")
	}

	c := &CategoricalStarter{weights: append([]float64(nil), weights...)}
	c.Seed(seed)
	return c, nil
}

// Start returns a starting state vector holding a single sampled index
func (c *CategoricalStarter) Start() *mat.VecDense {
	return mat.NewVecDense(1, []float64{c.rand.Rand()})
}

// StartIndex returns a sampled index
func (c *CategoricalStarter) StartIndex() int {
	return int(c.rand.Rand())
}

// Seed reseeds the underlying random number generator
func (c *CategoricalStarter) Seed(seed uint64) {
	source := rand.NewSource(seed)
	c.seed = seed
	c.rand = distuv.NewCategorical(c.weights, source)
}
