package environment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an acion, an observation, a discount, or a reward
type SpecType int

const (
	Action SpecType = iota
	Observation
	Discount
	Reward
)

// Cardinality determines the cardinality of a number (discrete or continuous)
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec implements an environment specification, which tells the type,
// shape, and bounds of an action, observation, discount, or reward in
// an environment
type Spec struct {
	Shape      *mat.VecDense
	Type       SpecType
	LowerBound *mat.VecDense
	UpperBound *mat.VecDense
	Cardinality
}

// NewSpec constructs a new environment specification
// The shape argument outlines the shape of the data described by the
// specification. The argument t outlines what the specification is
// describing (e.g. actions, observations, etc.). The cardinality
// arguments describes whether the values that the spec describes are
// continuous or discrete.
func NewSpec(shape *mat.VecDense, t SpecType, lowerBound,
	upperBound *mat.VecDense, cardinality Cardinality) Spec {
	if shape.Len() != lowerBound.Len() {
		panic(fmt.Sprintf("shape length %v must match lower bounds length %v",
			shape.Len(), lowerBound.Len()))
	}
	if shape.Len() != upperBound.Len() {
		panic(fmt.Sprintf("shape length %v must match upper bounds length %v",
			shape.Len(), upperBound.Len()))
	}
	return Spec{shape, t, lowerBound, upperBound, cardinality}
}

// NewBoundedSpec is a convenience constructor for a Spec whose shape
// is implied by its bounds
func NewBoundedSpec(t SpecType, lower, upper []float64,
	cardinality Cardinality) Spec {
	shape := mat.NewVecDense(len(lower), nil)
	return NewSpec(shape, t, mat.NewVecDense(len(lower), lower),
		mat.NewVecDense(len(upper), upper), cardinality)
}

// Len returns the number of dimensions described by the Spec
func (s Spec) Len() int {
	if s.Shape == nil {
		return 0
	}
	return s.Shape.Len()
}

// SameShape returns whether two Specs describe data of the same shape
// and cardinality. Bounds are not compared.
func SameShape(a, b Spec) bool {
	return a.Len() == b.Len() && a.Cardinality == b.Cardinality
}

func (s Spec) String() string {
	if s.LowerBound == nil || s.UpperBound == nil {
		return fmt.Sprintf("Spec(%v, len=%d)", s.Cardinality, s.Len())
	}
	return fmt.Sprintf("Spec(%v, len=%d, low=%v, high=%v)", s.Cardinality,
		s.Len(), mat.Formatted(s.LowerBound.T()),
		mat.Formatted(s.UpperBound.T()))
}
