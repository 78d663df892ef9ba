package wrappers

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nonstationary/environment"
	ts "github.com/samuelfneumann/nonstationary/timestep"
)

// stub is a minimal backend which records how it is used. Its
// observation is the constant value id repeated obsLen times.
type stub struct {
	id     float64
	obsLen int
	name   string

	steps  int
	resets int
	closed bool
	closes int

	failReset bool
	failClose bool
}

func newStub(name string, id float64, obsLen int) *stub {
	return &stub{name: name, id: id, obsLen: obsLen}
}

func (s *stub) obs() *mat.VecDense {
	data := make([]float64, s.obsLen)
	for i := range data {
		data[i] = s.id
	}
	return mat.NewVecDense(s.obsLen, data)
}

func (s *stub) Name() string { return s.name }

func (s *stub) Reset(...environment.ResetOption) (ts.TimeStep, error) {
	if s.closed {
		return ts.TimeStep{}, errors.New("reset: stub is closed")
	}
	if s.failReset {
		return ts.TimeStep{}, errors.New("reset: failed")
	}
	s.resets++
	return ts.New(ts.First, 0, 1, s.obs(), 0), nil
}

func (s *stub) Step(*mat.VecDense) (ts.TimeStep, bool, error) {
	if s.closed {
		return ts.TimeStep{}, true, errors.New("step: stub is closed")
	}
	s.steps++
	return ts.New(ts.Mid, s.id, 1, s.obs(), s.steps), false, nil
}

func (s *stub) ObservationSpec() environment.Spec {
	return environment.NewBoundedSpec(environment.Observation,
		make([]float64, s.obsLen), make([]float64, s.obsLen),
		environment.Continuous)
}

func (s *stub) ActionSpec() environment.Spec {
	return environment.NewBoundedSpec(environment.Action, []float64{-1},
		[]float64{1}, environment.Continuous)
}

func (s *stub) DiscountSpec() environment.Spec {
	return environment.NewBoundedSpec(environment.Discount, []float64{1},
		[]float64{1}, environment.Continuous)
}

func (s *stub) Render(environment.RenderMode) (environment.Frame, error) {
	return environment.Frame{Text: s.name}, nil
}

func (s *stub) Close() error {
	s.closes++
	if s.failClose {
		return errors.New("close: failed")
	}
	s.closed = true
	return nil
}

// stubFactories returns one factory per name, which builds stubs with
// ids 0, 1, 2, ... and observation lengths obsLens. Every stub built is
// appended to built.
func stubFactories(built *[]*stub, obsLens ...int) []Factory {
	factories := make([]Factory, len(obsLens))
	for i := range obsLens {
		i := i
		factories[i] = func() (environment.Environment, ts.TimeStep, error) {
			s := newStub(fmt.Sprintf("env%d", i), float64(i), obsLens[i])
			*built = append(*built, s)
			step, err := s.Reset()
			return s, step, err
		}
	}
	return factories
}

var action = mat.NewVecDense(1, []float64{0})
