package wrappers

import (
	"errors"
	"fmt"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nonstationary/environment"
	"github.com/samuelfneumann/nonstationary/environment/box2d/walker"
	ts "github.com/samuelfneumann/nonstationary/timestep"
	"github.com/samuelfneumann/nonstationary/trigger"
)

// stubModels returns a ModelFactory building a stub for each model name
// in models, whose id is the index of the name
func stubModels(built *[]*stub, models []string) ModelFactory {
	return func(model string) (environment.Environment, ts.TimeStep, error) {
		for i, m := range models {
			if m == model {
				s := newStub(model, float64(i), 3)
				*built = append(*built, s)
				step, err := s.Reset()
				return s, step, err
			}
		}
		return nil, ts.TimeStep{}, fmt.Errorf("no such model %v", model)
	}
}

func TestDynamicsSwitchPeriodic(t *testing.T) {
	models := []string{"normal", "heavy"}
	var built []*stub
	rec := &trigger.Recorder{}

	d, step, err := NewDynamicsSwitch(stubModels(&built, models), models, 5,
		WithObserver(rec))
	if err != nil {
		t.Fatal(err)
	}
	if !step.First() || d.Model() != "normal" {
		t.Fatalf("new: want first step of model normal, got %v of %v",
			step.StepType, d.Model())
	}

	// After 15 steps, the model equals the one after the first switch
	for i := 1; i <= 15; i++ {
		step, _, err := d.Step(action)
		if err != nil {
			t.Fatal(err)
		}

		// The returned step is the transition before the switch
		want := float64((i - 1) / 5 % 2)
		if step.Reward != want {
			t.Errorf("step %d: reward from model \n\twant(%v) \n\thave(%v)",
				i, want, step.Reward)
		}
	}

	if d.Switches() != 3 {
		t.Errorf("switches \n\twant(%v) \n\thave(%v)", 3, d.Switches())
	}
	if d.Model() != "heavy" {
		t.Errorf("model \n\twant(%v) \n\thave(%v)", "heavy", d.Model())
	}

	// Each switch closes the old backend and builds a new one
	if len(built) != 4 {
		t.Fatalf("factory: want 4 backends built, got %d", len(built))
	}
	for i, s := range built[:3] {
		if !s.closed {
			t.Errorf("switch: backend %d was not closed", i)
		}
	}
	if built[3].closed || built[3].resets != 1 || built[3].steps != 0 {
		t.Errorf("switch: active backend should be fresh and reset once")
	}

	for i, e := range rec.Events() {
		if e.Step != 5*(i+1) || e.Kind != trigger.DynamicsSwitch ||
			e.To != models[(i+1)%2] {
			t.Errorf("observer: unexpected event %d %+v", i, e)
		}
	}

	// Resets never switch by default
	for i := 0; i < 5; i++ {
		d.Reset()
	}
	if d.Switches() != 3 {
		t.Errorf("reset: switched on reset")
	}
}

func TestDynamicsSwitchEmpty(t *testing.T) {
	var built []*stub
	_, _, err := NewDynamicsSwitch(stubModels(&built, nil), nil, 5)
	if !errors.Is(err, environment.ErrEmptyVariants) {
		t.Errorf("newDynamicsSwitch: want ErrEmptyVariants, got %v", err)
	}
}

func TestDynamicsSwitchFailure(t *testing.T) {
	var built []*stub
	factory := stubModels(&built, []string{"ok"})
	d, _, err := NewDynamicsSwitch(factory, []string{"ok", "missing"}, 2,
		WithObserver(trigger.Discard))
	if err != nil {
		t.Fatal(err)
	}

	d.Step(action)
	if _, _, err := d.Step(action); err == nil {
		t.Fatal("step: want error when the next model cannot be built")
	}

	// The wrapper is unusable afterwards
	if _, _, err := d.Step(action); err == nil {
		t.Error("step: want stored error after failed switch")
	}
	if _, err := d.Reset(); err == nil {
		t.Error("reset: want stored error after failed switch")
	}
	if err := d.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestDynamicsSwitchCloseFailure(t *testing.T) {
	var built []*stub
	models := []string{"normal", "heavy"}
	d, _, err := NewDynamicsSwitch(stubModels(&built, models), models, 1,
		WithObserver(trigger.Discard))
	if err != nil {
		t.Fatal(err)
	}
	built[0].failClose = true

	if _, _, err := d.Step(action); err == nil {
		t.Fatal("step: want error when the active model cannot be closed")
	}
	if d.Model() != "normal" || d.Switches() != 0 {
		t.Errorf("model \n\twant(%v, %v) \n\thave(%v, %v)", "normal", 0,
			d.Model(), d.Switches())
	}
	if len(built) != 1 {
		t.Errorf("factory: want no new model built, got %d", len(built)-1)
	}

	if err := d.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if built[0].closes != 1 {
		t.Errorf("close: model closed %d times", built[0].closes)
	}
}

func TestDynamicsSwitchWalker(t *testing.T) {
	rec := &trigger.Recorder{}
	models := []string{"cheetah", "low_gravity_cheetah", "heavy_cheetah"}
	d, _, err := NewDynamicsSwitch(walker.Factory(walker.Config{Seed: 3}),
		models, 4, WithObserver(rec))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	a := mat.NewVecDense(walker.Joints, []float64{0.5, -0.5, 0.5, -0.5})
	for i := 0; i < 12; i++ {
		if _, done, err := d.Step(a); err != nil {
			t.Fatal(err)
		} else if done {
			d.Reset()
		}
	}

	if d.Model() != "cheetah" || d.Switches() != 3 {
		t.Errorf("walker: want 3 switches back to cheetah, got %d to %v",
			d.Switches(), d.Model())
	}
	if w := d.Env().(*walker.Walker); w.Model().Name != "cheetah" {
		t.Errorf("walker: active backend simulates %v", w.Model().Name)
	}
	for _, e := range rec.Events() {
		if e.SpecsChanged {
			t.Errorf("walker: specs changed in %+v", e)
		}
	}
}
