package walker

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nonstationary/environment"
)

func TestModels(t *testing.T) {
	want := []string{"cheetah", "heavy_cheetah", "low_gravity_cheetah"}
	names := Models()
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("models \n\twant(%v) \n\thave(%v)", want, names)
	}

	for _, name := range names {
		m, err := LoadModel(name)
		if err != nil {
			t.Errorf("loadModel(%v): %v", name, err)
		}
		if m.Name != name {
			t.Errorf("loadModel: name \n\twant(%v) \n\thave(%v)", name, m.Name)
		}
	}

	if _, err := LoadModel("hopper"); err == nil {
		t.Error("loadModel: expected error for unknown model")
	}
}

func TestLoadModelFromDisk(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("assets", "cheetah.json"))
	if err != nil {
		t.Fatal(err)
	}
	data = []byte(strings.Replace(string(data), `"gravity": -9.8`,
		`"gravity": -1.0`, 1))
	data = []byte(strings.Replace(string(data), `"name": "cheetah",`, "", 1))

	path := filepath.Join(t.TempDir(), "moon.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadModel(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Gravity != -1.0 || loaded.Name != "moon" {
		t.Errorf("loadModel: want gravity -1 and name moon, got %v and %v",
			loaded.Gravity, loaded.Name)
	}
}

func TestValidate(t *testing.T) {
	base, err := LoadModel("cheetah")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		modify func(*Model)
	}{
		{"timestep", func(m *Model) { m.Timestep = 0 }},
		{"frame-skip", func(m *Model) { m.FrameSkip = 0 }},
		{"torso", func(m *Model) { m.Torso.Density = -1 }},
		{"shin-width", func(m *Model) { m.Shin.Width = 0 }},
		{"height", func(m *Model) { m.StartHeight = 0.5 }},
		{"knee-range", func(m *Model) { m.Knee.Lower = m.Knee.Upper }},
		{"control-cost", func(m *Model) { m.ControlCost = -0.1 }},
	}

	for _, test := range tests {
		m := base
		test.modify(&m)
		if err := m.Validate(); err == nil {
			t.Errorf("validate(%v): expected error", test.name)
		}
		if _, _, err := NewFromModel(m, Config{}); err == nil {
			t.Errorf("newFromModel(%v): expected error", test.name)
		}
	}
}

func TestSpecs(t *testing.T) {
	w, step, err := New("cheetah", Config{Discount: 0.99})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if !step.First() {
		t.Errorf("new: want first step, got %v", step.StepType)
	}
	if step.Observation.Len() != StateObservations {
		t.Errorf("new: observation length \n\twant(%v) \n\thave(%v)",
			StateObservations, step.Observation.Len())
	}
	if l := w.ObservationSpec().Len(); l != StateObservations {
		t.Errorf("observationSpec: length \n\twant(%v) \n\thave(%v)",
			StateObservations, l)
	}

	action := w.ActionSpec()
	if action.Len() != Joints || action.Cardinality != environment.Continuous {
		t.Errorf("actionSpec: want %d continuous dimensions, got %v", Joints,
			action)
	}
	if d := w.DiscountSpec().LowerBound.AtVec(0); d != 0.99 {
		t.Errorf("discountSpec \n\twant(%v) \n\thave(%v)", 0.99, d)
	}

	if h := step.Observation.AtVec(0); h != w.Model().StartHeight {
		t.Errorf("reset: torso height \n\twant(%v) \n\thave(%v)",
			w.Model().StartHeight, h)
	}
}

func TestStep(t *testing.T) {
	w, _, err := New("cheetah", Config{StepLimit: 25})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	a := mat.NewVecDense(Joints, []float64{2, -2, 0.5, -0.5})
	var done bool
	for i := 1; i <= 25; i++ {
		step, d, err := w.Step(a)
		if err != nil {
			t.Fatal(err)
		}
		done = d
		if step.Number != i {
			t.Errorf("step: number \n\twant(%v) \n\thave(%v)", i, step.Number)
		}

		// Clipped control cost of actions (1, -1, 0.5, -0.5)
		if c := step.Info["control_cost"].(float64); !scalar.EqualWithinAbs(
			c, w.Model().ControlCost*2.5, 1e-12) {
			t.Errorf("step: control cost \n\twant(%v) \n\thave(%v)",
				w.Model().ControlCost*2.5, c)
		}
		if i < 25 && done {
			t.Fatalf("step: episode ended early at step %d", i)
		}
		if i == 25 && !step.Truncated() {
			t.Errorf("step: last step should be truncated, got %v",
				step.EndType())
		}
	}
	if !done {
		t.Error("step: episode should end at the step limit")
	}

	// The caller's action is not modified by clipping
	if a.AtVec(0) != 2 {
		t.Errorf("step: action was modified to %v", a.AtVec(0))
	}

	if _, _, err := w.Step(mat.NewVecDense(2, nil)); err == nil {
		t.Error("step: expected error for 2-dimensional action")
	}
}

func TestSeeded(t *testing.T) {
	run := func() []float64 {
		w, _, err := New("heavy_cheetah", Config{Seed: 11})
		if err != nil {
			t.Fatal(err)
		}
		defer w.Close()

		a := mat.NewVecDense(Joints, []float64{1, -1, -1, 1})
		var obs []float64
		for i := 0; i < 20; i++ {
			step, _, _ := w.Step(a)
			obs = append(obs, step.Observation.RawVector().Data...)
		}
		return obs
	}

	a, b := run(), run()
	if !floats.Equal(a, b) {
		t.Error("step: walkers with the same seed diverged")
	}
}

func TestFactory(t *testing.T) {
	factory := Factory(Config{Discount: 0.9})
	for _, model := range Models() {
		env, step, err := factory(model)
		if err != nil {
			t.Fatalf("factory(%v): %v", model, err)
		}
		if !step.First() {
			t.Errorf("factory(%v): want first step", model)
		}
		if w := env.(*Walker); w.Model().Name != model {
			t.Errorf("factory: model \n\twant(%v) \n\thave(%v)", model,
				w.Model().Name)
		}
		env.Close()
	}
}

func TestRenderAndClose(t *testing.T) {
	w, _, err := New("low_gravity_cheetah", Config{})
	if err != nil {
		t.Fatal(err)
	}

	frame, err := w.Render(environment.RGBArray)
	if err != nil {
		t.Fatal(err)
	}
	if b := frame.Image.Bounds(); b.Dx() != int(ViewportW) ||
		b.Dy() != int(ViewportH) {
		t.Errorf("render: image size %v", b)
	}

	frame, err = w.Render(environment.ANSI)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(frame.Text, "low_gravity_cheetah") {
		t.Errorf("render: summary should name the model: %q", frame.Text)
	}

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := w.Step(mat.NewVecDense(Joints, nil)); err == nil {
		t.Error("step: expected error after close")
	}
	if _, err := w.Reset(); err != nil {
		t.Errorf("reset: a closed walker should reset: %v", err)
	}
}

func TestNonFinite(t *testing.T) {
	inf, nan := math.Inf(1), math.NaN()
	tests := []struct {
		name string
		obs  []float64
		want bool
	}{
		{"finite", []float64{0, 1, -2}, false},
		{"nan", []float64{0, nan, 1}, true},
		{"positive-inf", []float64{inf, 0, 0}, true},
		{"negative-inf", []float64{0, -inf, 0}, true},
		{"both-infs", []float64{inf, -inf, 0}, true},
	}

	for _, test := range tests {
		obs := mat.NewVecDense(len(test.obs), test.obs)
		if got := nonFinite(obs); got != test.want {
			t.Errorf("nonFinite(%v) \n\twant(%v) \n\thave(%v)", test.name,
				test.want, got)
		}
	}
}
