package envconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nonstationary/environment"
	"github.com/samuelfneumann/nonstationary/environment/box2d/walker"
	"github.com/samuelfneumann/nonstationary/environment/gridworld"
	"github.com/samuelfneumann/nonstationary/environment/wrappers"
	"github.com/samuelfneumann/nonstationary/trigger"
)

func gridConfig() Config {
	return Config{
		Wrapper:   LayoutSwitch,
		Threshold: 5,
		Discount:  0.99,
		Seed:      7,
		Grid: &GridConfig{
			Initial:  gridworld.Layout4x4,
			Target:   "corridor",
			Encoding: string(gridworld.OneHot),
			Layouts: map[string][]string{
				"corridor": {"SFFFFG"},
			},
		},
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"wrapper": "DynamicsSwitch",
		"threshold": 100,
		"policy": "periodic",
		"discount": 1,
		"seed": 3,
		"walker": {"models": ["cheetah", "heavy_cheetah"], "step_limit": 50}
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Wrapper != DynamicsSwitch || c.Threshold != 100 ||
		c.Walker.StepLimit != 50 || len(c.Walker.Models) != 2 {
		t.Errorf("load: unexpected config %+v", c)
	}

	// Saved configs load back the same
	saved := filepath.Join(t.TempDir(), "saved.json")
	if err := c.Save(saved); err != nil {
		t.Fatal(err)
	}
	again, err := Load(saved)
	if err != nil {
		t.Fatal(err)
	}
	if again.Seed != c.Seed || again.Policy != c.Policy ||
		again.Walker.Models[1] != "heavy_cheetah" {
		t.Errorf("save: \n\twant(%+v) \n\thave(%+v)", c, again)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("load: want error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"threshold", func(c *Config) { c.Threshold = 0 }, trigger.ErrThreshold},
		{"policy", func(c *Config) { c.Policy = "sometimes" }, trigger.ErrPolicy},
		{"resetRule", func(c *Config) { c.ResetRule = "always" },
			trigger.ErrResetRule},
		{"walker", func(c *Config) {
			c.Wrapper = DynamicsSwitch
			c.Walker = &WalkerConfig{}
		}, environment.ErrEmptyVariants},
		{"rotator", func(c *Config) { c.Wrapper = Rotator },
			environment.ErrEmptyVariants},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := gridConfig()
			test.modify(&c)
			err := c.Validate()

			if test.want == nil && err != nil {
				t.Errorf("validate: unexpected error %v", err)
			} else if !errors.Is(err, test.want) {
				t.Errorf("validate: \n\twant(%v) \n\thave(%v)", test.want, err)
			}
		})
	}

	c := gridConfig()
	c.Wrapper = Rotator
	c.Rotator = &RotatorConfig{Environments: []string{"CartPole-v1"}}
	if err := c.Validate(); err == nil {
		t.Error("validate: want error for environment without prefix")
	}

	c.Rotator.Environments = []string{ClassicPrefix + "acrobot"}
	if err := c.Validate(); err == nil {
		t.Error("validate: want error for unknown classic control environment")
	}

	c.Wrapper = "Shuffler"
	if err := c.Validate(); err == nil {
		t.Error("validate: want error for unknown wrapper")
	}
}

func TestApplyEnv(t *testing.T) {
	vars := map[string]string{
		EnvThreshold: "42",
		EnvSeed:      "9",
		EnvPolicy:    "periodic",
	}
	lookup := func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}

	c := gridConfig()
	if err := c.ApplyEnv(lookup); err != nil {
		t.Fatal(err)
	}
	if c.Threshold != 42 || c.Seed != 9 || c.Policy != "periodic" {
		t.Errorf("applyEnv: unexpected config %+v", c)
	}

	vars[EnvSeed] = "-1"
	if err := c.ApplyEnv(lookup); err == nil {
		t.Error("applyEnv: want error for negative seed")
	}
}

func TestCreateLayoutSwitch(t *testing.T) {
	rec := &trigger.Recorder{}
	env, step, err := gridConfig().Create(wrappers.WithObserver(rec))
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()

	l, ok := env.(*wrappers.LayoutSwitch)
	if !ok {
		t.Fatalf("create: want *wrappers.LayoutSwitch, got %T", env)
	}
	if !step.First() || step.Observation.Len() != 16 {
		t.Errorf("create: want first one-hot step of the 4x4 layout")
	}

	for i := 0; i < 5; i++ {
		if _, done, err := l.Step(gridAction(gridworld.Right)); err != nil {
			t.Fatal(err)
		} else if done {
			l.Reset()
		}
	}
	if l.LayoutName() != "corridor" || rec.Len() != 1 {
		t.Errorf("create: want switch to the custom layout, got %v",
			l.LayoutName())
	}
	if r, c := l.Dims(); r != 1 || c != 6 {
		t.Errorf("create: dims \n\twant(1, 6) \n\thave(%d, %d)", r, c)
	}
}

func TestCreateXY(t *testing.T) {
	c := gridConfig()
	c.Grid.Encoding = XYEncoding
	env, step, err := c.Create(wrappers.WithObserver(trigger.Discard))
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()

	if _, ok := env.(*wrappers.XY); !ok {
		t.Fatalf("create: want *wrappers.XY, got %T", env)
	}
	want := []float64{0, 0}
	if !floats.Equal(step.Observation.RawVector().Data, want) {
		t.Errorf("create: observation \n\twant(%v) \n\thave(%v)", want,
			step.Observation.RawVector().Data)
	}

	step, _, err = env.Step(gridAction(gridworld.Right))
	if err != nil {
		t.Fatal(err)
	}
	want = []float64{1, 0}
	if !floats.Equal(step.Observation.RawVector().Data, want) {
		t.Errorf("step: observation \n\twant(%v) \n\thave(%v)", want,
			step.Observation.RawVector().Data)
	}

	c.Grid.Encoding = "polar"
	if err := c.Validate(); err == nil {
		t.Error("validate: want error for unknown encoding")
	}
}

func TestCreateDynamicsSwitch(t *testing.T) {
	c := Config{
		Wrapper:   DynamicsSwitch,
		Threshold: 2,
		Discount:  1,
		Walker:    &WalkerConfig{Models: []string{"cheetah", "heavy_cheetah"}},
	}
	env, _, err := c.Create(wrappers.WithObserver(trigger.Discard))
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()

	d := env.(*wrappers.DynamicsSwitch)
	for i := 0; i < 2; i++ {
		if _, _, err := d.Step(walkerAction()); err != nil {
			t.Fatal(err)
		}
	}
	if d.Model() != "heavy_cheetah" {
		t.Errorf("create: model \n\twant(%v) \n\thave(%v)", "heavy_cheetah",
			d.Model())
	}

	c.Walker.Models = []string{"penguin"}
	if _, _, err := c.Create(); err == nil {
		t.Error("create: want error for unknown model")
	}
}

func TestCreateRotator(t *testing.T) {
	c := Config{
		Wrapper:   Rotator,
		Threshold: 1,
		Policy:    "periodic",
		Discount:  1,
		Rotator: &RotatorConfig{
			Environments: []string{GridPrefix + gridworld.Layout4x4,
				WalkerPrefix + "cheetah", ClassicPrefix + Cartpole,
				ClassicPrefix + MountainCar},
		},
	}
	rec := &trigger.Recorder{}
	env, step, err := c.Create(wrappers.WithObserver(rec))
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()

	if step.Observation.Len() != 1 {
		t.Errorf("create: want index-encoded grid first, got length %d",
			step.Observation.Len())
	}

	r := env.(*wrappers.Rotator)
	if _, _, err := r.Step(gridAction(gridworld.Down)); err != nil {
		t.Fatal(err)
	}
	if r.Index() != 1 || r.ObservationSpec().Len() !=
		walker.StateObservations {
		t.Errorf("create: want rotation to the walker, got index %d",
			r.Index())
	}

	// Walker, cartpole, mountain car
	policy := walkerAction()
	for i := 0; i < 3; i++ {
		if i > 0 {
			policy = gridAction(1)
		}
		if _, _, err := r.Step(policy); err != nil {
			t.Fatalf("step in environment %d: %v", r.Index(), err)
		}
	}
	if r.Index() != 0 {
		t.Errorf("create: want rotation back to the grid, got index %d",
			r.Index())
	}

	events := rec.Events()
	if len(events) != 4 {
		t.Fatalf("create: want 4 rotations, got %v", events)
	}
	wantTo := []string{"*walker.Walker", "Cartpole", "MountainCar",
		"*gridworld.GridWorld"}
	for i, e := range events {
		if !strings.HasPrefix(e.To, wantTo[i]) {
			t.Errorf("create: rotation %d \n\twant(%v) \n\thave(%v)", i,
				wantTo[i], e.To)
		}
	}
	for _, e := range events {
		if !e.SpecsChanged {
			t.Errorf("create: observation specs differ, but not in %+v", e)
		}
	}
}

func gridAction(a int) *mat.VecDense {
	return mat.NewVecDense(1, []float64{float64(a)})
}

func walkerAction() *mat.VecDense {
	return mat.NewVecDense(walker.Joints, []float64{1, -1, 1, -1})
}
