// Package envconfig provides configuration structs for configuring
// non-stationary environments: which wrapper to use, its switch
// threshold and trigger policy, and the backends it switches between.
// Environment configurations in this package are JSON serializable.
package envconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/samuelfneumann/nonstationary/environment"
	"github.com/samuelfneumann/nonstationary/environment/box2d/walker"
	"github.com/samuelfneumann/nonstationary/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/nonstationary/environment/classiccontrol/mountaincar"
	"github.com/samuelfneumann/nonstationary/environment/gridworld"
	"github.com/samuelfneumann/nonstationary/environment/gym"
	"github.com/samuelfneumann/nonstationary/environment/wrappers"
	ts "github.com/samuelfneumann/nonstationary/timestep"
	"github.com/samuelfneumann/nonstationary/trigger"
)

// Wrapper stores the name of the wrappers that can be configured with
// this package
type Wrapper string

// Wrappers available for configuration
const (
	LayoutSwitch   Wrapper = "LayoutSwitch"
	DynamicsSwitch Wrapper = "DynamicsSwitch"
	Rotator        Wrapper = "Rotator"
)

// Backend prefixes of Rotator environments
const (
	GymPrefix     = "gym:"
	WalkerPrefix  = "walker:"
	GridPrefix    = "grid:"
	ClassicPrefix = "classic:"
)

// Classic control environments available to a Rotator
const (
	Cartpole    = "cartpole"
	MountainCar = "mountaincar"
)

// XYEncoding encodes grid observations as (x, y) coordinates. It is
// implemented with a one-hot grid wrapped in a wrappers.XY.
const XYEncoding = "xy"

// Environment variables read by ApplyEnv
const (
	EnvThreshold = "NSENV_THRESHOLD"
	EnvSeed      = "NSENV_SEED"
	EnvPolicy    = "NSENV_POLICY"
)

// Config implements a specific configuration of a non-stationary
// environment. Exactly one of Grid, Walker, and Rotator must be set,
// matching Wrapper.
type Config struct {
	Wrapper   Wrapper `json:"wrapper" jsonschema:"enum=LayoutSwitch,enum=DynamicsSwitch,enum=Rotator"`
	Threshold int     `json:"threshold" jsonschema:"minimum=1"`

	// Policy and ResetRule override the wrapper's defaults when set
	Policy    string `json:"policy,omitempty" jsonschema:"enum=once,enum=periodic"`
	ResetRule string `json:"reset_rule,omitempty" jsonschema:"enum=ignore,enum=pending,enum=past-threshold"`

	Discount float64 `json:"discount"`
	Seed     uint64  `json:"seed"`

	Grid    *GridConfig    `json:"grid,omitempty"`
	Walker  *WalkerConfig  `json:"walker,omitempty"`
	Rotator *RotatorConfig `json:"rotator,omitempty"`
}

// GridConfig configures a LayoutSwitch and its gridworld
type GridConfig struct {
	Initial       string `json:"initial"`
	Target        string `json:"target"`
	Slippery      bool   `json:"slippery"`
	Encoding      string `json:"encoding,omitempty" jsonschema:"enum=index,enum=onehot,enum=map,enum=xy"`
	EpisodeCutoff int    `json:"episode_cutoff,omitempty"`

	// Layouts are custom layouts by name, given as rows of S, F, H,
	// and G cells
	Layouts map[string][]string `json:"layouts,omitempty"`
}

// WalkerConfig configures a DynamicsSwitch over walker models
type WalkerConfig struct {
	Models    []string `json:"models" jsonschema:"minItems=1"`
	StepLimit int      `json:"step_limit,omitempty"`
}

// RotatorConfig configures a Rotator. Each environment is named by a
// backend prefix and a name: "gym:<Gym name>", "walker:<model>",
// "grid:<layout>", "classic:cartpole", or "classic:mountaincar".
type RotatorConfig struct {
	Environments []string `json:"environments" jsonschema:"minItems=1"`
	Reuse        bool     `json:"reuse"`
}

// Load reads a JSON Config from path and validates it
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load: %w", err)
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("load: could not decode %v: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("load: %w", err)
	}
	return c, nil
}

// Save writes the Config to path as indented JSON
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "\t")
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Validate returns an error if the Config does not describe a
// constructible environment. Layout and model names are checked when
// the environment is created.
func (c Config) Validate() error {
	if c.Threshold < 1 {
		return fmt.Errorf("validate: %w (have %d)", trigger.ErrThreshold,
			c.Threshold)
	}
	if c.Policy != "" {
		if _, err := trigger.ParsePolicy(c.Policy); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
	}
	if c.ResetRule != "" {
		if _, err := trigger.ParseResetRule(c.ResetRule); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount %v not in [0, 1]", c.Discount)
	}

	switch c.Wrapper {
	case LayoutSwitch:
		if c.Grid == nil {
			return fmt.Errorf("validate: %v needs a grid configuration",
				c.Wrapper)
		}
		if c.Grid.Target == "" {
			return fmt.Errorf("validate: %v needs a target layout", c.Wrapper)
		}
		switch gridworld.Encoding(c.Grid.Encoding) {
		case "", gridworld.Index, gridworld.OneHot, gridworld.Map, XYEncoding:
		default:
			return fmt.Errorf("validate: no such encoding %q", c.Grid.Encoding)
		}

	case DynamicsSwitch:
		if c.Walker == nil || len(c.Walker.Models) == 0 {
			return fmt.Errorf("validate: %v: %w", c.Wrapper,
				environment.ErrEmptyVariants)
		}

	case Rotator:
		if c.Rotator == nil || len(c.Rotator.Environments) == 0 {
			return fmt.Errorf("validate: %v: %w", c.Wrapper,
				environment.ErrEmptyVariants)
		}
		for _, e := range c.Rotator.Environments {
			switch {
			case strings.HasPrefix(e, GymPrefix),
				strings.HasPrefix(e, WalkerPrefix),
				strings.HasPrefix(e, GridPrefix):
			case e == ClassicPrefix+Cartpole, e == ClassicPrefix+MountainCar:
			default:
				return fmt.Errorf("validate: environment %q has no backend "+
					"prefix", e)
			}
		}

	default:
		return fmt.Errorf("validate: no such wrapper %q", c.Wrapper)
	}
	return nil
}

// ApplyEnv overrides the threshold, seed, and policy of the Config with
// the values of the NSENV_THRESHOLD, NSENV_SEED, and NSENV_POLICY
// variables found by lookup, usually os.LookupEnv
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvThreshold); ok {
		threshold, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("applyEnv: %v: %w", EnvThreshold, err)
		}
		c.Threshold = threshold
	}
	if v, ok := lookup(EnvSeed); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("applyEnv: %v: %w", EnvSeed, err)
		}
		c.Seed = seed
	}
	if v, ok := lookup(EnvPolicy); ok {
		if _, err := trigger.ParsePolicy(v); err != nil {
			return fmt.Errorf("applyEnv: %v: %w", EnvPolicy, err)
		}
		c.Policy = v
	}
	return nil
}

// options returns the wrapper options described by the Config
func (c Config) options() []wrappers.Option {
	var opts []wrappers.Option
	if c.Policy != "" {
		p, _ := trigger.ParsePolicy(c.Policy)
		opts = append(opts, wrappers.WithPolicy(p))
	}
	if c.ResetRule != "" {
		r, _ := trigger.ParseResetRule(c.ResetRule)
		opts = append(opts, wrappers.WithResetRule(r))
	}
	if c.Rotator != nil && c.Rotator.Reuse {
		opts = append(opts, wrappers.WithReuse())
	}
	return opts
}

// Create returns the environment described by the Config as well as
// the first timestep of the environment. Additional options, such as
// an observer, are applied after those of the Config.
func (c Config) Create(opts ...wrappers.Option) (environment.Environment,
	ts.TimeStep, error) {
	if err := c.Validate(); err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
	}
	opts = append(c.options(), opts...)

	switch c.Wrapper {
	case LayoutSwitch:
		return c.createLayoutSwitch(opts)

	case DynamicsSwitch:
		factory := walker.Factory(walker.Config{
			Discount:  c.Discount,
			StepLimit: c.Walker.StepLimit,
			Seed:      c.Seed,
		})
		env, step, err := wrappers.NewDynamicsSwitch(factory, c.Walker.Models,
			c.Threshold, opts...)
		if err != nil {
			return nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
		}
		return env, step, nil

	default:
		factories := make([]wrappers.Factory, len(c.Rotator.Environments))
		for i, name := range c.Rotator.Environments {
			factories[i] = c.factory(name, c.Seed+uint64(i))
		}
		env, step, err := wrappers.NewRotator(factories, c.Threshold,
			opts...)
		if err != nil {
			return nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
		}
		return env, step, nil
	}
}

func (c Config) grid(layout string, seed uint64) (*gridworld.GridWorld,
	ts.TimeStep, error) {
	gc := GridConfig{}
	if c.Grid != nil {
		gc = *c.Grid
	}

	encoding := gridworld.Encoding(gc.Encoding)
	if encoding == XYEncoding {
		encoding = gridworld.OneHot
	}

	var layouts []gridworld.Layout
	for name, rows := range gc.Layouts {
		l, err := gridworld.NewLayout(name, rows...)
		if err != nil {
			return nil, ts.TimeStep{}, err
		}
		layouts = append(layouts, l)
	}

	return gridworld.New(gridworld.Config{
		Layout:        layout,
		Layouts:       layouts,
		Slippery:      gc.Slippery,
		Encoding:      encoding,
		EpisodeCutoff: gc.EpisodeCutoff,
		Discount:      c.Discount,
		Seed:          seed,
	})
}

func (c Config) createLayoutSwitch(opts []wrappers.Option) (
	environment.Environment, ts.TimeStep, error) {
	g, _, err := c.grid(c.Grid.Initial, c.Seed)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
	}

	l, err := wrappers.NewLayoutSwitch(g, c.Grid.Target, c.Threshold,
		opts...)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
	}

	var e environment.Environment = l
	if c.Grid.Encoding == XYEncoding {
		e = wrappers.NewXY(l)
	}

	step, err := e.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
	}
	return e, step, nil
}

// factory returns a Factory for a prefixed Rotator environment name
func (c Config) factory(name string, seed uint64) wrappers.Factory {
	switch {
	case strings.HasPrefix(name, GymPrefix):
		return gym.Factory(strings.TrimPrefix(name, GymPrefix), c.Discount,
			seed)

	case name == ClassicPrefix+Cartpole:
		return cartpole.Factory(cartpole.Config{Discount: c.Discount,
			Seed: seed})

	case name == ClassicPrefix+MountainCar:
		return mountaincar.Factory(mountaincar.Config{Discount: c.Discount,
			Seed: seed})

	case strings.HasPrefix(name, WalkerPrefix):
		model := strings.TrimPrefix(name, WalkerPrefix)
		f := walker.Factory(walker.Config{Discount: c.Discount, Seed: seed})
		return func() (environment.Environment, ts.TimeStep, error) {
			return f(model)
		}

	default:
		layout := strings.TrimPrefix(name, GridPrefix)
		return func() (environment.Environment, ts.TimeStep, error) {
			g, step, err := c.grid(layout, seed)
			if err != nil {
				return nil, ts.TimeStep{}, err
			}
			if c.Grid != nil && c.Grid.Encoding == XYEncoding {
				xy := wrappers.NewXY(g)
				step, err := xy.Reset()
				return xy, step, err
			}
			return g, step, nil
		}
	}
}
