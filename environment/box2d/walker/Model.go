package walker

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed assets/*.json
var assets embed.FS

// Limb describes the box shape of a single body part
type Limb struct {
	Length  float64 `json:"length"`
	Width   float64 `json:"width,omitempty"`
	Height  float64 `json:"height,omitempty"`
	Density float64 `json:"density"`
}

// Joint describes a motorized revolute joint. Lower and Upper are the
// joint limits in radians.
type Joint struct {
	Torque float64 `json:"torque"`
	Speed  float64 `json:"speed"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
}

// Model is a model definition of a Walker: the physical constants and
// body dimensions that make up its dynamics
type Model struct {
	Name string `json:"name"`

	// Gravity is the vertical gravity, negative values pull downwards
	Gravity float64 `json:"gravity"`

	// Timestep is the length of a single physics step in seconds, and
	// FrameSkip is the number of physics steps per environmental step
	Timestep  float64 `json:"timestep"`
	FrameSkip int     `json:"frame_skip"`

	Torso Limb `json:"torso"`
	Thigh Limb `json:"thigh"`
	Shin  Limb `json:"shin"`

	StartHeight float64 `json:"start_height"`
	Friction    float64 `json:"friction"`

	Hip  Joint `json:"hip"`
	Knee Joint `json:"knee"`

	ControlCost float64 `json:"control_cost"`

	// InitNoise bounds the uniform noise added to the torso's initial
	// velocities
	InitNoise float64 `json:"init_noise"`
}

// LoadModel loads the model definition called name. Names that are
// absolute paths or that start with "./" are read from disk, all
// other names refer to the built-in models returned by Models.
func LoadModel(name string) (Model, error) {
	var (
		data []byte
		err  error
	)
	if filepath.IsAbs(name) || strings.HasPrefix(name, "./") {
		data, err = os.ReadFile(name)
	} else {
		if !strings.HasSuffix(name, ".json") {
			name += ".json"
		}
		data, err = assets.ReadFile("assets/" + name)
	}
	if err != nil {
		return Model{}, fmt.Errorf("loadModel: could not read model "+
			"%v: %w", name, err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return Model{}, fmt.Errorf("loadModel: could not decode model "+
			"%v: %w", name, err)
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(name), ".json")
	}

	if err := m.Validate(); err != nil {
		return Model{}, fmt.Errorf("loadModel: %w", err)
	}
	return m, nil
}

// Models returns the names of the built-in models
func Models() []string {
	entries, err := assets.ReadDir("assets")
	if err != nil {
		panic(fmt.Sprintf("models: %v", err))
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names
}

// Validate returns an error if the Model cannot be simulated
func (m Model) Validate() error {
	if m.Timestep <= 0 {
		return fmt.Errorf("model %v: timestep must be positive", m.Name)
	}
	if m.FrameSkip < 1 {
		return fmt.Errorf("model %v: frame skip must be at least 1", m.Name)
	}

	limbs := map[string]Limb{"torso": m.Torso, "thigh": m.Thigh,
		"shin": m.Shin}
	for name, l := range limbs {
		if l.Length <= 0 || l.Density <= 0 {
			return fmt.Errorf("model %v: %v must have positive length and "+
				"density", m.Name, name)
		}
	}
	if m.Torso.Height <= 0 || m.Thigh.Width <= 0 || m.Shin.Width <= 0 {
		return fmt.Errorf("model %v: limb widths must be positive", m.Name)
	}

	if m.StartHeight <= m.Thigh.Length+m.Shin.Length {
		return fmt.Errorf("model %v: start height %v would place the "+
			"legs below ground", m.Name, m.StartHeight)
	}

	for name, j := range map[string]Joint{"hip": m.Hip, "knee": m.Knee} {
		if j.Torque <= 0 || j.Speed <= 0 {
			return fmt.Errorf("model %v: %v torque and speed must be "+
				"positive", m.Name, name)
		}
		if j.Lower >= j.Upper {
			return fmt.Errorf("model %v: %v lower limit %v must be below "+
				"upper limit %v", m.Name, name, j.Lower, j.Upper)
		}
	}

	if m.ControlCost < 0 || m.InitNoise < 0 {
		return fmt.Errorf("model %v: control cost and initial noise must "+
			"be non-negative", m.Name)
	}
	return nil
}
