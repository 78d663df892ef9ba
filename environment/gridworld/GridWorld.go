// Package gridworld implements a 2D frozen-lake style gridworld whose
// map layout can be replaced while the environment is in use.
//
// The agent starts on a start cell (S) sampled from the layout's start
// distribution and moves through frozen cells (F) towards a goal cell
// (G). Stepping into a hole (H) or onto the goal ends the episode.
// In slippery gridworlds, the agent moves in the intended direction
// or in either perpendicular direction, each with probability 1/3.
package gridworld

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/nonstationary/environment"
	ts "github.com/samuelfneumann/nonstationary/timestep"
)

// Actions
const (
	Left int = iota
	Down
	Right
	Up

	Actions int = 4
)

var actionNames = [Actions]string{"Left", "Down", "Right", "Up"}

// Encoding determines how the agent's position is encoded in
// observations
type Encoding string

const (
	// Index encodes the position as the 1-dimensional flattened cell
	// index row*cols + col
	Index Encoding = "index"

	// OneHot encodes the position as a one-hot vector over all cells
	OneHot Encoding = "onehot"

	// Map encodes the whole map as a vector over all cells with holes
	// as -1, frozen and start cells as 0, the goal as 100, and the
	// agent's cell as 1
	Map Encoding = "map"
)

// Map encoding values
const (
	MapHole   float64 = -1
	MapFrozen float64 = 0
	MapAgent  float64 = 1
	MapGoal   float64 = 100
)

// Default rewards
const (
	GoalReward     float64 = 1.0
	TimeStepReward float64 = 0.0
)

// Config configures a GridWorld
type Config struct {
	// Layout is the name of the initial layout
	Layout string

	// Layouts are additional layouts the GridWorld can switch to,
	// besides the built-in ones
	Layouts []Layout

	Slippery bool
	Encoding Encoding

	// EpisodeCutoff truncates episodes after this many steps. If not
	// positive, DefaultCutoff is used for each layout.
	EpisodeCutoff int

	Discount float64
	Seed     uint64
}

// GridWorld implements a frozen-lake gridworld. A GridWorld is not safe
// for concurrent use.
type GridWorld struct {
	catalogue map[string]Layout
	state     *layoutState

	position   int
	lastAction int

	slippery bool
	encoding Encoding
	cutoff   int
	discount float64

	// seeds draws seeds for the start distribution of new layouts
	seeds rand.Source
	slip  distuv.Categorical

	currentStep ts.TimeStep
}

// New creates a new GridWorld and returns it along with its first
// TimeStep
func New(c Config) (*GridWorld, ts.TimeStep, error) {
	catalogue := make(map[string]Layout)
	for _, name := range LayoutNames() {
		l, err := LookupLayout(name)
		if err != nil {
			return nil, ts.TimeStep{}, fmt.Errorf("new: %w", err)
		}
		catalogue[name] = l
	}
	for _, l := range c.Layouts {
		catalogue[l.Name()] = l
	}

	if c.Layout == "" {
		c.Layout = Layout4x4
	}

	switch c.Encoding {
	case "":
		c.Encoding = Index
	case Index, OneHot, Map:
	default:
		return nil, ts.TimeStep{}, fmt.Errorf("new: no such encoding %q",
			c.Encoding)
	}

	g := &GridWorld{
		catalogue:  catalogue,
		slippery:   c.Slippery,
		encoding:   c.Encoding,
		cutoff:     c.EpisodeCutoff,
		discount:   c.Discount,
		lastAction: -1,
	}
	g.seed(c.Seed)

	if err := g.SetLayout(c.Layout); err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: %w", err)
	}

	step, err := g.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: %w", err)
	}
	return g, step, nil
}

// seed reseeds all random number generators of the GridWorld
func (g *GridWorld) seed(seed uint64) {
	g.seeds = rand.NewSource(seed)
	g.slip = distuv.NewCategorical([]float64{1, 1, 1},
		rand.NewSource(g.seeds.Uint64()))
	if g.state != nil {
		g.state.starter.Seed(g.seeds.Uint64())
	}
}

// SetLayout replaces the active layout with the layout called name and
// recomputes the start distribution, dimensions, and episode cutoff
// from it. The replacement is atomic: on error, the GridWorld is left
// unchanged.
//
// If the agent's current cell index lies outside the new grid, a new
// position is sampled from the new start distribution.
func (g *GridWorld) SetLayout(name string) error {
	l, ok := g.catalogue[name]
	if !ok {
		return &UnsupportedLayoutError{name}
	}

	state, err := newLayoutState(l, g.cutoff, g.seeds.Uint64())
	if err != nil {
		return fmt.Errorf("setLayout: %v", err)
	}
	if err := state.validate(); err != nil {
		panic(fmt.Sprintf("setLayout: derived state of layout %q is "+
			"inconsistent: %v", name, err))
	}

	g.state = state
	if g.position >= state.rows*state.cols {
		g.position = state.starter.StartIndex()
	}
	return nil
}

// HasLayout returns whether the GridWorld can switch to the layout
// called name
func (g *GridWorld) HasLayout(name string) bool {
	_, ok := g.catalogue[name]
	return ok
}

// Layout returns the active Layout
func (g *GridWorld) Layout() Layout {
	return g.state.layout
}

// LayoutName returns the name of the active Layout
func (g *GridWorld) LayoutName() string {
	return g.state.layout.Name()
}

// Dims gets the rows and columns of the GridWorld
func (g *GridWorld) Dims() (r, c int) {
	return g.state.rows, g.state.cols
}

// StartDistribution returns a copy of the distribution over cells from
// which starting positions are sampled
func (g *GridWorld) StartDistribution() *mat.VecDense {
	return mat.VecDenseCopyOf(g.state.startDist)
}

// CheckInvariants returns an error if any derived field of the
// GridWorld is inconsistent with its active Layout
func (g *GridWorld) CheckInvariants() error {
	if err := g.state.validate(); err != nil {
		return err
	}
	if r, c := g.Dims(); g.position < 0 || g.position >= r*c {
		return fmt.Errorf("position %d outside of (%d, %d) grid",
			g.position, r, c)
	}
	return nil
}

// Position returns the flattened index of the agent's cell
func (g *GridWorld) Position() int {
	return g.position
}

// Coordinates returns the row and column of the agent's cell
func (g *GridWorld) Coordinates() (row, col int) {
	return g.position / g.state.cols, g.position % g.state.cols
}

// EpisodeCutoff returns the number of steps after which the current
// layout truncates episodes
func (g *GridWorld) EpisodeCutoff() int {
	return g.state.stepLimit.Limit()
}

// Reset resets the environment and returns a starting state drawn from
// the active layout's start distribution
func (g *GridWorld) Reset(opts ...environment.ResetOption) (ts.TimeStep,
	error) {
	cfg := environment.NewResetConfig(opts...)
	if cfg.Seed != nil {
		g.seed(*cfg.Seed)
	}

	g.position = g.state.starter.StartIndex()
	g.lastAction = -1

	step := ts.New(ts.First, 0, g.discount, g.observation(), 0)
	step.SetInfo("prob", 1.0)
	g.currentStep = step
	return step, nil
}

// Step takes one environmental step given action a and returns the next
// TimeStep and whether the episode has ended. Once in a hole or at the
// goal, the agent stays there.
func (g *GridWorld) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if a.Len() != 1 {
		return ts.TimeStep{}, false, fmt.Errorf("step: actions must be "+
			"1-dimensional, got %d dimensions", a.Len())
	}
	action := int(a.AtVec(0))
	if float64(action) != a.AtVec(0) || action < 0 || action >= Actions {
		return ts.TimeStep{}, false, fmt.Errorf("step: illegal action %v, "+
			"expected action ϵ [0, 1, 2, 3]", a.AtVec(0))
	}

	prob := 1.0
	direction := action
	if g.slippery {
		// Intended direction or either perpendicular direction
		direction = (action - 1 + int(g.slip.Rand()) + Actions) % Actions
		prob = 1.0 / 3.0
	}

	row, col := g.Coordinates()
	current := g.state.layout.At(row, col)
	if current != Hole && current != Goal {
		row, col = g.move(row, col, direction)
		g.position = row*g.state.cols + col
	}
	g.lastAction = action

	cell := g.state.layout.At(row, col)
	reward := TimeStepReward
	if cell == Goal {
		reward = GoalReward
	}

	step := ts.New(ts.Mid, reward, g.discount, g.observation(),
		g.currentStep.Number+1)
	step.SetInfo("prob", prob)
	if cell == Hole || cell == Goal {
		step.StepType = ts.Last
		step.SetEnd(ts.TerminalStateReached)
	}
	g.state.stepLimit.End(&step)

	g.currentStep = step
	return step, step.Last(), nil
}

// move returns the cell reached by moving in direction from (row, col),
// staying in place at the borders
func (g *GridWorld) move(row, col, direction int) (int, int) {
	switch direction {
	case Left:
		col = max(col-1, 0)
	case Down:
		row = min(row+1, g.state.rows-1)
	case Right:
		col = min(col+1, g.state.cols-1)
	case Up:
		row = max(row-1, 0)
	}
	return row, col
}

// CurrentTimeStep returns the current TimeStep in the environment
func (g *GridWorld) CurrentTimeStep() ts.TimeStep {
	return g.currentStep
}

func (g *GridWorld) observation() *mat.VecDense {
	n := g.state.rows * g.state.cols

	switch g.encoding {
	case OneHot:
		obs := mat.NewVecDense(n, nil)
		obs.SetVec(g.position, 1.0)
		return obs

	case Map:
		obs := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			switch g.state.layout.At(i/g.state.cols, i%g.state.cols) {
			case Hole:
				obs.SetVec(i, MapHole)
			case Goal:
				obs.SetVec(i, MapGoal)
			default:
				obs.SetVec(i, MapFrozen)
			}
		}
		obs.SetVec(g.position, MapAgent)
		return obs

	default:
		return mat.NewVecDense(1, []float64{float64(g.position)})
	}
}

// ObservationSpec returns the observation specification of the
// environment. The specification depends on the active layout.
func (g *GridWorld) ObservationSpec() environment.Spec {
	n := g.state.rows * g.state.cols

	var low, high []float64
	switch g.encoding {
	case OneHot:
		low, high = make([]float64, n), make([]float64, n)
		for i := range high {
			high[i] = 1.0
		}

	case Map:
		low, high = make([]float64, n), make([]float64, n)
		for i := range high {
			low[i] = MapHole
			high[i] = MapGoal
		}

	default:
		low, high = []float64{0}, []float64{float64(n - 1)}
	}

	return environment.NewBoundedSpec(environment.Observation, low, high,
		environment.Discrete)
}

// ActionSpec returns the action specification of the environment
func (g *GridWorld) ActionSpec() environment.Spec {
	return environment.NewBoundedSpec(environment.Action, []float64{0},
		[]float64{float64(Actions - 1)}, environment.Discrete)
}

// DiscountSpec returns the discount specification of the environment
func (g *GridWorld) DiscountSpec() environment.Spec {
	return environment.NewBoundedSpec(environment.Discount,
		[]float64{g.discount}, []float64{g.discount}, environment.Continuous)
}

// Close implements the environment.Environment interface. A GridWorld
// holds no resources.
func (g *GridWorld) Close() error {
	return nil
}

func (g *GridWorld) String() string {
	row, col := g.Coordinates()
	return fmt.Sprintf("GridWorld | Layout: %v  |  At: (%d, %d)  |  "+
		"Bounds: (%d, %d)", g.LayoutName(), row, col, g.state.rows,
		g.state.cols)
}
