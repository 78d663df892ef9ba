package gridworld

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nonstationary/environment"
)

// Cell types of a Layout
const (
	Start  byte = 'S'
	Frozen byte = 'F'
	Hole   byte = 'H'
	Goal   byte = 'G'
)

// Names of the built-in layouts
const (
	Layout4x4 = "4x4"
	Layout8x8 = "8x8"
)

// StartTolerance is the tolerance allowed when checking that a start
// distribution sums to 1
const StartTolerance float64 = 1e-9

var builtin = map[string][]string{
	Layout4x4: {
		"SFFF",
		"FHFH",
		"FFFH",
		"HFFG",
	},
	Layout8x8: {
		"SFFFFFFF",
		"FFFFFFFF",
		"FFFHFFFF",
		"FFFFHFFF",
		"FFFHFFFF",
		"FHHFFFHF",
		"FHFFHFHF",
		"FFFHFFFG",
	},
}

// UnsupportedLayoutError is returned when a layout name is not
// recognized. It is a configuration error and should not be retried.
type UnsupportedLayoutError struct {
	Name string
}

func (e *UnsupportedLayoutError) Error() string {
	return fmt.Sprintf("unsupported map layout %q", e.Name)
}

// Layout is a named grid description. Each row is a string of cell
// types: S (start), F (frozen), H (hole), and G (goal).
type Layout struct {
	name string
	desc [][]byte
}

// NewLayout returns a new Layout with the given name and rows. Rows
// must be non-empty and of equal length, consist only of the cell
// types S, F, H, and G, and contain at least one start cell.
func NewLayout(name string, rows ...string) (Layout, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return Layout{}, fmt.Errorf("newLayout: layout %q is empty", name)
	}

	desc := make([][]byte, len(rows))
	starts := 0
	for i, row := range rows {
		if len(row) != len(rows[0]) {
			return Layout{}, fmt.Errorf("newLayout: layout %q row %d has "+
				"%d columns, expected %d", name, i, len(row), len(rows[0]))
		}

		desc[i] = []byte(row)
		for j, c := range desc[i] {
			switch c {
			case Start:
				starts++
			case Frozen, Hole, Goal:
			default:
				return Layout{}, fmt.Errorf("newLayout: layout %q has "+
					"illegal cell %q at (%d, %d)", name, c, i, j)
			}
		}
	}

	if starts == 0 {
		return Layout{}, fmt.Errorf("newLayout: layout %q has no start "+
			"cells", name)
	}

	return Layout{name: name, desc: desc}, nil
}

// LookupLayout returns the built-in Layout with the given name
func LookupLayout(name string) (Layout, error) {
	rows, ok := builtin[name]
	if !ok {
		return Layout{}, &UnsupportedLayoutError{name}
	}
	return NewLayout(name, rows...)
}

// LayoutNames returns the names of the built-in layouts in sorted order
func LayoutNames() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Name returns the name of the Layout
func (l Layout) Name() string {
	return l.name
}

// Dims returns the number of rows and columns in the Layout
func (l Layout) Dims() (r, c int) {
	if len(l.desc) == 0 {
		return 0, 0
	}
	return len(l.desc), len(l.desc[0])
}

// At returns the cell type at row i, column j
func (l Layout) At(i, j int) byte {
	return l.desc[i][j]
}

// Rows returns the Layout as a slice of strings
func (l Layout) Rows() []string {
	rows := make([]string, len(l.desc))
	for i := range l.desc {
		rows[i] = string(l.desc[i])
	}
	return rows
}

// Count returns the number of cells of type cell
func (l Layout) Count(cell byte) int {
	n := 0
	for i := range l.desc {
		for _, c := range l.desc[i] {
			if c == cell {
				n++
			}
		}
	}
	return n
}

// StartDistribution returns the normalized indicator vector of start
// cells over the flattened Layout
func (l Layout) StartDistribution() *mat.VecDense {
	r, c := l.Dims()
	dist := make([]float64, r*c)
	for i := range l.desc {
		for j, cell := range l.desc[i] {
			if cell == Start {
				dist[i*c+j] = 1.0
			}
		}
	}
	floats.Scale(1/floats.Sum(dist), dist)

	return mat.NewVecDense(len(dist), dist)
}

// layoutState holds a Layout and every quantity derived from it. A
// GridWorld swaps its layoutState as a whole, so derived fields can
// never be observed out of sync with the Layout.
type layoutState struct {
	layout     Layout
	rows, cols int
	startDist  *mat.VecDense
	starter    *environment.CategoricalStarter
	stepLimit  *environment.StepLimit
}

// newLayoutState computes the derived state of a Layout. If cutoff is
// not positive, the default episode cutoff for the Layout's size is
// used.
func newLayoutState(l Layout, cutoff int, seed uint64) (*layoutState,
	error) {
	rows, cols := l.Dims()
	startDist := l.StartDistribution()

	starter, err := environment.NewCategoricalStarter(
		startDist.RawVector().Data, seed)
	if err != nil {
		return nil, fmt.Errorf("newLayoutState: %v", err)
	}

	if cutoff <= 0 {
		cutoff = DefaultCutoff(rows, cols)
	}

	return &layoutState{
		layout:    l,
		rows:      rows,
		cols:      cols,
		startDist: startDist,
		starter:   starter,
		stepLimit: environment.NewStepLimit(cutoff),
	}, nil
}

// validate checks that all derived fields agree with the Layout
func (s *layoutState) validate() error {
	rows, cols := s.layout.Dims()
	if rows != s.rows || cols != s.cols {
		return fmt.Errorf("dimensions (%d, %d) do not match layout %q "+
			"(%d, %d)", s.rows, s.cols, s.layout.Name(), rows, cols)
	}

	dist := s.startDist.RawVector().Data
	if len(dist) != rows*cols {
		return fmt.Errorf("start distribution has %d entries, expected %d",
			len(dist), rows*cols)
	}

	nonZero := 0
	for i, p := range dist {
		if p < 0 {
			return fmt.Errorf("start distribution entry %d is negative", i)
		}
		if p > 0 {
			nonZero++
			if s.layout.At(i/cols, i%cols) != Start {
				return fmt.Errorf("start distribution places mass on "+
					"non-start cell %d", i)
			}
		}
	}
	if want := s.layout.Count(Start); nonZero != want {
		return fmt.Errorf("start distribution has %d non-zero entries, "+
			"expected %d", nonZero, want)
	}

	if sum := floats.Sum(dist); math.Abs(sum-1.0) > StartTolerance {
		return fmt.Errorf("start distribution sums to %v", sum)
	}
	return nil
}

// DefaultCutoff returns the default episode cutoff for a grid of the
// given size: 100 steps for grids up to 4x4, 200 otherwise.
func DefaultCutoff(rows, cols int) int {
	if rows*cols <= 16 {
		return 100
	}
	return 200
}
