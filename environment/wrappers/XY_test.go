package wrappers

import (
	"testing"

	"github.com/samuelfneumann/nonstationary/environment/gridworld"
	"github.com/samuelfneumann/nonstationary/trigger"
)

func TestXYAcrossLayoutSwitch(t *testing.T) {
	g := newGrid(t, gridworld.Layout4x4, gridworld.OneHot)
	l, err := NewLayoutSwitch(g, gridworld.Layout8x8, 2,
		WithObserver(trigger.Discard))
	if err != nil {
		t.Fatal(err)
	}
	xy := NewXY(l)

	tests := []struct {
		action int
		x, y   float64
	}{
		{gridworld.Right, 1, 0},
		{gridworld.Right, 2, 0}, // switches to 8x8 after this step
		{gridworld.Down, 2, 1},
		{gridworld.Right, 3, 1},
	}

	for i, test := range tests {
		step, _, err := xy.Step(gridAction(test.action))
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if x, y := step.Observation.AtVec(0), step.Observation.AtVec(1); x !=
			test.x || y != test.y {
			t.Errorf("step %d: (x, y) \n\twant(%v, %v) \n\thave(%v, %v)", i,
				test.x, test.y, x, y)
		}
	}

	spec := xy.ObservationSpec()
	if spec.UpperBound.AtVec(0) != 7 || spec.UpperBound.AtVec(1) != 7 {
		t.Errorf("observationSpec: want bounds of the 8x8 grid, got %v", spec)
	}

	if _, err := xy.Reset(); err != nil {
		t.Fatal(err)
	}
}
