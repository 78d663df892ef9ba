package timestep

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestEndType(t *testing.T) {
	tests := []struct {
		name       string
		stepType   StepType
		end        EndType
		terminated bool
		truncated  bool
	}{
		{"mid-terminal", Mid, TerminalStateReached, false, false},
		{"last-terminal", Last, TerminalStateReached, true, false},
		{"last-timeout", Last, Timeout, false, true},
		{"last-unknown", Last, Unknown, false, false},
	}

	for _, test := range tests {
		step := New(test.stepType, 0, 1, mat.NewVecDense(1, nil), 3)
		step.SetEnd(test.end)

		if step.Terminated() != test.terminated {
			t.Errorf("%v: terminated \n\twant(%v) \n\thave(%v)", test.name,
				test.terminated, step.Terminated())
		}
		if step.Truncated() != test.truncated {
			t.Errorf("%v: truncated \n\twant(%v) \n\thave(%v)", test.name,
				test.truncated, step.Truncated())
		}
	}
}

func TestSetInfo(t *testing.T) {
	step := New(First, 0, 1, mat.NewVecDense(1, nil), 0)
	step.SetInfo("prob", 1.0)

	if v, ok := step.Info["prob"]; !ok || v.(float64) != 1.0 {
		t.Errorf("setInfo: expected prob = 1.0, got %v", step.Info)
	}
}
