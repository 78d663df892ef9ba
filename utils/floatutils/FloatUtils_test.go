package floatutils

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r1"
)

func TestClip(t *testing.T) {
	tests := []struct {
		value, want float64
	}{
		{-2, -1},
		{0.5, 0.5},
		{3, 1},
	}

	for _, test := range tests {
		if got := ClipInterval(test.value, r1.Interval{Min: -1, Max: 1}); got != test.want {
			t.Errorf("clip(%v) \n\twant(%v) \n\thave(%v)", test.value,
				test.want, got)
		}
	}
}

func TestWhere(t *testing.T) {
	indices := Where([]float64{0, 1, 0, 1}, func(v float64) bool {
		return v == 1
	})
	if len(indices) != 2 || indices[0] != 1 || indices[1] != 3 {
		t.Errorf("where \n\twant(%v) \n\thave(%v)", []int{1, 3}, indices)
	}
}

func TestMean(t *testing.T) {
	if m := Mean([]float64{1, 2, 3}); m != 2 {
		t.Errorf("mean \n\twant(%v) \n\thave(%v)", 2, m)
	}
	if !math.IsNaN(Mean(nil)) {
		t.Error("mean: want NaN for no values")
	}
}
