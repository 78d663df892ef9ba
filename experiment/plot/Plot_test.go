package plot

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestSwitchesUpTo(t *testing.T) {
	switches := []int{1, 1, 3}
	want := []int{0, 2, 2, 3, 3}
	for episode, w := range want {
		if have := switchesUpTo(switches, episode); have != w {
			t.Errorf("episode %d \n\twant(%v) \n\thave(%v)", episode, w, have)
		}
	}
}

func TestReturns(t *testing.T) {
	var buf bytes.Buffer
	err := Returns(&buf, "LayoutSwitch", []float64{0, 1, 0, 1}, []int{2})
	if err != nil {
		t.Fatal(err)
	}

	html := buf.String()
	for _, want := range []string{"LayoutSwitch", "LayoutSwitch switches",
		"echarts"} {
		if !strings.Contains(html, want) {
			t.Errorf("returns: page does not contain %q", want)
		}
	}

	path := filepath.Join(t.TempDir(), "returns.html")
	if err := SaveReturns(path, "Rotator", nil, nil); err != nil {
		t.Errorf("saveReturns: %v", err)
	}
}
