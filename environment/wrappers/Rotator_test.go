package wrappers

import (
	"errors"
	"testing"

	"github.com/samuelfneumann/nonstationary/environment"
	"github.com/samuelfneumann/nonstationary/trigger"
)

func TestRotatorClosure(t *testing.T) {
	for n := 1; n <= 5; n++ {
		obsLens := make([]int, n)
		for i := range obsLens {
			obsLens[i] = 1
		}

		var built []*stub
		r, _, err := NewRotator(stubFactories(&built, obsLens...), 3,
			WithObserver(trigger.Discard))
		if err != nil {
			t.Fatal(err)
		}

		// After N rotations the Rotator is back at its first environment
		for i := 0; i < n; i++ {
			if err := r.SwitchDynamics(); err != nil {
				t.Fatal(err)
			}
		}
		if r.Index() != 0 || r.Switches() != n {
			t.Errorf("%d environments: want index 0 after %d switches, got "+
				"%d", n, n, r.Index())
		}
		if len(built) != n+1 {
			t.Errorf("%d environments: want %d constructions, got %d", n,
				n+1, len(built))
		}
		r.Close()
	}
}

func TestRotatorStepAndReset(t *testing.T) {
	var built []*stub
	rec := &trigger.Recorder{}
	r, _, err := NewRotator(stubFactories(&built, 2, 2, 4), 3,
		WithObserver(rec))
	if err != nil {
		t.Fatal(err)
	}

	// Steps 1 and 2 in env0, step 3 in env0 rotates to env1
	for i := 0; i < 3; i++ {
		step, _, err := r.Step(action)
		if err != nil {
			t.Fatal(err)
		}
		if step.Reward != 0 {
			t.Errorf("step %d: want step in env0, got env%v", i, step.Reward)
		}
	}
	if r.Index() != 1 || !built[0].closed {
		t.Fatalf("step: want rotation to env1 with env0 closed, index %d",
			r.Index())
	}

	// Past the threshold, every reset rotates first and resets the new
	// environment
	step, err := r.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if r.Index() != 2 || step.Observation.AtVec(0) != 2 {
		t.Errorf("reset: want first step of env2, got index %d and "+
			"observation %v", r.Index(), step.Observation.RawVector().Data)
	}
	if r.ObservationSpec().Len() != 4 {
		t.Errorf("reset: observation spec not republished, length %d",
			r.ObservationSpec().Len())
	}

	events := rec.Events()
	if len(events) != 2 {
		t.Fatalf("observer: want 2 events, got %v", events)
	}
	if events[0].Cause != trigger.OnStep || events[0].SpecsChanged {
		t.Errorf("observer: unexpected first event %+v", events[0])
	}
	if events[1].Cause != trigger.OnReset || !events[1].SpecsChanged ||
		events[1].From != "env1 (#1)" || events[1].To != "env2 (#2)" {
		t.Errorf("observer: unexpected second event %+v", events[1])
	}
}

func TestRotatorReuse(t *testing.T) {
	var built []*stub
	r, _, err := NewRotator(stubFactories(&built, 1, 1), 1,
		WithObserver(trigger.Discard), WithReuse())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 6; i++ {
		if _, _, err := r.Step(action); err != nil {
			t.Fatal(err)
		}
	}
	if len(built) != 2 {
		t.Errorf("reuse: want 2 constructions, got %d", len(built))
	}
	// env0 is reset on construction and on rotations 2, 4, and 6, env1
	// on construction and on rotations 3 and 5
	wantResets := []int{4, 3}
	for i, s := range built {
		if s.closed {
			t.Errorf("reuse: environment %d closed while cached", i)
		}
		if s.resets != wantResets[i] {
			t.Errorf("reuse: environment %d resets \n\twant(%v) "+
				"\n\thave(%v)", i, wantResets[i], s.resets)
		}
	}

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	for i, s := range built {
		if !s.closed {
			t.Errorf("close: environment %d not closed", i)
		}
	}
}

func TestRotatorErrors(t *testing.T) {
	if _, _, err := NewRotator(nil, 3); !errors.Is(err,
		environment.ErrEmptyVariants) {
		t.Errorf("newRotator: want ErrEmptyVariants, got %v", err)
	}

	var built []*stub
	_, _, err := NewRotator(stubFactories(&built, 1), -1)
	if !errors.Is(err, trigger.ErrThreshold) {
		t.Errorf("newRotator: want ErrThreshold, got %v", err)
	}

	built = nil
	r, _, err := NewRotator(stubFactories(&built, 1, 1), 100,
		WithObserver(trigger.Discard), WithReuse())
	if err != nil {
		t.Fatal(err)
	}
	r.SwitchDynamics()
	built[0].failReset = true
	if err := r.SwitchDynamics(); err == nil {
		t.Fatal("switchDynamics: want error when reset fails")
	}
	if _, _, err := r.Step(action); err == nil {
		t.Error("step: want stored error after failed switch")
	}
}

func TestRotatorCloseFailure(t *testing.T) {
	var built []*stub
	r, _, err := NewRotator(stubFactories(&built, 1, 1), 100,
		WithObserver(trigger.Discard))
	if err != nil {
		t.Fatal(err)
	}
	built[0].failClose = true

	if err := r.SwitchDynamics(); err == nil {
		t.Fatal("switchDynamics: want error when the environment cannot " +
			"be closed")
	}
	if r.Index() != 0 || r.Switches() != 0 {
		t.Errorf("index \n\twant(0, 0) \n\thave(%d, %d)", r.Index(),
			r.Switches())
	}

	if err := r.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if built[0].closes != 1 {
		t.Errorf("close: environment closed %d times", built[0].closes)
	}
}

func TestRotatorRender(t *testing.T) {
	var built []*stub
	r, _, err := NewRotator(stubFactories(&built, 1, 1), 1,
		WithObserver(trigger.Discard))
	if err != nil {
		t.Fatal(err)
	}
	r.Step(action)

	frame, err := r.Render(environment.ANSI)
	if err != nil || frame.Text != "env1" {
		t.Errorf("render: want frame of env1, got %q (%v)", frame.Text, err)
	}
}
