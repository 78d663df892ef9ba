// Package trigger implements interaction counting and the decision of
// when a non-stationary environment should switch to its next variant.
//
// A Trigger counts environmental steps and reports, after each step
// and at each reset, whether a switch is due. Two policies are
// supported:
//
//	Once		fires the first time the count reaches the threshold,
//			then never again
//	Periodic	fires whenever the count is a multiple of the threshold
//
// How a Trigger behaves at reset is configured separately through a
// ResetRule.
package trigger

import (
	"errors"
	"fmt"
)

// ErrThreshold is returned when a Trigger is constructed with a
// threshold smaller than 1
var ErrThreshold = errors.New("switch threshold must be at least 1")

// ErrPolicy and ErrResetRule are returned when parsing unknown policy
// or reset rule names
var (
	ErrPolicy    = errors.New("no such policy")
	ErrResetRule = errors.New("no such reset rule")
)

// Policy determines when a Trigger fires on a step
type Policy int

const (
	// Once fires when the step count first reaches the threshold
	Once Policy = iota

	// Periodic fires whenever the step count is a multiple of the
	// threshold
	Periodic
)

func (p Policy) String() string {
	switch p {
	case Once:
		return "once"
	case Periodic:
		return "periodic"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy returns the Policy with the given name
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "once", "threshold-once":
		return Once, nil
	case "periodic":
		return Periodic, nil
	}
	return 0, fmt.Errorf("parsePolicy: %w %q", ErrPolicy, name)
}

// ResetRule determines whether a Trigger fires when its environment is
// reset
type ResetRule int

const (
	// ResetIgnore never fires on reset
	ResetIgnore ResetRule = iota

	// ResetPending fires on reset only if a switch is due that has not
	// been taken yet
	ResetPending

	// ResetPastThreshold fires on every reset once the step count has
	// reached the threshold. A Once trigger still fires at most once.
	ResetPastThreshold
)

func (r ResetRule) String() string {
	switch r {
	case ResetIgnore:
		return "ignore"
	case ResetPending:
		return "pending"
	case ResetPastThreshold:
		return "past-threshold"
	default:
		return fmt.Sprintf("ResetRule(%d)", int(r))
	}
}

// ParseResetRule returns the ResetRule with the given name
func ParseResetRule(name string) (ResetRule, error) {
	switch name {
	case "ignore":
		return ResetIgnore, nil
	case "pending":
		return ResetPending, nil
	case "past-threshold":
		return ResetPastThreshold, nil
	}
	return 0, fmt.Errorf("parseResetRule: %w %q", ErrResetRule, name)
}

// Trigger counts environmental steps and decides when a switch is due.
// The count is never reset after construction.
type Trigger struct {
	policy    Policy
	threshold int
	resetRule ResetRule

	count int
	fired int

	// periods is the number of whole thresholds which have been
	// accounted for by a switch
	periods int

	// condition, if set, replaces the at-most-once rule of a Once
	// trigger
	condition func() bool
}

// New returns a new Trigger
func New(policy Policy, threshold int, resetRule ResetRule) (*Trigger,
	error) {
	if threshold < 1 {
		return nil, fmt.Errorf("new: %w (have %d)", ErrThreshold, threshold)
	}
	if policy != Once && policy != Periodic {
		return nil, fmt.Errorf("new: no such policy %v", policy)
	}
	if resetRule < ResetIgnore || resetRule > ResetPastThreshold {
		return nil, fmt.Errorf("new: no such reset rule %v", resetRule)
	}

	return &Trigger{
		policy:    policy,
		threshold: threshold,
		resetRule: resetRule,
	}, nil
}

// RecordStep increments the step count by one and returns whether the
// new count satisfies the switch predicate. A true return value means
// the caller is expected to switch.
func (t *Trigger) RecordStep() bool {
	t.count++

	switch t.policy {
	case Once:
		return t.fireOnce()

	default:
		if t.count%t.threshold == 0 {
			t.periods = t.count / t.threshold
			t.fired++
			return true
		}
		return false
	}
}

// CheckOnReset re-evaluates the switch predicate at reset time
// according to the Trigger's ResetRule. It never makes a Once trigger
// fire twice.
func (t *Trigger) CheckOnReset() bool {
	switch t.resetRule {
	case ResetPending:
		if t.policy == Once {
			return t.fireOnce()
		}
		if due := t.count / t.threshold; due > t.periods {
			t.periods = due
			t.fired++
			return true
		}
		return false

	case ResetPastThreshold:
		if t.policy == Once {
			return t.fireOnce()
		}
		if t.count >= t.threshold {
			t.periods = t.count / t.threshold
			t.fired++
			return true
		}
		return false

	default:
		return false
	}
}

func (t *Trigger) fireOnce() bool {
	if t.count < t.threshold {
		return false
	}
	if t.condition != nil {
		if !t.condition() {
			return false
		}
	} else if t.fired > 0 {
		return false
	}
	t.fired++
	t.periods = t.count / t.threshold
	return true
}

// SetCondition makes a Once trigger fire whenever the count has
// reached the threshold and cond holds, instead of at most once. cond
// usually reports whether the active variant differs from the target,
// so that the trigger goes quiet once the target is active and fires
// again if the variant is moved off the target. It has no effect on a
// Periodic trigger.
func (t *Trigger) SetCondition(cond func() bool) {
	t.condition = cond
}

// Count returns the number of steps recorded so far
func (t *Trigger) Count() int {
	return t.count
}

// Fired returns the number of times the Trigger has fired
func (t *Trigger) Fired() int {
	return t.fired
}

// Threshold returns the Trigger's switch threshold
func (t *Trigger) Threshold() int {
	return t.threshold
}

// Policy returns the Trigger's step policy
func (t *Trigger) Policy() Policy {
	return t.policy
}

// ResetRule returns the Trigger's reset rule
func (t *Trigger) ResetRule() ResetRule {
	return t.resetRule
}

// Terminal returns whether the Trigger can never fire again
func (t *Trigger) Terminal() bool {
	return t.policy == Once && t.condition == nil && t.fired > 0
}

func (t *Trigger) String() string {
	return fmt.Sprintf("Trigger(%v, threshold=%d, reset=%v, count=%d, "+
		"fired=%d)", t.policy, t.threshold, t.resetRule, t.count, t.fired)
}
