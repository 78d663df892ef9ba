package experiment

import (
	"context"
	"fmt"

	env "github.com/samuelfneumann/nonstationary/environment"
	"github.com/samuelfneumann/nonstationary/experiment/trackers"
	ts "github.com/samuelfneumann/nonstationary/timestep"
)

// Online runs a Policy online in an Environment for a fixed number of
// steps. Each TimeStep is sent to the registered Trackers, which
// determine what data is saved.
type Online struct {
	env.Environment
	policy Policy

	maxSteps     int
	currentSteps int
	episodes     int

	trackers []trackers.Tracker
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given policy. The steps parameter determines how
// many timesteps the experiment is run for.
func NewOnline(e env.Environment, p Policy, steps int,
	t ...trackers.Tracker) *Online {
	return &Online{Environment: e, policy: p, maxSteps: steps, trackers: t}
}

// Register registers a Tracker with the experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t trackers.Tracker) {
	o.trackers = append(o.trackers, t)
}

// RunEpisode runs a single episode of the experiment and returns
// whether the step limit of the experiment has been reached
func (o *Online) RunEpisode(ctx context.Context) (bool, error) {
	step, err := o.Environment.Reset()
	if err != nil {
		return true, fmt.Errorf("runEpisode: %w", err)
	}
	o.track(step)

	for !step.Last() && o.currentSteps < o.maxSteps {
		if err := ctx.Err(); err != nil {
			return true, err
		}
		o.currentSteps++

		action := o.policy.SelectAction(step, o.Environment.ActionSpec())
		step, _, err = o.Environment.Step(action)
		if err != nil {
			return true, fmt.Errorf("runEpisode: step %d: %w", o.currentSteps,
				err)
		}
		o.track(step)
	}

	if step.Last() {
		o.episodes++
	}
	return o.currentSteps >= o.maxSteps, nil
}

// Run runs the entire experiment for all timesteps
func (o *Online) Run(ctx context.Context) error {
	for {
		ended, err := o.RunEpisode(ctx)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		if ended {
			return nil
		}
	}
}

// Steps returns the number of steps taken so far
func (o *Online) Steps() int {
	return o.currentSteps
}

// Episodes returns the number of episodes completed so far
func (o *Online) Episodes() int {
	return o.episodes
}

// Save saves the data cached by the Trackers to disk
func (o *Online) Save() error {
	for _, t := range o.trackers {
		if err := t.Save(); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	return nil
}

func (o *Online) track(t ts.TimeStep) {
	for _, tracker := range o.trackers {
		tracker.Track(t)
	}
}
