package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/samuelfneumann/nonstationary/environment/envconfig"
	"github.com/samuelfneumann/nonstationary/environment/wrappers"
	"github.com/samuelfneumann/nonstationary/experiment"
	"github.com/samuelfneumann/nonstationary/experiment/plot"
	"github.com/samuelfneumann/nonstationary/experiment/trackers"
	ts "github.com/samuelfneumann/nonstationary/timestep"
	"github.com/samuelfneumann/nonstationary/trigger"
	"github.com/samuelfneumann/nonstationary/utils/floatutils"
	"github.com/samuelfneumann/nonstationary/utils/progressbar"
)

// ProgressWidth is the width of the progress bar in characters
const ProgressWidth = 40

type runFlags struct {
	config     string
	steps      int
	seed       uint64
	data       string
	plot       string
	frames     string
	frameEvery int
	progress   bool
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a uniform random policy in a configured environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.config, "config", "", "path to the JSON environment "+
		"configuration")
	flags.IntVar(&f.steps, "steps", 10_000, "number of steps to run")
	flags.Uint64Var(&f.seed, "seed", 0, "seed, overrides the configuration")
	flags.StringVar(&f.data, "data", "", "file to save episodic returns to, "+
		"switches are saved next to it")
	flags.StringVar(&f.plot, "plot", "", "HTML file to chart returns and "+
		"switches in")
	flags.StringVar(&f.frames, "frames", "", "directory to save rendered "+
		"frames to")
	flags.IntVar(&f.frameEvery, "frame-every", 100, "steps between frames")
	flags.BoolVar(&f.progress, "progress", false, "display a progress bar")
	cmd.MarkFlagRequired("config")

	return cmd
}

// progress is a Tracker displaying a progress bar over environment
// steps
type progress struct {
	*progressbar.ManualProgressBar
}

func (p progress) Track(t ts.TimeStep) {
	if !t.First() {
		p.Increment()
		p.Display()
	}
}

func (p progress) Save() error {
	fmt.Fprintln(os.Stderr)
	return nil
}

func run(cmd *cobra.Command, f runFlags) error {
	runID := uuid.New()
	logger := log.New(os.Stderr, fmt.Sprintf("[%v] ", runID), log.LstdFlags)

	c, err := envconfig.Load(f.config)
	if err != nil {
		return err
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		c.Seed = f.seed
	}

	switches := trackers.NewSwitches(f.data + ".switches")
	observer := trigger.Multi(trigger.LogObserver(logger), switches)
	env, _, err := c.Create(wrappers.WithObserver(observer))
	if err != nil {
		return err
	}
	defer env.Close()
	logger.Printf("Running %v steps in %v", f.steps, env)

	ret := trackers.NewReturn(f.data)
	exp := experiment.NewOnline(env, experiment.NewRandom(c.Seed), f.steps,
		ret, switches)

	var frames *trackers.Frames
	if f.frames != "" {
		frames, err = trackers.NewFrames(env, f.frames, f.frameEvery)
		if err != nil {
			return err
		}
		exp.Register(frames)
	}

	var bar progress
	if f.progress {
		bar = progress{progressbar.NewManualProgressBar(os.Stderr,
			ProgressWidth, f.steps)}
		exp.Register(bar)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runErr := exp.Run(ctx)
	if bar.ManualProgressBar != nil {
		bar.Save()
	}
	if runErr != nil {
		logger.Printf("Stopped after %v steps: %v", exp.Steps(), runErr)
	}
	logger.Printf("Finished %v episodes with %v switches, mean return %.3f",
		exp.Episodes(), len(switches.Switches()),
		floatutils.Mean(ret.Returns()))

	if f.data != "" {
		if err := ret.Save(); err != nil {
			return err
		}
		if err := switches.Save(); err != nil {
			return err
		}
	}
	if frames != nil {
		if err := frames.Save(); err != nil {
			return err
		}
		logger.Printf("Saved %v frames to %v", frames.Saved(), f.frames)
	}
	if f.plot != "" {
		err := plot.SaveReturns(f.plot, string(c.Wrapper), ret.Returns(),
			switches.Episodes())
		if err != nil {
			return err
		}
	}
	return runErr
}
