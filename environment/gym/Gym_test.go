package gym_test

import (
	"errors"
	"os"
	"testing"

	"github.com/samuelfneumann/gogym"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nonstationary/environment"
	"github.com/samuelfneumann/nonstationary/environment/gym"
)

// Gym tests need a Python installation with Gym, so they only run when
// NSENV_GYM_TESTS is set
func skipWithoutGym(t *testing.T) {
	t.Helper()
	if os.Getenv("NSENV_GYM_TESTS") == "" {
		t.Skip("set NSENV_GYM_TESTS to run Gym tests")
	}
}

func TestNew(t *testing.T) {
	skipWithoutGym(t)
	defer gogym.Close()

	envs := []string{
		"MountainCarContinuous-v0",
		"MountainCar-v0",
		"Pendulum-v0",
		"CartPole-v0",
		"Acrobot-v1",
	}

	for _, envName := range envs {
		env, step, err := gym.New(envName, 0.99, 123)
		if err != nil {
			t.Errorf("env %v: %v", envName, err)
			continue
		}
		if !step.First() || step.Observation == nil {
			t.Errorf("new: env %v returned invalid first step %v", envName,
				step)
		}

		// Take a bunch of steps in the environment to ensure it works
		size := env.ActionSpec().LowerBound.Len()
		for i := 0; i < 15; i++ {
			next, done, err := env.Step(mat.NewVecDense(size, nil))
			if err != nil {
				t.Errorf("env %v: %v", envName, err)
			} else if next.Number != i+1 && !done {
				t.Errorf("step: timestep number \n\twant(%v) \n\thave(%v)",
					i+1, next.Number)
			}

			if done {
				if _, err := env.Reset(); err != nil {
					t.Errorf("env %v: %v", envName, err)
				}
			}
		}

		if _, err = env.Reset(environment.WithSeed(1)); err != nil {
			t.Errorf("env %v: %v", envName, err)
		}

		env.ObservationSpec()
		env.DiscountSpec()

		if _, err := env.Render(environment.RGBArray); !errors.Is(err,
			gym.ErrRender) {
			t.Errorf("render: want ErrRender, got %v", err)
		}

		env.Close()
	}
}
