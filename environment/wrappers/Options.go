// Package wrappers provides non-stationary wrappers for environments.
//
// Each wrapper counts the environmental steps taken through it with a
// trigger.Trigger and, when the trigger fires, switches the wrapped
// environment to its next variant before returning:
//
//	LayoutSwitch	replaces the map layout of a gridworld
//	DynamicsSwitch	rebuilds a backend from the next model definition
//	Rotator		rotates through a list of environment factories
//
// Wrappers are safe for concurrent use. Every operation holds the
// wrapper's lock, so a switch is never observed half done.
package wrappers

import (
	"errors"
	"log"

	"github.com/samuelfneumann/nonstationary/trigger"
)

// ErrClosed is returned by every operation on a closed wrapper
var ErrClosed = errors.New("environment is closed")

// config holds the settings shared by all wrappers
type config struct {
	policy    trigger.Policy
	resetRule trigger.ResetRule
	observer  trigger.Observer
	reuse     bool
}

func newConfig(policy trigger.Policy, resetRule trigger.ResetRule,
	opts []Option) config {
	c := config{
		policy:    policy,
		resetRule: resetRule,
		observer:  trigger.LogObserver(log.Default()),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Option configures a wrapper at construction
type Option func(*config)

// WithObserver sets the Observer notified of every switch. By default,
// switches are logged with the standard logger.
func WithObserver(o trigger.Observer) Option {
	return func(c *config) {
		if o == nil {
			o = trigger.Discard
		}
		c.observer = o
	}
}

// WithPolicy sets the trigger policy of a wrapper
func WithPolicy(p trigger.Policy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithResetRule sets how a wrapper's trigger behaves on reset
func WithResetRule(r trigger.ResetRule) Option {
	return func(c *config) {
		c.resetRule = r
	}
}

// WithReuse makes a Rotator keep every environment it constructs and
// reuse it, instead of closing it and constructing a new one, when
// rotating back to it. Other wrappers ignore it.
func WithReuse() Option {
	return func(c *config) {
		c.reuse = true
	}
}
