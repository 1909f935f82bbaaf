package mcts

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/pomcpgo/rollout"
)

// ErrInvalidConfig is returned by New and Config.Validate.
var ErrInvalidConfig = errors.New("invalid planner config")

var validate = validator.New()

// Config is the structure to configure the planner.
type Config struct {
	BeliefSize  int           `json:"belief_size" yaml:"belief_size" validate:"gt=0"`  // particles kept at the root
	Iterations  int           `json:"iterations" yaml:"iterations" validate:"gt=0"`    // simulations per decision
	Exploration float64       `json:"exploration" yaml:"exploration" validate:"gte=0"` // UCB coefficient c
	Horizon     int           `json:"horizon" yaml:"horizon" validate:"gte=0"`         // search depth cap, 0 = steps remaining
	Workers     int           `json:"workers" yaml:"workers" validate:"gte=1"`         // simulation goroutines
	Timeout     time.Duration `json:"timeout" yaml:"timeout" validate:"gte=0"`         // wall clock cap per search, 0 = none

	UpdateBudget           int `json:"update_budget" yaml:"update_budget" validate:"gt=0"`                       // rejection trials per belief update round
	ReinvigorationAttempts int `json:"reinvigoration_attempts" yaml:"reinvigoration_attempts" validate:"gte=0"` // prior redraw rounds on depletion

	Seed    uint64         `json:"seed" yaml:"seed"`
	Rollout rollout.Config `json:"rollout" yaml:"rollout" validate:"-"`
}

// DefaultConfig returns the settings used on the tiger problem.
func DefaultConfig() Config {
	return Config{
		BeliefSize:             1000,
		Iterations:             1000,
		Exploration:            25,
		Workers:                1,
		UpdateBudget:           10000,
		ReinvigorationAttempts: 3,
		Seed:                   1337,
		Rollout:                rollout.DefaultConfig(),
	}
}

// Validate reports every invalid field at once, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	var errs error
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return errors.Wrap(ErrInvalidConfig, err.Error())
		}
		for _, fe := range verrs {
			errs = multierror.Append(errs, errors.Errorf("%s: %v fails %s=%s", fe.Namespace(), fe.Value(), fe.Tag(), fe.Param()))
		}
	}
	if err := c.Rollout.Validate(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if errs != nil {
		return errors.Wrap(ErrInvalidConfig, errs.Error())
	}
	return nil
}

// depth is the simulation depth for a decision with steps steps left.
func (c Config) depth(steps int) int {
	if c.Horizon > 0 && c.Horizon < steps {
		return c.Horizon
	}
	return steps
}
