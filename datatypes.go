package pomcp

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/pomcpgo/mcts"
	"github.com/pomcpgo/model"
)

var validate = validator.New()

// Config for the Bench structure.
// It holds the planner settings plus how many episodes to play and how.
type Config struct {
	Name    string      `json:"name" yaml:"name"`
	Planner mcts.Config `json:"planner" yaml:"planner" validate:"-"`

	Episodes int    `json:"episodes" yaml:"episodes" validate:"gt=0"`
	Steps    int    `json:"steps" yaml:"steps" validate:"gt=0"`       // decisions per episode
	Parallel int    `json:"parallel" yaml:"parallel" validate:"gte=1"` // episodes played at once
	Seed     uint64 `json:"seed" yaml:"seed"`

	// Temperature > 0 makes agents sample actions from the root visit
	// distribution instead of always taking the most visited one.
	Temperature float32 `json:"temperature" yaml:"temperature" validate:"gte=0"`
}

// DefaultConfig plays ten short tiger episodes.
func DefaultConfig() Config {
	return Config{
		Name:     "tiger",
		Planner:  mcts.DefaultConfig(),
		Episodes: 10,
		Steps:    10,
		Parallel: 1,
		Seed:     1,
	}
}

// Validate reports every invalid field, including the planner's.
func (c Config) Validate() error {
	var errs error
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return errors.Wrap(mcts.ErrInvalidConfig, err.Error())
		}
		for _, fe := range verrs {
			errs = multierror.Append(errs, errors.Errorf("%s: %v fails %s=%s", fe.Namespace(), fe.Value(), fe.Tag(), fe.Param()))
		}
	}
	if err := c.Planner.Validate(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if errs != nil {
		return errors.Wrap(mcts.ErrInvalidConfig, errs.Error())
	}
	return nil
}

// LoadConfig reads a YAML config. Fields missing from the file keep their
// DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	return LoadConfigWithDefaults(path, DefaultConfig())
}

// LoadConfigWithDefaults reads a YAML config over conf, so fields missing from
// the file keep the values conf has.
func LoadConfigWithDefaults(path string, conf Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return conf, errors.WithStack(err)
	}
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return conf, errors.Wrapf(err, "parsing %s", path)
	}
	return conf, conf.Validate()
}

// Step is one real transition of an episode.
type Step struct {
	State       model.State       `json:"state" yaml:"state"` // hidden state the action was taken in
	Action      model.Action      `json:"action" yaml:"action"`
	Observation model.Observation `json:"observation" yaml:"observation"`
	Reward      float64           `json:"reward" yaml:"reward"`
}

// Episode is the record of one played episode.
type Episode struct {
	ID       string  `json:"id" yaml:"id"`
	Steps    []Step  `json:"steps" yaml:"steps"`
	Return   float64 `json:"return" yaml:"return"` // discounted sum of rewards
	Terminal bool    `json:"terminal" yaml:"terminal"`
}

// Summary aggregates the episodes of a Bench run. Failed episodes are counted
// but left out of Returns.
type Summary struct {
	Name     string    `json:"name" yaml:"name"`
	Episodes int       `json:"episodes" yaml:"episodes"`
	Failures int       `json:"failures" yaml:"failures"`
	Returns  []float64 `json:"returns" yaml:"returns"`
	Mean     float64   `json:"mean" yaml:"mean"`
	StdDev   float64   `json:"std_dev" yaml:"std_dev"`
}

// Save writes the summary into filename as YAML.
func (s Summary) Save(filename string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.WriteFile(filename, data, 0644))
}

// LoadSummary reads a summary written by Save.
func LoadSummary(filename string) (Summary, error) {
	var s Summary
	data, err := os.ReadFile(filename)
	if err != nil {
		return s, errors.WithStack(err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, errors.Wrapf(err, "parsing %s", filename)
	}
	return s, nil
}
