package rollout

import (
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

var validate = validator.New()

// Config configures the leaf estimator used at search-tree frontiers.
type Config struct {
	MaxDepth   int     `json:"max_depth" yaml:"max_depth" validate:"gte=0"`     // 0 = bounded by the remaining horizon only
	Adaptive   bool    `json:"adaptive" yaml:"adaptive"`                         // stop early once the reward window settles
	MinDepth   int     `json:"min_depth" yaml:"min_depth" validate:"gte=0"`     // no early stop before this depth
	WindowSize int     `json:"window_size" yaml:"window_size" validate:"gte=0"` // rewards kept in the sliding window
	Threshold  float64 `json:"threshold" yaml:"threshold" validate:"gte=0"`     // |latest - mean| below this stops the rollout
}

// DefaultConfig mirrors the usual adaptive rollout settings, with early termination off.
func DefaultConfig() Config {
	return Config{
		MinDepth:   10,
		WindowSize: 5,
		Threshold:  0.01,
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs error
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return errors.WithStack(err)
		}
		for _, fe := range verrs {
			errs = multierror.Append(errs, errors.Errorf("rollout %s: %v fails %s=%s", fe.Field(), fe.Value(), fe.Tag(), fe.Param()))
		}
	}
	if c.Adaptive && c.WindowSize == 0 {
		errs = multierror.Append(errs, errors.New("adaptive rollout needs a window size"))
	}
	return errs
}
