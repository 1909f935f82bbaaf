package rollout

import (
	"golang.org/x/exp/rand"

	"github.com/pomcpgo/model"
)

// Estimator binds a model and a rollout configuration. It is safe for
// concurrent use as long as each goroutine passes its own rng.
type Estimator struct {
	Config
	m     model.Generative
	space model.ActionSpace
}

// Result is the outcome of one estimate.
type Result struct {
	Return    float64
	Truncated bool // the adaptive window stopped the rollout early
}

// NewEstimator resolves the model's action space and validates conf.
func NewEstimator(m model.Generative, conf Config) (*Estimator, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	space, err := model.ActionsOf(m)
	if err != nil {
		return nil, err
	}
	return &Estimator{Config: conf, m: m, space: space}, nil
}

// Estimate rolls out from s for at most depth steps, further capped by MaxDepth when set.
func (e *Estimator) Estimate(rng *rand.Rand, s model.State, depth int) Result {
	if e.MaxDepth > 0 && e.MaxDepth < depth {
		depth = e.MaxDepth
	}
	var w *window
	if e.Adaptive {
		w = newWindow(e.MinDepth, e.WindowSize, e.Threshold)
	}
	ret, truncated := run(e.m, e.space, s, depth, rng, w)
	return Result{Return: ret, Truncated: truncated}
}
