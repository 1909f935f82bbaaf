package pomcp

import (
	"context"
	"sync"

	"github.com/pomcpgo/belief"
	"github.com/pomcpgo/mcts"
	"github.com/pomcpgo/model"
)

// An Agent is a planner that acts in one episode at a time.
type Agent struct {
	Planner *mcts.Planner

	// Temperature > 0 samples actions from the root visit distribution.
	Temperature float32

	// Statistics
	Episodes    int
	Failures    int
	TotalReturn float64
	sync.Mutex

	name string
}

// NewAgent wraps p.
func NewAgent(name string, p *mcts.Planner, temperature float32) *Agent {
	return &Agent{Planner: p, Temperature: temperature, name: name}
}

// Name of the agent
func (a *Agent) Name() string { return a.name }

// Act starts an episode from prior and returns the first action.
func (a *Agent) Act(ctx context.Context, prior belief.Sampler, steps int) (model.Action, error) {
	best, err := a.Planner.SampleAction(ctx, prior, steps)
	if err != nil {
		return best, err
	}
	return a.choose(best), nil
}

// Observe feeds back the real action and observation and returns the next action.
func (a *Agent) Observe(ctx context.Context, act model.Action, o model.Observation, steps int) (model.Action, error) {
	best, err := a.Planner.Advance(ctx, act, o, steps)
	if err != nil {
		return best, err
	}
	return a.choose(best), nil
}

func (a *Agent) choose(best model.Action) model.Action {
	if a.Temperature <= 0 {
		return best
	}
	return a.Planner.SamplePolicy(a.Temperature)
}

func (a *Agent) record(ret float64, failed bool) {
	a.Lock()
	defer a.Unlock()
	a.Episodes++
	if failed {
		a.Failures++
		return
	}
	a.TotalReturn += ret
}

// Stats returns the episode counters.
func (a *Agent) Stats() (episodes, failures int, totalReturn float64) {
	a.Lock()
	defer a.Unlock()
	return a.Episodes, a.Failures, a.TotalReturn
}
