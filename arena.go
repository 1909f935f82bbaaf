package pomcp

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"github.com/pomcpgo/belief"
	"github.com/pomcpgo/model"
)

// Arena represents the environment an agent acts in. It owns the hidden state
// and samples real transitions from the same generative model the agent plans
// with.
type Arena struct {
	r     *rand.Rand
	m     model.Generative
	agent *Agent

	prior belief.Sampler // the agent's initial belief
	truth belief.Sampler // where the hidden initial state comes from
	steps int

	logger *slog.Logger
	name   string

	episodes int // episodes started
}

// MakeArena makes an arena for m. Hidden initial states are drawn from prior
// unless SetTruth says otherwise.
func MakeArena(m model.Generative, prior belief.Sampler, agent *Agent, steps int, seed uint64, name string) Arena {
	if name == "" {
		name = "UNKNOWN MODEL"
	}
	return Arena{
		r:      rand.New(rand.NewSource(seed)),
		m:      m,
		agent:  agent,
		prior:  prior,
		truth:  prior,
		steps:  steps,
		logger: slog.Default(),
		name:   name,
	}
}

// SetTruth sets the distribution of the hidden initial state, letting the
// agent start from a mistaken prior.
func (a *Arena) SetTruth(b belief.Sampler) { a.truth = b }

// SetLogger sets the arena's logger.
func (a *Arena) SetLogger(l *slog.Logger) { a.logger = l }

// Play plays one episode: at most steps decisions, fewer if a terminal state
// is reached. A failed planner call ends the episode; the steps played so far
// are returned with the error.
func (a *Arena) Play(ctx context.Context) (ep Episode, err error) {
	a.episodes++
	ep.ID = uuid.NewString()
	logger := a.logger.With(slog.String("arena", a.name), slog.String("episode", ep.ID), slog.String("agent", a.agent.Name()))
	defer func() { a.agent.record(ep.Return, err != nil) }()

	s := a.truth.Sample(a.r)
	act, err := a.agent.Act(ctx, a.prior, a.steps)
	if err != nil {
		return ep, errors.WithMessagef(err, "episode %s: first action", ep.ID)
	}

	gamma, discount := 1.0, a.m.Discount()
	for t := 0; t < a.steps; t++ {
		s1, o, r := a.m.SampleSOR(a.r, s, act)
		ep.Steps = append(ep.Steps, Step{State: s, Action: act, Observation: o, Reward: r})
		ep.Return += gamma * r
		gamma *= discount
		logger.Debug("step", slog.Int("t", t), slog.Int("action", int(act)), slog.Int("observation", int(o)), slog.Float64("reward", r))

		s = s1
		if a.m.IsTerminal(s) {
			ep.Terminal = true
			break
		}
		if t == a.steps-1 {
			break
		}
		if act, err = a.agent.Observe(ctx, act, o, a.steps-t-1); err != nil {
			logger.Warn("episode failed", slog.Int("t", t), slog.String("error", err.Error()))
			return ep, errors.WithMessagef(err, "episode %s: step %d", ep.ID, t+1)
		}
	}
	logger.Info("episode finished", slog.Int("steps", len(ep.Steps)), slog.Float64("return", ep.Return), slog.Bool("terminal", ep.Terminal))
	return ep, nil
}

// Episodes returns the number of episodes started
func (a *Arena) Episodes() int { return a.episodes }

// Name of the arena
func (a *Arena) Name() string { return a.name }
