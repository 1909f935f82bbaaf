package pomcp

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pomcpgo/belief"
	"github.com/pomcpgo/mcts"
	"github.com/pomcpgo/model"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func smallPlanner() mcts.Config {
	conf := mcts.DefaultConfig()
	conf.BeliefSize = 100
	conf.Iterations = 100
	return conf
}

func newAgent(t *testing.T, m model.Generative, conf mcts.Config) *Agent {
	p, err := mcts.New(m, conf, mcts.WithLogger(quiet))
	require.NoError(t, err)
	return NewAgent("test", p, 0)
}

// corridor walks right from state 0 to the terminal state 2, paying 1 per
// step and observing the state it reaches.
func corridor(t *testing.T) *model.Table {
	m := model.NewTable(3, 1, 3, 1)
	for s := model.State(0); s < 3; s++ {
		next := s + 1
		if next > 2 {
			next = 2
		}
		m.SetTransition(s, 0, next, 1)
		m.SetReward(s, 0, next, 1)
		m.SetObservation(s, 0, model.Observation(s), 1)
	}
	m.SetTerminal(2, true)
	require.NoError(t, m.Compile())
	return m
}

// stuck never changes state and observes it exactly.
func stuck(t *testing.T) *model.Table {
	m := model.NewTable(3, 1, 3, 0.9)
	for s := model.State(0); s < 3; s++ {
		m.SetTransition(s, 0, s, 1)
		m.SetObservation(s, 0, model.Observation(s), 1)
	}
	require.NoError(t, m.Compile())
	return m
}

func TestArenaPlaysTiger(t *testing.T) {
	tiger := model.NewTiger()
	agent := newAgent(t, tiger, smallPlanner())
	arena := MakeArena(tiger, belief.Uniform(2), agent, 4, 7, "tiger")
	arena.SetLogger(quiet)

	ep, err := arena.Play(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, ep.ID)
	require.Len(t, ep.Steps, 4)
	assert.False(t, ep.Terminal)

	var ret float64
	gamma := 1.0
	for _, s := range ep.Steps {
		ret += gamma * s.Reward
		gamma *= tiger.Discount()
	}
	assert.InDelta(t, ret, ep.Return, 1e-9)

	episodes, failures, total := agent.Stats()
	assert.Equal(t, 1, episodes)
	assert.Zero(t, failures)
	assert.InDelta(t, ep.Return, total, 1e-9)
	assert.Equal(t, 1, arena.Episodes())
	assert.Equal(t, "tiger", arena.Name())
}

func TestArenaStopsAtTerminal(t *testing.T) {
	m := corridor(t)
	prior := belief.Point(3, 0)
	arena := MakeArena(m, prior, newAgent(t, m, smallPlanner()), 10, 1, "")
	arena.SetLogger(quiet)

	ep, err := arena.Play(context.Background())
	require.NoError(t, err)
	assert.True(t, ep.Terminal)
	require.Len(t, ep.Steps, 2)
	assert.Equal(t, model.State(0), ep.Steps[0].State)
	assert.Equal(t, model.Observation(2), ep.Steps[1].Observation)
	assert.Equal(t, 2.0, ep.Return)
	assert.Equal(t, "UNKNOWN MODEL", arena.Name())
}

func TestArenaReportsDepletion(t *testing.T) {
	m := stuck(t)
	agent := newAgent(t, m, smallPlanner())
	arena := MakeArena(m, belief.Point(3, 0), agent, 5, 1, "stuck")
	arena.SetTruth(belief.Point(3, 2))
	arena.SetLogger(quiet)

	ep, err := arena.Play(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, belief.ErrBeliefDepleted))
	assert.Len(t, ep.Steps, 1)

	_, failures, _ := agent.Stats()
	assert.Equal(t, 1, failures)

	// the next episode starts from a fresh belief
	arena.SetTruth(belief.Point(3, 0))
	_, err = arena.Play(context.Background())
	assert.NoError(t, err)
}

func TestAgentTemperatureStaysLegal(t *testing.T) {
	tiger := model.NewTiger()
	agent := newAgent(t, tiger, smallPlanner())
	agent.Temperature = 1
	for i := 0; i < 5; i++ {
		a, err := agent.Act(context.Background(), belief.Uniform(2), 3)
		require.NoError(t, err)
		assert.True(t, a >= model.Listen && a <= model.OpenRight)
	}
}
