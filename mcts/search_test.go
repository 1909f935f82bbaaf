package mcts

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/pomcpgo/belief"
	"github.com/pomcpgo/model"
)

// toy has hidden states that never change and are observed exactly. Action 0
// pays 1, every other action pays 0.
type toy struct{ actions int }

func (m toy) SampleSR(_ *rand.Rand, s model.State, a model.Action) (model.State, float64) {
	if a == 0 {
		return s, 1
	}
	return s, 0
}

func (m toy) SampleSOR(rng *rand.Rand, s model.State, a model.Action) (model.State, model.Observation, float64) {
	s1, r := m.SampleSR(rng, s, a)
	return s1, model.Observation(s1), r
}

func (m toy) IsTerminal(model.State) bool { return false }
func (m toy) Discount() float64           { return 0.9 }
func (m toy) NumActions() int             { return m.actions }

// widening offers more actions in higher states.
type widening struct{}

func (widening) SampleSR(_ *rand.Rand, s model.State, a model.Action) (model.State, float64) {
	if int(a) > int(s) {
		panic("illegal action")
	}
	return (s + 1) % 4, float64(a)
}

func (m widening) SampleSOR(rng *rand.Rand, s model.State, a model.Action) (model.State, model.Observation, float64) {
	s1, r := m.SampleSR(rng, s, a)
	return s1, model.Observation(s1), r
}

func (widening) IsTerminal(model.State) bool    { return false }
func (widening) Discount() float64              { return 0.9 }
func (widening) NumActionsAt(s model.State) int { return int(s) + 1 }

func quiet() Option { return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))) }

func testConfig() Config {
	conf := DefaultConfig()
	conf.BeliefSize = 200
	conf.Iterations = 300
	return conf
}

func newPlanner(t *testing.T, m model.Generative, conf Config) *Planner {
	p, err := New(m, conf, quiet())
	require.NoError(t, err)
	return p
}

func sumVisits(stats []ActionStats) (retVal int) {
	for _, s := range stats {
		retVal += s.Visits
	}
	return
}

func TestEveryActionTriedBeforeAnyRepeats(t *testing.T) {
	for iterations := 1; iterations <= 5; iterations++ {
		conf := testConfig()
		conf.Iterations = iterations
		p := newPlanner(t, toy{actions: 5}, conf)

		_, err := p.SampleAction(context.Background(), belief.Point(1, 0), 3)
		require.NoError(t, err)
		stats := p.RootStats()
		require.Len(t, stats, iterations)
		for i, s := range stats {
			assert.Equal(t, model.Action(i), s.Action)
			assert.Equal(t, 1, s.Visits, "action %d after %d iterations", i, iterations)
		}
	}
}

func TestRootVisitsSumToIterations(t *testing.T) {
	for _, workers := range []int{1, 4} {
		conf := testConfig()
		conf.Iterations = 500
		conf.Workers = workers
		p := newPlanner(t, model.NewTiger(), conf)

		_, err := p.SampleAction(context.Background(), belief.Uniform(2), 5)
		require.NoError(t, err)
		assert.Equal(t, 500, p.Iterations(), "workers %d", workers)
		assert.Equal(t, 500, sumVisits(p.RootStats()), "workers %d", workers)
		assert.Equal(t, uint32(500), p.tree.nodeFromNaughty(p.root).Visits())

		_, err = p.Advance(context.Background(), model.Listen, model.HearLeft, 4)
		require.NoError(t, err)
		assert.Equal(t, 500, p.Iterations())
		assert.GreaterOrEqual(t, sumVisits(p.RootStats()), 500, "a kept subtree adds to its old visits")
	}
}

func TestSameSeedSameSearch(t *testing.T) {
	run := func() []ActionStats {
		p := newPlanner(t, model.NewTiger(), testConfig())
		_, err := p.SampleAction(context.Background(), belief.Uniform(2), 5)
		require.NoError(t, err)
		return p.RootStats()
	}
	assert.Equal(t, run(), run())
}

func TestTigerListensFirst(t *testing.T) {
	if testing.Short() {
		t.Skip("end to end")
	}
	const runs = 20
	var listens int
	for seed := uint64(0); seed < runs; seed++ {
		conf := DefaultConfig()
		conf.Iterations = 1000
		conf.Seed = seed
		p := newPlanner(t, model.NewTiger(), conf)
		a, err := p.SampleAction(context.Background(), belief.Uniform(2), 5)
		require.NoError(t, err)
		if a == model.Listen {
			listens++
		}
	}
	assert.Greater(t, float64(listens)/runs, 0.9, "listened first in %d of %d runs", listens, runs)
}

func TestAdvanceSharpensBelief(t *testing.T) {
	conf := DefaultConfig()
	p := newPlanner(t, model.NewTiger(), conf)
	ctx := context.Background()

	_, err := p.SampleAction(ctx, belief.Uniform(2), 5)
	require.NoError(t, err)
	_, err = p.Advance(ctx, model.Listen, model.HearLeft, 4)
	require.NoError(t, err)
	b := p.Belief()
	require.Len(t, b, conf.BeliefSize)
	assert.InDelta(t, 0.85, b.Mass(model.TigerLeft), 0.05)

	_, err = p.Advance(ctx, model.Listen, model.HearLeft, 3)
	require.NoError(t, err)
	assert.Greater(t, p.Belief().Mass(model.TigerLeft), 0.9)
}

func TestAdvanceReinvigoratesInconsistentObservation(t *testing.T) {
	conf := testConfig()
	p := newPlanner(t, toy{actions: 2}, conf)
	ctx := context.Background()

	_, err := p.SampleAction(ctx, belief.Uniform(4), 5)
	require.NoError(t, err)
	_, err = p.Advance(ctx, 0, 0, 4)
	require.NoError(t, err)
	require.Equal(t, 1.0, p.Belief().Mass(0))

	// no particle is in state 2 any more, so only the prior can explain it
	_, err = p.Advance(ctx, 0, 2, 3)
	require.NoError(t, err)
	b := p.Belief()
	assert.Len(t, b, conf.BeliefSize)
	assert.Equal(t, 1.0, b.Mass(2))
}

func TestDepletionFailsTheEpisode(t *testing.T) {
	conf := testConfig()
	conf.UpdateBudget = 50
	p := newPlanner(t, toy{actions: 2}, conf)
	ctx := context.Background()

	_, err := p.SampleAction(ctx, belief.Point(4, 1), 5)
	require.NoError(t, err)
	_, err = p.Advance(ctx, 1, 3, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, belief.ErrBeliefDepleted))

	_, err = p.Advance(ctx, 1, 1, 4)
	assert.True(t, errors.Is(err, ErrEpisodeFailed))

	// a new episode clears the failure
	_, err = p.SampleAction(ctx, belief.Point(4, 1), 5)
	require.NoError(t, err)
	_, err = p.Advance(ctx, 1, 1, 4)
	assert.NoError(t, err)
}

func TestPlannerCallErrors(t *testing.T) {
	p := newPlanner(t, model.NewTiger(), testConfig())
	ctx := context.Background()

	_, err := p.Advance(ctx, model.Listen, model.HearLeft, 3)
	assert.True(t, errors.Is(err, ErrNoEpisode))
	_, err = p.SampleAction(ctx, belief.Uniform(2), 0)
	assert.True(t, errors.Is(err, ErrNoHorizon))
	_, err = p.SampleAction(ctx, nil, 3)
	assert.True(t, errors.Is(err, belief.ErrEmptyBelief))

	_, err = p.SampleAction(ctx, belief.Uniform(2), 3)
	require.NoError(t, err)
	_, err = p.Advance(ctx, model.Listen, model.HearLeft, 0)
	assert.True(t, errors.Is(err, ErrNoHorizon))
	assert.Panics(t, func() { _, _ = p.Advance(ctx, 3, model.HearLeft, 3) })
	assert.Panics(t, func() { _, _ = p.Advance(ctx, model.Listen, -1, 3) })
	assert.Panics(t, func() { _, _ = p.Advance(ctx, model.Listen, 7, 3) })
	assert.False(t, p.failed, "a bad observation must not fail the episode")
	_, err = p.Advance(ctx, model.Listen, model.HearRight, 3)
	assert.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = p.SampleAction(cancelled, belief.Uniform(2), 3)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestTimeoutReturnsBestSoFar(t *testing.T) {
	conf := testConfig()
	conf.Iterations = 1 << 30
	conf.Timeout = 20 * time.Millisecond
	conf.Workers = 2
	p := newPlanner(t, model.NewTiger(), conf)

	start := time.Now()
	a, err := p.SampleAction(context.Background(), belief.Uniform(2), 10)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Less(t, p.Iterations(), conf.Iterations)
	assert.Equal(t, p.Iterations(), sumVisits(p.RootStats()))
	assert.True(t, a >= model.Listen && a <= model.OpenRight)
}

func TestVariableActionSpace(t *testing.T) {
	conf := testConfig()
	conf.Exploration = 1
	p := newPlanner(t, widening{}, conf)
	ctx := context.Background()

	a, err := p.SampleAction(ctx, belief.Point(4, 0), 6)
	require.NoError(t, err)
	assert.Equal(t, model.Action(0), a, "only one action is legal in state 0")

	// with one step left only the immediate reward counts
	a, err = p.Advance(ctx, 0, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, model.Action(1), a, "the larger action pays more")
	assert.Len(t, p.RootStats(), 2)
}

func TestPolicy(t *testing.T) {
	p := newPlanner(t, model.NewTiger(), testConfig())
	assert.Nil(t, p.Policy(1))

	best, err := p.SampleAction(context.Background(), belief.Uniform(2), 5)
	require.NoError(t, err)

	pi := p.Policy(1)
	require.Len(t, pi, 3)
	var sum float32
	for _, v := range pi {
		sum += v
	}
	assert.InDelta(t, 1, sum, 1e-5)
	stats := p.RootStats()
	assert.InDelta(t, float64(stats[1].Visits)/float64(p.Iterations()), pi[1], 1e-4)

	greedy := p.Policy(0)
	assert.Equal(t, float32(1), greedy[best])
	assert.Equal(t, best, p.SamplePolicy(0))
	for i := 0; i < 20; i++ {
		a := p.SamplePolicy(0.5)
		assert.True(t, a >= 0 && a < 3)
	}
}

func TestWriteDot(t *testing.T) {
	conf := testConfig()
	conf.Iterations = 20
	p := newPlanner(t, model.NewTiger(), conf)

	var buf bytes.Buffer
	assert.True(t, errors.Is(p.WriteDot(&buf, 1), ErrNoEpisode))

	_, err := p.SampleAction(context.Background(), belief.Uniform(2), 3)
	require.NoError(t, err)
	require.NoError(t, p.WriteDot(&buf, 1))
	out := buf.String()
	assert.Contains(t, out, "digraph pomcp")
	assert.Contains(t, out, "root")
	assert.Contains(t, out, "box")
	assert.Contains(t, out, "n0->n1")
}
