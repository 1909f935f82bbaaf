package mcts

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/pomcpgo/belief"
	"github.com/pomcpgo/model"
	"github.com/pomcpgo/rollout"
)

/*
Here lies the majority of the search code, while node.go and tree.go handle the data structure stuff.

One simulation draws a state from the root particles and walks down the tree:
at each observation node it picks an action by UCB, steps the model, and
descends into the child for the sampled observation. The first time an
(action, observation) pair is seen its node is created and the rest of the
return is estimated by a rollout instead. Returns are folded back into the
action nodes on the way up.
*/

var (
	// ErrEpisodeFailed is returned by Advance once a belief update has depleted,
	// until the next SampleAction starts a new episode.
	ErrEpisodeFailed = errors.New("episode failed")
	// ErrNoHorizon is returned when asked to plan with no steps remaining.
	ErrNoHorizon = errors.New("no steps remaining")
	// ErrNoEpisode is returned by Advance before the first SampleAction.
	ErrNoEpisode = errors.New("no episode in progress")
)

// Planner is an online POMCP planner. It owns its tree and root belief and is
// not safe for concurrent use; the simulations of a single search run in
// parallel on Config.Workers goroutines.
type Planner struct {
	conf      Config
	m         model.Generative
	space     model.ActionSpace
	estimator *rollout.Estimator

	observations int // observation count of a model.Sized model, 0 if unknown

	log    *slog.Logger
	tracer trace.Tracer
	rng    *rand.Rand // seeds the workers and drives belief updates

	tree      *Tree
	root      naughty
	particles belief.Particles
	prior     belief.Sampler
	failed    bool

	iterations int
}

// WithLogger sets the planner's logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.log = l
		}
	}
}

// New validates conf and resolves the model's action space.
func New(m model.Generative, conf Config, opts ...Option) (*Planner, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	space, err := model.ActionsOf(m)
	if err != nil {
		return nil, err
	}
	est, err := rollout.NewEstimator(m, conf.Rollout)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidConfig, err.Error())
	}
	p := &Planner{
		conf:      conf,
		m:         m,
		space:     space,
		estimator: est,
		log:       slog.Default(),
		tracer:    defaultTracer(),
		rng:       rand.New(rand.NewSource(conf.Seed)),
		tree:      newTree(),
		root:      nilNode,
	}
	if sz, ok := m.(model.Sized); ok {
		p.observations = sz.NumObservations()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the planner's configuration.
func (p *Planner) Config() Config { return p.conf }

// SampleAction starts a new episode from prior: it discards the tree, draws
// BeliefSize particles, searches, and returns the root action with the most
// visits. prior is kept for reinvigorating later beliefs.
func (p *Planner) SampleAction(ctx context.Context, prior belief.Sampler, steps int) (model.Action, error) {
	if steps <= 0 {
		return -1, errors.Wrapf(ErrNoHorizon, "steps = %d", steps)
	}
	if prior == nil {
		return -1, errors.Wrap(belief.ErrEmptyBelief, "no prior")
	}
	ctx, span := p.startSpan(ctx, "pomcp.SampleAction", steps)
	a, err := p.sampleAction(ctx, prior, steps)
	p.endSpan(span, err)
	return a, err
}

func (p *Planner) sampleAction(ctx context.Context, prior belief.Sampler, steps int) (model.Action, error) {
	particles, err := belief.Draw(prior, p.conf.BeliefSize, p.rng)
	if err != nil {
		return -1, err
	}
	p.tree.Reset()
	p.root = p.tree.New(observationNode, -1)
	p.particles = particles
	p.prior = prior
	p.failed = false
	return p.search(ctx, steps)
}

// Advance moves the root to the history extended by the real action a and
// observation o, updates the root belief, searches, and returns the next
// action. The subtree under (a, o) is kept; everything else is reclaimed.
//
// If the belief cannot be made consistent with o even after reinvigoration,
// Advance returns an error wrapping belief.ErrBeliefDepleted and every later
// call returns ErrEpisodeFailed until SampleAction is called again.
func (p *Planner) Advance(ctx context.Context, a model.Action, o model.Observation, steps int) (model.Action, error) {
	if p.failed {
		return -1, errors.WithStack(ErrEpisodeFailed)
	}
	if !p.root.isValid() {
		return -1, errors.WithStack(ErrNoEpisode)
	}
	if steps <= 0 {
		return -1, errors.Wrapf(ErrNoHorizon, "steps = %d", steps)
	}
	if n, fixed := p.space.Fixed(); a < 0 || (fixed && int(a) >= n) {
		panic(errors.Errorf("action %d out of range", a))
	}
	if o < 0 || (p.observations > 0 && int(o) >= p.observations) {
		panic(errors.Errorf("observation %d out of range", o))
	}

	ctx, span := p.startSpan(ctx, "pomcp.Advance", steps)
	if err := p.reroot(a, o); err != nil {
		p.failed = true
		depletionsTotal.Inc()
		p.log.Warn("belief depleted", slog.Int("action", int(a)), slog.Int("observation", int(o)), slog.String("error", err.Error()))
		p.endSpan(span, err)
		return -1, err
	}
	next, err := p.search(ctx, steps)
	p.endSpan(span, err)
	return next, err
}

// reroot makes the (a, o) grandchild of the root the new root, creating it if
// no simulation reached it, and rebuilds the root belief from the particles
// collected there plus a filtered copy of the old root belief.
func (p *Planner) reroot(a model.Action, o model.Observation) error {
	old := p.root
	an := p.tree.actionChild(old, int(a))
	next, _ := p.tree.observationChild(an, int(o))

	posterior, rep, err := belief.Update(p.m, p.particles, a, o, belief.Options{
		Target:                 p.conf.BeliefSize,
		Budget:                 p.conf.UpdateBudget,
		Seed:                   p.tree.nodeFromNaughty(next).Particles(),
		Prior:                  p.prior,
		ReinvigorationAttempts: p.conf.ReinvigorationAttempts,
	}, p.rng)
	recordUpdate(rep)
	if err != nil {
		return err
	}
	if rep.Reinvigorated() {
		p.log.Warn("belief reinvigorated",
			slog.Int("action", int(a)),
			slog.Int("observation", int(o)),
			slog.Int("accepted", rep.Accepted),
			slog.Int("redrawn", rep.Redrawn),
			slog.Int("padded", rep.Padded),
			slog.Bool("perturbed", rep.Perturbed),
		)
	}

	p.tree.detach(old)
	p.root = next
	p.particles = posterior
	return nil
}

// search runs up to Iterations simulations from the root and returns the
// recommended action. A timeout or a cancelled ctx ends the search early
// without an error as long as at least one simulation finished.
func (p *Planner) search(ctx context.Context, steps int) (model.Action, error) {
	start := time.Now()
	reclaimed := p.tree.reclaim(p.root)
	depth := p.conf.depth(steps)

	if p.conf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.conf.Timeout)
		defer cancel()
	}

	var claimed, done int64
	budget := int64(p.conf.Iterations)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.conf.Workers; i++ {
		w := &worker{Planner: p, rng: rand.New(rand.NewSource(p.rng.Uint64()))}
		g.Go(func() error {
			for gctx.Err() == nil && atomic.AddInt64(&claimed, 1) <= budget {
				w.simulate(p.root, p.particles.Sample(w.rng), depth)
				atomic.AddInt64(&done, 1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return -1, err
	}

	p.iterations = int(done)
	nodes := p.tree.Nodes()
	simulationsTotal.Add(float64(done))
	searchDuration.Observe(time.Since(start).Seconds())
	treeNodes.Set(float64(nodes))

	best, ok := p.bestAction()
	if !ok {
		if err := ctx.Err(); err != nil {
			return -1, errors.Wrap(err, "search stopped before any simulation finished")
		}
		return -1, errors.Errorf("no action simulated in %d iterations: every root particle is terminal", done)
	}
	p.log.Debug("search finished",
		slog.Int("iterations", p.iterations),
		slog.Int("nodes", nodes),
		slog.Int("reclaimed", reclaimed),
		slog.Int("depth", depth),
		slog.Int("action", int(best)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return best, nil
}

// worker is one simulation goroutine with its own random stream.
type worker struct {
	*Planner
	rng *rand.Rand
}

// simulate runs one simulation from observation node h in state s with depth
// steps left and returns the discounted return. Terminal states end the
// simulation with no further reward.
func (w *worker) simulate(h naughty, s model.State, depth int) float64 {
	if depth <= 0 || w.m.IsTerminal(s) {
		return 0
	}
	t := w.tree
	n := t.nodeFromNaughty(h)
	n.visit()

	a := n.selectAction(t, w.space.Count(s), w.conf.Exploration)
	an := t.actionChild(h, int(a))
	s1, o, r := w.m.SampleSOR(w.rng, s, a)

	var g float64
	if depth > 1 && !w.m.IsTerminal(s1) {
		kid, created := t.observationChild(an, int(o))
		child := t.nodeFromNaughty(kid)
		child.offer(w.rng, s1, w.conf.BeliefSize)
		if created {
			child.visit()
			g = w.rollout(s1, depth-1)
		} else {
			g = w.simulate(kid, s1, depth-1)
		}
	}

	q := r + w.m.Discount()*g
	t.nodeFromNaughty(an).Update(q)
	return q
}

func (w *worker) rollout(s model.State, depth int) float64 {
	res := w.estimator.Estimate(w.rng, s, depth)
	if res.Truncated {
		rolloutTruncationsTotal.Inc()
	}
	return res.Return
}

// ActionStats summarises one root action.
type ActionStats struct {
	Action model.Action `json:"action" yaml:"action"`
	Visits int          `json:"visits" yaml:"visits"`
	Value  float64      `json:"value" yaml:"value"`
}

// RootStats lists every root action that has a node, ordered by action.
func (p *Planner) RootStats() []ActionStats {
	if !p.root.isValid() {
		return nil
	}
	var retVal []ActionStats
	for _, kid := range p.tree.Children(p.root) {
		child := p.tree.nodeFromNaughty(kid)
		visits, value := child.stats()
		retVal = append(retVal, ActionStats{
			Action: model.Action(child.Key()),
			Visits: int(visits),
			Value:  value,
		})
	}
	return retVal
}

// bestAction is the root action with the most visits, then the higher value,
// then the lower index.
func (p *Planner) bestAction() (model.Action, bool) {
	stats := p.RootStats()
	sort.Sort(byVisits(stats))
	if len(stats) == 0 || stats[0].Visits == 0 {
		return -1, false
	}
	return stats[0].Action, true
}

// Belief returns a copy of the root particles.
func (p *Planner) Belief() belief.Particles {
	return append(belief.Particles(nil), p.particles...)
}

// Iterations is the number of simulations the last search ran.
func (p *Planner) Iterations() int { return p.iterations }

// Nodes is the number of live nodes in the tree.
func (p *Planner) Nodes() int { return p.tree.Nodes() }
