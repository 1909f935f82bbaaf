// Package pomcp drives the POMCP planner in mcts through whole episodes: an
// Agent wraps a planner, an Arena holds the hidden state and steps the model,
// and a Bench plays many episodes and summarises their returns.
package pomcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/pomcpgo/belief"
	"github.com/pomcpgo/mcts"
	"github.com/pomcpgo/model"
)

// Bench is the top level structure and the entry point of the API. It
// evaluates the planner on one model over many independent episodes.
type Bench struct {
	m      model.Generative
	prior  belief.Sampler
	truth  belief.Sampler
	conf   Config
	logger *slog.Logger
}

// Option configures a Bench.
type Option func(*Bench)

// WithLogger sets the logger handed to arenas and planners.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bench) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithTruth draws hidden initial states from truth instead of the prior.
func WithTruth(truth belief.Sampler) Option {
	return func(b *Bench) { b.truth = truth }
}

// New validates conf and checks the model exposes an action space.
func New(m model.Generative, prior belief.Sampler, conf Config, opts ...Option) (*Bench, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if _, err := model.ActionsOf(m); err != nil {
		return nil, err
	}
	if prior == nil {
		return nil, errors.Wrap(belief.ErrEmptyBelief, "no prior")
	}
	b := &Bench{m: m, prior: prior, truth: prior, conf: conf, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Config returns the bench configuration.
func (b *Bench) Config() Config { return b.conf }

// Evaluate plays conf.Episodes episodes, conf.Parallel at a time. Every
// episode gets its own planner and arena seeded from conf.Seed, so results do
// not depend on Parallel. Failed episodes are counted in the summary and
// their errors returned together.
func (b *Bench) Evaluate(ctx context.Context) (Summary, error) {
	n := b.conf.Episodes
	seeds := rand.New(rand.NewSource(b.conf.Seed))
	type seedPair struct{ planner, arena uint64 }
	episodeSeeds := make([]seedPair, n)
	for i := range episodeSeeds {
		episodeSeeds[i] = seedPair{planner: seeds.Uint64(), arena: seeds.Uint64()}
	}

	returns := make([]float64, n)
	failed := make([]bool, n)
	var (
		mu   sync.Mutex
		errs error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.conf.Parallel)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			ep, err := b.play(gctx, i, episodeSeeds[i].planner, episodeSeeds[i].arena)
			if err != nil {
				mu.Lock()
				errs = multierror.Append(errs, err)
				failed[i] = true
				mu.Unlock()
				return nil
			}
			returns[i] = ep.Return
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	s := Summary{Name: b.conf.Name, Episodes: n}
	for i, r := range returns {
		if failed[i] {
			s.Failures++
			continue
		}
		s.Returns = append(s.Returns, r)
	}
	switch len(s.Returns) {
	case 0:
	case 1:
		s.Mean = s.Returns[0]
	default:
		s.Mean, s.StdDev = stat.MeanStdDev(s.Returns, nil)
	}
	b.logger.Info("evaluation finished",
		slog.String("name", s.Name),
		slog.Int("episodes", s.Episodes),
		slog.Int("failures", s.Failures),
		slog.Float64("mean", s.Mean),
		slog.Float64("std_dev", s.StdDev),
	)
	return s, errs
}

func (b *Bench) play(ctx context.Context, i int, plannerSeed, arenaSeed uint64) (Episode, error) {
	conf := b.conf.Planner
	conf.Seed = plannerSeed
	p, err := mcts.New(b.m, conf, mcts.WithLogger(b.logger))
	if err != nil {
		return Episode{}, err
	}
	agent := NewAgent(fmt.Sprintf("%s-%d", b.conf.Name, i), p, b.conf.Temperature)
	arena := MakeArena(b.m, b.prior, agent, b.conf.Steps, arenaSeed, b.conf.Name)
	arena.SetTruth(b.truth)
	arena.SetLogger(b.logger)
	return arena.Play(ctx)
}
