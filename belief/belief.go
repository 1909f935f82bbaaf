// Package belief represents the agent's uncertainty over hidden states, either
// exactly as a probability vector or approximately as a particle multiset.
package belief

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"

	"github.com/pomcpgo/model"
)

const normTolerance = 1e-9

var (
	// ErrInvalidBelief is returned for negative or non-normalised probability vectors.
	ErrInvalidBelief = errors.New("invalid belief")
	// ErrEmptyBelief is returned when a particle belief would hold no particles.
	ErrEmptyBelief = errors.New("empty particle belief")
)

// Sampler is anything a hidden state can be drawn from.
type Sampler interface {
	Sample(rng *rand.Rand) model.State
}

// Exact is a probability vector over states.
type Exact struct {
	p   []float64
	cdf model.Categorical
}

// NewExact copies p after checking it is a distribution.
func NewExact(p []float64) (*Exact, error) {
	if len(p) == 0 {
		return nil, errors.Wrap(ErrInvalidBelief, "no states")
	}
	for s, v := range p {
		if v < 0 || math.IsNaN(v) {
			return nil, errors.Wrapf(ErrInvalidBelief, "P(%d) = %v", s, v)
		}
	}
	if sum := floats.Sum(p); math.Abs(sum-1) > normTolerance {
		return nil, errors.Wrapf(ErrInvalidBelief, "probabilities sum to %v", sum)
	}
	cp := append([]float64(nil), p...)
	return &Exact{p: cp, cdf: model.NewCategorical(cp)}, nil
}

// Uniform is the uniform belief over n states.
func Uniform(n int) *Exact {
	p := make([]float64, n)
	for i := range p {
		p[i] = 1 / float64(n)
	}
	b, err := NewExact(p)
	if err != nil {
		panic(err)
	}
	return b
}

// Point is the belief that puts all mass on s out of n states.
func Point(n int, s model.State) *Exact {
	p := make([]float64, n)
	p[s] = 1
	b, err := NewExact(p)
	if err != nil {
		panic(err)
	}
	return b
}

// Sample implements Sampler.
func (b *Exact) Sample(rng *rand.Rand) model.State { return model.State(b.cdf.Sample(rng)) }

// Prob returns the probability of s.
func (b *Exact) Prob(s model.State) float64 { return b.p[s] }

// Len is the size of the state space.
func (b *Exact) Len() int { return len(b.p) }

// Probabilities returns a copy of the vector.
func (b *Exact) Probabilities() []float64 { return append([]float64(nil), b.p...) }

// Particles is an unweighted multiset of states.
type Particles []model.State

// Draw takes k i.i.d. samples from b.
func Draw(b Sampler, k int, rng *rand.Rand) (Particles, error) {
	if k <= 0 {
		return nil, errors.Wrapf(ErrEmptyBelief, "asked for %d particles", k)
	}
	ps := make(Particles, k)
	for i := range ps {
		ps[i] = b.Sample(rng)
	}
	return ps, nil
}

// Sample implements Sampler, drawing uniformly from the multiset.
func (ps Particles) Sample(rng *rand.Rand) model.State {
	if len(ps) == 0 {
		panic("belief: sampling an empty particle set")
	}
	return ps[rng.Intn(len(ps))]
}

// Mass is the fraction of particles equal to s.
func (ps Particles) Mass(s model.State) float64 {
	if len(ps) == 0 {
		return 0
	}
	var n int
	for _, p := range ps {
		if p == s {
			n++
		}
	}
	return float64(n) / float64(len(ps))
}

// Frequencies turns the particles into a probability vector over n states.
func (ps Particles) Frequencies(n int) []float64 {
	freq := make([]float64, n)
	if len(ps) == 0 {
		return freq
	}
	for _, p := range ps {
		freq[p]++
	}
	floats.Scale(1/float64(len(ps)), freq)
	return freq
}

// Exact converts the particles into an exact belief over n states.
func (ps Particles) Exact(n int) (*Exact, error) {
	if len(ps) == 0 {
		return nil, errors.WithStack(ErrEmptyBelief)
	}
	return NewExact(ps.Frequencies(n))
}
