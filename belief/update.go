package belief

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"github.com/pomcpgo/model"
)

// ErrBeliefDepleted means no particle could be made consistent with the
// observation, even after reinvigoration. It is fatal for the episode.
var ErrBeliefDepleted = errors.New("belief depleted")

// Options bound a belief update.
type Options struct {
	Target int // particles wanted in the posterior
	Budget int // rejection trials per round

	// Seed holds particles already known to be consistent with the
	// observation, such as those a search tree collected while simulating.
	// They count towards Target.
	Seed Particles

	// Prior is redrawn from when the current belief yields nothing, for at
	// most ReinvigorationAttempts rounds of Budget trials.
	Prior                  Sampler
	ReinvigorationAttempts int
}

// Report describes what an update had to do.
type Report struct {
	Attempts  int  // rejection trials run
	Accepted  int  // particles that passed the observation test
	Redrawn   int  // of Accepted, particles grown from the prior
	Padded    int  // particles added by perturbing or duplicating accepted ones
	Perturbed bool // padding used the model's Perturber
}

// Reinvigorated reports whether the update fell back to reinvigoration.
func (r Report) Reinvigorated() bool { return r.Redrawn > 0 || r.Padded > 0 }

// Update filters current through action a and observation o by rejection
// sampling: draw a particle, simulate one step, keep the next state if the
// simulated observation equals o.
//
// When the budget runs out with too few particles, the posterior is
// reinvigorated: an empty result is regrown from opts.Prior, and a short one
// is padded with perturbed (or, for models without a Perturber, duplicated)
// accepted particles. The result approximates the true posterior; it is not
// exact.
func Update(m model.Generative, current Sampler, a model.Action, o model.Observation, opts Options, rng *rand.Rand) (Particles, Report, error) {
	var rep Report
	if opts.Target <= 0 {
		return nil, rep, errors.Wrapf(ErrEmptyBelief, "target of %d particles", opts.Target)
	}

	out := make(Particles, 0, opts.Target)
	out = append(out, opts.Seed...)
	if len(out) >= opts.Target {
		return out[:opts.Target], rep, nil
	}

	filter := func(src Sampler) {
		for i := 0; i < opts.Budget && len(out) < opts.Target; i++ {
			s1, o1, _ := m.SampleSOR(rng, src.Sample(rng), a)
			rep.Attempts++
			if o1 == o {
				out = append(out, s1)
				rep.Accepted++
			}
		}
	}

	if !isEmpty(current) {
		filter(current)
	}
	if len(out) == 0 && opts.Prior != nil {
		for round := 0; round < opts.ReinvigorationAttempts && len(out) == 0; round++ {
			filter(opts.Prior)
		}
		rep.Redrawn = len(out)
	}
	if len(out) == 0 {
		return nil, rep, errors.Wrapf(ErrBeliefDepleted, "action %d observation %d: nothing consistent after %d trials", a, o, rep.Attempts)
	}

	if len(out) < opts.Target {
		p, ok := m.(model.Perturber)
		rep.Perturbed = ok
		n := len(out)
		for len(out) < opts.Target {
			s := out[rng.Intn(n)]
			if ok {
				s = p.Perturb(rng, s)
			}
			out = append(out, s)
			rep.Padded++
		}
	}
	return out, rep, nil
}

func isEmpty(s Sampler) bool {
	switch b := s.(type) {
	case nil:
		return true
	case Particles:
		return len(b) == 0
	}
	return false
}
