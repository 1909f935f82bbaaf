// Package rollout estimates the value of a state by simulating forward with a
// uniformly random policy.
//
// Both estimators draw exactly one action per simulated step from rng, so
// given the same random stream an Adaptive rollout that never triggers returns
// the same sum as Rollout.
package rollout

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/pomcpgo/model"
)

// Rollout simulates up to maxDepth steps from s, or until a terminal state,
// and returns the discounted sum of rewards.
func Rollout(m model.Generative, space model.ActionSpace, s model.State, maxDepth int, rng *rand.Rand) float64 {
	total, _ := run(m, space, s, maxDepth, rng, nil)
	return total
}

// Adaptive is Rollout with early termination: it keeps the last windowSize
// discounted rewards and, from minDepth on, stops as soon as the latest one is
// within threshold of the window mean. The truncated tail makes it an
// approximation of Rollout, not an unbiased replacement.
func Adaptive(m model.Generative, space model.ActionSpace, s model.State, maxDepth int, rng *rand.Rand,
	minDepth, windowSize int, threshold float64) float64 {
	total, _ := run(m, space, s, maxDepth, rng, newWindow(minDepth, windowSize, threshold))
	return total
}

// run returns the discounted return and whether the window cut the rollout short.
func run(m model.Generative, space model.ActionSpace, s model.State, maxDepth int, rng *rand.Rand, w *window) (float64, bool) {
	var total float64
	gamma, discount := 1.0, m.Discount()
	n, fixed := space.Fixed()
	for depth := 0; depth < maxDepth; depth++ {
		if !fixed {
			n = space.Count(s)
		}
		var r float64
		s, r = m.SampleSR(rng, s, model.Action(rng.Intn(n)))
		total += gamma * r

		if m.IsTerminal(s) {
			return total, false
		}
		if w != nil && w.push(depth, gamma*r) {
			return total, true
		}
		gamma *= discount
	}
	return total, false
}

// window is a fixed-size ring of the most recent discounted rewards.
type window struct {
	minDepth  int
	threshold float64

	buf  []float64
	next int
	full bool
	sum  float64
}

func newWindow(minDepth, size int, threshold float64) *window {
	if size <= 0 {
		return nil
	}
	return &window{minDepth: minDepth, threshold: threshold, buf: make([]float64, size)}
}

// push records r and reports whether the rollout has converged.
func (w *window) push(depth int, r float64) bool {
	if w.full {
		w.sum -= w.buf[w.next]
	}
	w.buf[w.next] = r
	w.sum += r
	w.next++
	if w.next == len(w.buf) {
		w.next = 0
		w.full = true
	}
	if depth < w.minDepth || !w.full {
		return false
	}
	return math.Abs(r-w.sum/float64(len(w.buf))) < w.threshold
}
