package mcts

import (
	"github.com/chewxy/math32"
	"gorgonia.org/vecf32"

	"github.com/pomcpgo/model"
)

// Policy returns the root visit distribution indexed by action, sharpened by
// temperature: N(a)^(1/T) / Σ N(b)^(1/T). A temperature of 0 puts all mass on
// the recommended action. It returns nil before the first search.
func (p *Planner) Policy(temperature float32) []float32 {
	stats := p.RootStats()
	if len(stats) == 0 {
		return nil
	}
	n := int(stats[len(stats)-1].Action) + 1
	if fixed, ok := p.space.Fixed(); ok && fixed > n {
		n = fixed
	}
	retVal := make([]float32, n)

	if temperature <= 0 {
		if best, ok := p.bestAction(); ok {
			retVal[best] = 1
		}
		return retVal
	}

	var norm float32
	for _, s := range stats {
		retVal[s.Action] = float32(s.Visits)
		norm = math32.Max(norm, float32(s.Visits))
	}
	if norm == 0 {
		return retVal
	}
	// scale first so large visit counts do not overflow the power
	vecf32.ScaleInv(retVal, norm)
	vecf32.PowOf(retVal, 1/temperature)
	vecf32.ScaleInv(retVal, vecf32.Sum(retVal))
	return retVal
}

// SamplePolicy draws a root action from Policy(temperature) using the
// planner's random source. Drivers use it to explore instead of always taking
// the recommended action.
func (p *Planner) SamplePolicy(temperature float32) model.Action {
	pi := p.Policy(temperature)
	if pi == nil {
		panic("mcts: no search has run")
	}
	if temperature <= 0 {
		return model.Action(vecf32.Argmax(pi))
	}
	rnd := float32(p.rng.Float64())
	var accum float32
	for a, v := range pi {
		accum += v
		if rnd < accum {
			return model.Action(a)
		}
	}
	return model.Action(vecf32.Argmax(pi))
}
