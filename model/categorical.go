package model

import (
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// Categorical is a cumulative distribution over [0, n), ready for sampling.
// The weights need not be normalised.
type Categorical []float64

// NewCategorical builds the cumulative table for weights.
func NewCategorical(weights []float64) Categorical {
	cdf := make([]float64, len(weights))
	floats.CumSum(cdf, weights)
	return Categorical(cdf)
}

// Total is the sum of the weights.
func (c Categorical) Total() float64 {
	if len(c) == 0 {
		return 0
	}
	return c[len(c)-1]
}

// Sample draws an index. Zero-weight indices are never returned.
func (c Categorical) Sample(rng *rand.Rand) int {
	u := rng.Float64() * c.Total()
	i := sort.Search(len(c), func(i int) bool { return c[i] > u })
	if i == len(c) {
		// u landed on the total through rounding
		i = len(c) - 1
		for i > 0 && c[i] == c[i-1] {
			i--
		}
	}
	return i
}
