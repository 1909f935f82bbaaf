package model

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// State is an index into a model's state space. Composite states (position,
// hidden flags, ...) are encoded by the model itself; nothing outside the model
// interprets the number.
type State int

// Action is an index into the action space of a model. Legal actions at a
// state are always 0 .. n-1 for the n reported by the model.
type Action int

// Observation is an index into the observation space of a model.
type Observation int

// Generative is any environment model that can be planned on online.
//
// Implementations must be safe for concurrent use: all randomness comes from
// the rng passed in, and the model must not hold mutable state that sampling
// changes.
//
// The observation returned by SampleSOR is drawn from the model's own
// observation law. Every model in this package conditions it on
// (action, next state); belief updates reuse SampleSOR for their rejection
// test, so whichever convention a model picks is applied consistently.
type Generative interface {
	// SampleSR draws a next state and reward for taking a in s.
	SampleSR(rng *rand.Rand, s State, a Action) (next State, reward float64)
	// SampleSOR is SampleSR plus an observation.
	SampleSOR(rng *rand.Rand, s State, a Action) (next State, o Observation, reward float64)
	// IsTerminal reports whether s is absorbing. Terminal states stay terminal.
	IsTerminal(s State) bool
	// Discount is the discount factor, in (0, 1].
	Discount() float64
}

// FixedActions is implemented by models whose action count never changes.
type FixedActions interface {
	NumActions() int
}

// VariableActions is implemented by models whose legal actions depend on the state.
type VariableActions interface {
	NumActionsAt(s State) int
}

// Perturber is implemented by models that can produce a plausible neighbour of
// a state. Belief reinvigoration uses it to diversify depleted particle sets.
type Perturber interface {
	Perturb(rng *rand.Rand, s State) State
}

// Sized is implemented by models with enumerable state and observation spaces.
type Sized interface {
	NumStates() int
	NumObservations() int
}

// mustIndex panics if i is outside [0, n). Out-of-range indices are caller bugs.
func mustIndex(kind string, i, n int) {
	if i < 0 || i >= n {
		panic(fmt.Sprintf("model: %s %d out of range [0, %d)", kind, i, n))
	}
}
