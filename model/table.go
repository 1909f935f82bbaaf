package model

import (
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gorgonia.org/tensor"
)

const stochasticTolerance = 1e-9

// Table is a tabular POMDP. Transitions and rewards are S×A×S tensors,
// observations an S×A×O tensor indexed by the state reached.
//
// Fill the tables with the setters, then call Compile before sampling.
type Table struct {
	states, actions, observations int
	discount                      float64

	transitions  *tensor.Dense
	rewards      *tensor.Dense
	obsFunc      *tensor.Dense
	terminal     []bool
	transitionsC []Categorical // per (s, a)
	obsC         []Categorical // per (s1, a)
}

// NewTable returns an empty table model.
func NewTable(states, actions, observations int, discount float64) *Table {
	if states <= 0 || actions <= 0 || observations <= 0 {
		panic(fmt.Sprintf("model: table dimensions must be positive, got S=%d A=%d O=%d", states, actions, observations))
	}
	if discount <= 0 || discount > 1 {
		panic(fmt.Sprintf("model: discount %v outside (0, 1]", discount))
	}
	return &Table{
		states:       states,
		actions:      actions,
		observations: observations,
		discount:     discount,
		transitions:  dense(states, actions, states),
		rewards:      dense(states, actions, states),
		obsFunc:      dense(states, actions, observations),
		terminal:     make([]bool, states),
	}
}

func dense(shape ...int) *tensor.Dense {
	size := 1
	for _, d := range shape {
		size *= d
	}
	return tensor.New(tensor.WithBacking(make([]float64, size)), tensor.WithShape(shape...))
}

func setAt(t *tensor.Dense, v float64, coords ...int) {
	if err := t.SetAt(v, coords...); err != nil {
		panic(fmt.Sprintf("model: %v", err))
	}
}

// SetTransition sets T(s, a, s1).
func (t *Table) SetTransition(s State, a Action, s1 State, p float64) {
	setAt(t.transitions, p, int(s), int(a), int(s1))
	t.transitionsC = nil
}

// SetReward sets R(s, a, s1).
func (t *Table) SetReward(s State, a Action, s1 State, r float64) {
	setAt(t.rewards, r, int(s), int(a), int(s1))
}

// SetObservation sets O(s1, a, o), the probability of seeing o after reaching s1 via a.
func (t *Table) SetObservation(s1 State, a Action, o Observation, p float64) {
	setAt(t.obsFunc, p, int(s1), int(a), int(o))
	t.obsC = nil
}

// SetTerminal marks s as absorbing.
func (t *Table) SetTerminal(s State, terminal bool) {
	mustIndex("state", int(s), t.states)
	t.terminal[s] = terminal
}

func (t *Table) row(d *tensor.Dense, i, j, width int) []float64 {
	data := d.Data().([]float64)
	start := (i*t.actions + j) * width
	return data[start : start+width]
}

// Validate checks every transition and observation row is a probability distribution.
func (t *Table) Validate() error {
	var errs error
	check := func(kind string, row []float64, i, j int) {
		var sum float64
		for k, p := range row {
			if p < 0 || math.IsNaN(p) {
				errs = multierror.Append(errs, errors.Errorf("%s(%d, %d, %d) = %v is not a probability", kind, i, j, k, p))
				return
			}
			sum += p
		}
		if math.Abs(sum-1) > stochasticTolerance {
			errs = multierror.Append(errs, errors.Errorf("%s row (%d, %d) sums to %v", kind, i, j, sum))
		}
	}
	for s := 0; s < t.states; s++ {
		for a := 0; a < t.actions; a++ {
			check("T", t.row(t.transitions, s, a, t.states), s, a)
			check("O", t.row(t.obsFunc, s, a, t.observations), s, a)
		}
	}
	return errs
}

// Compile validates the tables and builds the samplers.
func (t *Table) Compile() error {
	if err := t.Validate(); err != nil {
		return errors.WithMessage(err, "invalid table model")
	}
	t.transitionsC = make([]Categorical, t.states*t.actions)
	t.obsC = make([]Categorical, t.states*t.actions)
	for s := 0; s < t.states; s++ {
		for a := 0; a < t.actions; a++ {
			t.transitionsC[s*t.actions+a] = NewCategorical(t.row(t.transitions, s, a, t.states))
			t.obsC[s*t.actions+a] = NewCategorical(t.row(t.obsFunc, s, a, t.observations))
		}
	}
	return nil
}

func (t *Table) check(s State, a Action) {
	if t.transitionsC == nil || t.obsC == nil {
		panic("model: table sampled before Compile")
	}
	mustIndex("state", int(s), t.states)
	mustIndex("action", int(a), t.actions)
}

// SampleSR implements Generative.
func (t *Table) SampleSR(rng *rand.Rand, s State, a Action) (State, float64) {
	t.check(s, a)
	s1 := State(t.transitionsC[int(s)*t.actions+int(a)].Sample(rng))
	return s1, t.Reward(s, a, s1)
}

// SampleSOR implements Generative.
func (t *Table) SampleSOR(rng *rand.Rand, s State, a Action) (State, Observation, float64) {
	s1, r := t.SampleSR(rng, s, a)
	o := Observation(t.obsC[int(s1)*t.actions+int(a)].Sample(rng))
	return s1, o, r
}

// Transition returns T(s, a, s1).
func (t *Table) Transition(s State, a Action, s1 State) float64 {
	mustIndex("state", int(s1), t.states)
	return t.row(t.transitions, int(s), int(a), t.states)[s1]
}

// Reward returns R(s, a, s1).
func (t *Table) Reward(s State, a Action, s1 State) float64 {
	mustIndex("state", int(s1), t.states)
	return t.row(t.rewards, int(s), int(a), t.states)[s1]
}

// ObservationProb returns O(s1, a, o).
func (t *Table) ObservationProb(s1 State, a Action, o Observation) float64 {
	mustIndex("observation", int(o), t.observations)
	return t.row(t.obsFunc, int(s1), int(a), t.observations)[o]
}

func (t *Table) IsTerminal(s State) bool {
	mustIndex("state", int(s), t.states)
	return t.terminal[s]
}

func (t *Table) Discount() float64    { return t.discount }
func (t *Table) NumActions() int      { return t.actions }
func (t *Table) NumStates() int       { return t.states }
func (t *Table) NumObservations() int { return t.observations }
