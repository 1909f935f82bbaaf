package model

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
)

// RockSample actions. Check actions follow at CheckRock + i.
const (
	North Action = iota
	South
	East
	West
	SampleRock
	CheckRock
)

// RockSample observations.
const (
	SeeNothing Observation = iota
	SeeGood
	SeeBad
)

const (
	rockGood   = 10.0
	rockBad    = -10.0
	rockExit   = 10.0
	rockNoRock = -10.0
)

// RockSample is a rover on a size×size grid with rocks of unknown quality.
// It can move, sample the rock under it, or check a rock from afar with a
// sensor whose accuracy decays with distance. Walking off the east edge ends
// the episode.
//
// Unlike Table it is procedural: the state space (position × rock bits) is
// never materialised.
type RockSample struct {
	size     int
	rocks    []Position
	halfEff  float64 // distance at which the sensor is right 75% of the time
	discount float64
}

// NewRockSample returns a RockSample with the given rock positions.
func NewRockSample(size int, rocks []Position, discount float64) *RockSample {
	if size <= 0 || len(rocks) == 0 || len(rocks) > 16 {
		panic(fmt.Sprintf("model: bad rocksample dimensions size=%d rocks=%d", size, len(rocks)))
	}
	if discount <= 0 || discount > 1 {
		panic(fmt.Sprintf("model: discount %v outside (0, 1]", discount))
	}
	for _, r := range rocks {
		mustIndex("rock x", r.X, size)
		mustIndex("rock y", r.Y, size)
	}
	return &RockSample{
		size:     size,
		rocks:    append([]Position(nil), rocks...),
		halfEff:  float64(size) / 2,
		discount: discount,
	}
}

// Start is the rover's initial cell.
func (m *RockSample) Start() Position { return Position{X: 0, Y: m.size / 2} }

// InitialDistribution puts the rover at Start with every rock configuration equally likely.
func (m *RockSample) InitialDistribution() []float64 {
	p := make([]float64, m.NumStates())
	n := 1 << len(m.rocks)
	for rocks := 0; rocks < n; rocks++ {
		p[m.Encode(m.Start(), uint(rocks))] = 1 / float64(n)
	}
	return p
}

func (m *RockSample) rockAt(p Position) int {
	for i, r := range m.rocks {
		if r == p {
			return i
		}
	}
	return -1
}

// step is the deterministic part of the dynamics.
func (m *RockSample) step(s State, a Action) (State, float64) {
	mustIndex("action", int(a), m.NumActions())
	if m.IsTerminal(s) {
		return s, 0
	}
	p, rocks := m.Decode(s)
	switch a {
	case North:
		if p.Y < m.size-1 {
			p.Y++
		}
	case South:
		if p.Y > 0 {
			p.Y--
		}
	case East:
		if p.X == m.size-1 {
			return m.Exit(), rockExit
		}
		p.X++
	case West:
		if p.X > 0 {
			p.X--
		}
	case SampleRock:
		i := m.rockAt(p)
		if i < 0 {
			return s, rockNoRock
		}
		if rocks&(1<<uint(i)) == 0 {
			return s, rockBad
		}
		return m.Encode(p, rocks&^(1<<uint(i))), rockGood
	}
	return m.Encode(p, rocks), 0
}

// SampleSR implements Generative. Moves are deterministic.
func (m *RockSample) SampleSR(_ *rand.Rand, s State, a Action) (State, float64) {
	return m.step(s, a)
}

// SampleSOR implements Generative. Only check actions are informative; the
// reading depends on the rock bits of the state reached.
func (m *RockSample) SampleSOR(rng *rand.Rand, s State, a Action) (State, Observation, float64) {
	s1, r := m.step(s, a)
	if a < CheckRock || m.IsTerminal(s1) {
		return s1, SeeNothing, r
	}
	i := int(a - CheckRock)
	p, rocks := m.Decode(s1)
	good := rocks&(1<<uint(i)) != 0
	if rng.Float64() >= m.CheckAccuracy(p, i) {
		good = !good
	}
	if good {
		return s1, SeeGood, r
	}
	return s1, SeeBad, r
}

// CheckAccuracy is the probability that checking rock i from p reads its true quality.
func (m *RockSample) CheckAccuracy(p Position, i int) float64 {
	rock := m.rocks[i]
	dist := math.Hypot(float64(p.X-rock.X), float64(p.Y-rock.Y))
	eff := math.Pow(2, -dist/m.halfEff)
	return 0.5 * (1 + eff)
}

// Perturb flips the quality of one random rock, keeping the position.
func (m *RockSample) Perturb(rng *rand.Rand, s State) State {
	if m.IsTerminal(s) {
		return s
	}
	p, rocks := m.Decode(s)
	return m.Encode(p, rocks^(1<<uint(rng.Intn(len(m.rocks)))))
}

func (m *RockSample) IsTerminal(s State) bool {
	mustIndex("state", int(s), m.NumStates())
	return int(s) == m.exit()
}

func (m *RockSample) Discount() float64    { return m.discount }
func (m *RockSample) NumActions() int      { return int(CheckRock) + len(m.rocks) }
func (m *RockSample) NumStates() int       { return m.exit() + 1 }
func (m *RockSample) NumObservations() int { return 3 }
