package mcts

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/exp/rand"

	"github.com/pomcpgo/belief"
	"github.com/pomcpgo/model"
)

type Status uint32

const (
	Invalid Status = iota // on the free list
	Active
	Pruned // detached, waiting to be reclaimed
)

func (a Status) String() string {
	switch a {
	case Invalid:
		return "Invalid"
	case Active:
		return "Active"
	case Pruned:
		return "Pruned"
	}
	return "UNKNOWN STATUS"
}

type kind uint8

const (
	observationNode kind = iota // a history h
	actionNode                  // a history followed by an action, (h, a)
)

func (k kind) String() string {
	if k == actionNode {
		return "action"
	}
	return "observation"
}

// Node is one vertex of the search tree. Observation nodes hold a visit count
// N(h), a particle reservoir, and action children indexed by action. Action
// nodes hold N(h, a), the running mean V(h, a), and one observation child per
// observation seen.
type Node struct {
	// should guarantee thread-safe operation
	lock   sync.Mutex
	kind   kind
	key    int32   // action for action nodes, observation for observation nodes
	visits uint32  // N(h) or N(h, a)
	value  float64 // V(h, a)
	status uint32

	children []naughty

	particles belief.Particles
	offered   uint64 // states ever offered to the reservoir

	id naughty
}

func (n *Node) Format(s fmt.State, c rune) {
	fmt.Fprintf(s, "{NodeID: %v, Kind: %v, Key: %v, V %v, Visits %v, Status: %v}",
		n.id, n.kind, n.Key(), n.Value(), n.Visits(), n.Status())
}

// Update folds the return q into the running mean V and increments N.
func (n *Node) Update(q float64) {
	n.lock.Lock()
	n.value += (q - n.value) / float64(n.visits+1)
	n.visits++
	n.lock.Unlock()
}

// visit increments N(h) on entering an observation node.
func (n *Node) visit() {
	n.lock.Lock()
	n.visits++
	n.lock.Unlock()
}

func (n *Node) Visits() uint32 {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.visits
}

// Value returns V(h, a). It is zero for observation nodes.
func (n *Node) Value() float64 {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.value
}

// Key is the action or observation that leads to this node.
func (n *Node) Key() int32 {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.key
}

func (n *Node) Status() Status {
	n.lock.Lock()
	defer n.lock.Unlock()
	return Status(n.status)
}

// Prune marks the node as detached.
func (n *Node) Prune() {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.status = uint32(Pruned)
}

func (n *Node) stats() (visits uint32, value float64) {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.visits, n.value
}

// offer adds s to the particle reservoir. Once the reservoir holds limit
// states, each new state replaces a uniformly chosen one with probability
// limit/offered, so the reservoir stays a uniform sample of everything offered.
func (n *Node) offer(rng *rand.Rand, s model.State, limit int) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.offered++
	if len(n.particles) < limit {
		n.particles = append(n.particles, s)
		return
	}
	if j := rng.Uint64n(n.offered); j < uint64(limit) {
		n.particles[j] = s
	}
}

// Particles returns a copy of the reservoir.
func (n *Node) Particles() belief.Particles {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append(belief.Particles(nil), n.particles...)
}

// selectAction picks the action to simulate among the first count actions.
// The lowest-indexed untried action wins; otherwise the action maximising
//
//	V(h, a) + c * sqrt(ln N(h) / N(h, a))
//
// with ties to the lowest index.
func (n *Node) selectAction(t *Tree, count int, c float64) model.Action {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.grow(count)

	// N(h) can briefly trail its children's visits while other workers backpropagate
	logN := math.Log(math.Max(float64(n.visits), 1))
	best, bestValue := model.Action(-1), math.Inf(-1)
	for a := 0; a < count; a++ {
		kid := n.children[a]
		if !kid.isValid() {
			return model.Action(a)
		}
		visits, value := t.nodeFromNaughty(kid).stats()
		if visits == 0 {
			return model.Action(a)
		}
		ucb := value + c*math.Sqrt(logN/float64(visits))
		if ucb > bestValue {
			best, bestValue = model.Action(a), ucb
		}
	}
	if best < 0 {
		panic(fmt.Sprintf("no action to select among %d", count))
	}
	return best
}

// grow makes room for count action children. Callers hold n.lock.
func (n *Node) grow(count int) {
	for len(n.children) < count {
		n.children = append(n.children, nilNode)
	}
}

// countChildren counts the number of children node a node has and number of grandkids recursively
func (n *Node) countChildren(t *Tree) (retVal int) {
	for _, kid := range t.Children(n.id) {
		retVal += t.nodeFromNaughty(kid).countChildren(t)
		retVal++ // plus the child itself
	}
	return
}

func (n *Node) reset() {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.key = -1
	n.visits = 0
	n.value = 0
	n.status = uint32(Invalid)
	n.children = n.children[:0]
	n.particles = n.particles[:0]
	n.offered = 0
}
