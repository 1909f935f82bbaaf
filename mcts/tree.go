package mcts

import (
	"sync"
)

// pageSize is the number of nodes per arena page. Pages are never
// reallocated, so a *Node stays valid while the arena grows.
const pageSize = 4096

// Tree is essentially a "global" manager of sorts for the memories. Nodes are
// addressed by naughty indices instead of pointers, so detaching a subtree is
// O(1) and reclamation is batched.
type Tree struct {
	sync.RWMutex

	// memory related fields
	pages [][]Node
	size  int // nodes handed out of pages, free or not

	freelist  []naughty
	freeables []naughty // roots of detached subtrees
}

func newTree() *Tree {
	return &Tree{
		pages:    [][]Node{make([]Node, pageSize)},
		freelist: make([]naughty, 0, pageSize),
	}
}

// New creates a new node
func (t *Tree) New(k kind, key int32) (retVal naughty) {
	n := t.alloc()
	N := t.nodeFromNaughty(n)
	N.lock.Lock()
	defer N.lock.Unlock()
	N.kind = k
	N.key = key
	N.visits = 0
	N.value = 0
	N.status = uint32(Active)
	N.children = N.children[:0]
	N.particles = N.particles[:0]
	N.offered = 0
	return n
}

// Nodes is the number of live nodes, including detached ones not yet reclaimed.
func (t *Tree) Nodes() int {
	t.RLock()
	defer t.RUnlock()
	return t.size - len(t.freelist)
}

// nodeFromNaughty gets the node given the pointer.
func (t *Tree) nodeFromNaughty(ptr naughty) *Node {
	t.RLock()
	page := t.pages[int(ptr)/pageSize]
	t.RUnlock()
	return &page[int(ptr)%pageSize]
}

// Children returns the existing children of a node.
func (t *Tree) Children(of naughty) []naughty {
	n := t.nodeFromNaughty(of)
	n.lock.Lock()
	defer n.lock.Unlock()
	retVal := make([]naughty, 0, len(n.children))
	for _, kid := range n.children {
		if kid.isValid() {
			retVal = append(retVal, kid)
		}
	}
	return retVal
}

// alloc tries to get a node from the free list. If none is found a new node is allocated into the master arena
func (t *Tree) alloc() naughty {
	t.Lock()
	defer t.Unlock()
	if l := len(t.freelist); l > 0 {
		i := t.freelist[l-1]
		t.freelist = t.freelist[:l-1]
		return i
	}
	if t.size == len(t.pages)*pageSize {
		t.pages = append(t.pages, make([]Node, pageSize))
	}
	n := naughty(t.size)
	t.size++
	t.pages[int(n)/pageSize][int(n)%pageSize].id = n
	return n
}

// free puts the node back into the freelist.
//
// Because the there isn't really strong reference tracking, there may be
// use-after-free issues. free is only called between searches.
func (t *Tree) free(n naughty) {
	t.nodeFromNaughty(n).reset()
	t.Lock()
	t.freelist = append(t.freelist, n)
	t.Unlock()
}

// actionChild returns the child of observation node parent for action a,
// creating it on first use. Concurrent callers get the same child.
func (t *Tree) actionChild(parent naughty, a int) naughty {
	p := t.nodeFromNaughty(parent)
	p.lock.Lock()
	defer p.lock.Unlock()
	p.grow(a + 1)
	if kid := p.children[a]; kid.isValid() {
		return kid
	}
	kid := t.New(actionNode, int32(a))
	p.children[a] = kid
	return kid
}

// observationChild returns the child of action node parent for observation o
// and whether this call created it.
func (t *Tree) observationChild(parent naughty, o int) (naughty, bool) {
	p := t.nodeFromNaughty(parent)
	p.lock.Lock()
	defer p.lock.Unlock()
	if kid := t.findChild(p, o); kid.isValid() {
		return kid, false
	}
	kid := t.New(observationNode, int32(o))
	p.children = append(p.children, kid)
	return kid, true
}

// findChild finds the first child that has the wanted key. Callers hold p.lock.
func (t *Tree) findChild(p *Node, key int) naughty {
	for _, kid := range p.children {
		if !kid.isValid() {
			continue
		}
		if t.nodeFromNaughty(kid).Key() == int32(key) {
			return kid
		}
	}
	return nilNode
}

// detach marks the subtree rooted at n for reclamation by the next reclaim.
func (t *Tree) detach(n naughty) {
	t.nodeFromNaughty(n).Prune()
	t.Lock()
	t.freeables = append(t.freeables, n)
	t.Unlock()
}

// reclaim frees every detached subtree except the one rooted at keep. It must
// not run concurrently with a search.
func (t *Tree) reclaim(keep naughty) (freed int) {
	t.Lock()
	freeables := t.freeables
	t.freeables = nil
	t.Unlock()

	stack := make([]naughty, 0, len(freeables))
	stack = append(stack, freeables...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == keep {
			continue
		}
		stack = append(stack, t.Children(n)...)
		t.free(n)
		freed++
	}
	return freed
}

// Reset drops every node. Pages are kept for reuse.
func (t *Tree) Reset() {
	t.RLock()
	size := t.size
	t.RUnlock()
	for i := 0; i < size; i++ {
		t.nodeFromNaughty(naughty(i)).reset()
	}

	t.Lock()
	defer t.Unlock()
	t.size = 0
	t.freelist = t.freelist[:0]
	t.freeables = t.freeables[:0]
}
