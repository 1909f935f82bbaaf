package model

// Position is a cell on a RockSample grid. Y grows northwards.
type Position struct {
	X, Y int
}

// Encode packs a grid position and rock-quality bits into a state index:
// rocks * size² + y * size + x. Bit i set means rock i is good.
func (m *RockSample) Encode(p Position, rocks uint) State {
	mustIndex("x", p.X, m.size)
	mustIndex("y", p.Y, m.size)
	mustIndex("rock mask", int(rocks), 1<<len(m.rocks))
	return State(int(rocks)*m.size*m.size + p.Y*m.size + p.X)
}

// Decode is the inverse of Encode. It panics on the exit state.
func (m *RockSample) Decode(s State) (Position, uint) {
	mustIndex("state", int(s), m.exit())
	cells := m.size * m.size
	pos := int(s) % cells
	return Position{X: pos % m.size, Y: pos / m.size}, uint(int(s) / cells)
}

// Exit is the absorbing state reached by walking off the east edge.
func (m *RockSample) Exit() State { return State(m.exit()) }

func (m *RockSample) exit() int { return m.size * m.size << len(m.rocks) }
