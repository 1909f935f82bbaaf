package mcts

import (
	"fmt"
	"io"
	"strconv"

	"github.com/awalterschulze/gographviz"
	"github.com/pkg/errors"
)

const graphName = "pomcp"

// WriteDot writes the tree below the root, down to maxDepth observation
// levels, in graphviz DOT format. Observation nodes are ellipses labelled with
// their visit count; action nodes are boxes labelled with N and V.
func (p *Planner) WriteDot(w io.Writer, maxDepth int) error {
	if !p.root.isValid() {
		return errors.WithStack(ErrNoEpisode)
	}
	g := gographviz.NewEscape()
	if err := g.SetName(graphName); err != nil {
		return errors.WithStack(err)
	}
	if err := g.SetDir(true); err != nil {
		return errors.WithStack(err)
	}
	if err := p.dotNode(g, p.root, maxDepth); err != nil {
		return err
	}
	_, err := io.WriteString(w, g.String())
	return errors.WithStack(err)
}

func (p *Planner) dotNode(g *gographviz.Escape, n naughty, depth int) error {
	node := p.tree.nodeFromNaughty(n)
	visits, value := node.stats()
	attrs := map[string]string{}
	switch node.kind {
	case observationNode:
		attrs["shape"] = "ellipse"
		attrs["label"] = fmt.Sprintf("o=%d\\nN=%d", node.Key(), visits)
		if n == p.root {
			attrs["label"] = fmt.Sprintf("root\\nN=%d", visits)
		}
	case actionNode:
		attrs["shape"] = "box"
		attrs["label"] = fmt.Sprintf("a=%d\\nN=%d\\nV=%.3f", node.Key(), visits, value)
	}
	name := "n" + strconv.Itoa(int(n))
	if err := g.AddNode(graphName, name, attrs); err != nil {
		return errors.WithStack(err)
	}

	if node.kind == observationNode {
		if depth <= 0 {
			return nil
		}
		depth--
	}
	for _, kid := range p.tree.Children(n) {
		if err := p.dotNode(g, kid, depth); err != nil {
			return err
		}
		if err := g.AddEdge(name, "n"+strconv.Itoa(int(kid)), true, nil); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
