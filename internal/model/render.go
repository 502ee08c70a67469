package model

import (
	"errors"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// RenderTree renders one tree of the ensemble as an SVG file for inspection.
// Internal nodes are labeled with their split; leaves with their value.
func (r *Regressor) RenderTree(index int, path string) error {
	if r == nil || len(r.Trees) == 0 {
		return errors.New("model is not fitted")
	}
	if index < 0 || index >= len(r.Trees) {
		return fmt.Errorf("tree index %d out of range [0, %d)", index, len(r.Trees))
	}
	t := r.Trees[index]

	g := graphviz.New()
	defer func() { _ = g.Close() }()
	graph, err := g.Graph()
	if err != nil {
		return fmt.Errorf("create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	nodes := make([]*cgraph.Node, len(t.Nodes))
	for i, n := range t.Nodes {
		gn, err := graph.CreateNode(fmt.Sprintf("n%d", i))
		if err != nil {
			return fmt.Errorf("create node %d: %w", i, err)
		}
		if n.Leaf {
			gn.SetLabel(fmt.Sprintf("%.4f", n.Value))
			gn.SetShape(cgraph.BoxShape)
		} else {
			gn.SetLabel(fmt.Sprintf("x[%d] <= %.4f", n.Feature, n.Threshold))
		}
		nodes[i] = gn
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			continue
		}
		le, err := graph.CreateEdge("", nodes[i], nodes[n.Left])
		if err != nil {
			return fmt.Errorf("create edge: %w", err)
		}
		le.SetLabel("yes")
		re, err := graph.CreateEdge("", nodes[i], nodes[n.Right])
		if err != nil {
			return fmt.Errorf("create edge: %w", err)
		}
		re.SetLabel("no")
	}

	return g.RenderFilename(graph, graphviz.SVG, path)
}
