package graph

import (
	"slices"

	"github.com/Himanshu040604/PregelFlow/pkg/schema"
)

// Graph is a validated, immutable task graph. It is safe for concurrent use.
type Graph struct {
	schema *schema.Schema
	nodes  []Node
	index  map[string]int
	edges  []Edge
	succs  map[string][]string
	preds  map[string][]string
	levels map[string]int
	waves  [][]string
}

// Schema returns the state schema the graph was validated against.
func (g *Graph) Schema() *schema.Schema { return g.schema }

// Nodes returns the nodes in declaration order.
func (g *Graph) Nodes() []Node { return slices.Clone(g.nodes) }

// Node looks a node up by id.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Order returns the declaration position of a node, or -1.
func (g *Graph) Order(id string) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	return -1
}

// Edges returns the deduplicated edges, sentinels included.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// Predecessors returns the node ids feeding id, START excluded.
func (g *Graph) Predecessors(id string) []string {
	return without(g.preds[id], START)
}

// Successors returns the node ids fed by id, END excluded.
func (g *Graph) Successors(id string) []string {
	return without(g.succs[id], END)
}

// Roots returns the successors of START.
func (g *Graph) Roots() []string { return without(g.succs[START], END) }

// Terminals returns the predecessors of END.
func (g *Graph) Terminals() []string { return without(g.preds[END], START) }

// Level returns the wavefront a node runs in, starting at 1.
func (g *Graph) Level(id string) int { return g.levels[id] }

// Wavefronts returns the node ids of every superstep, sorted within a step.
func (g *Graph) Wavefronts() [][]string {
	out := make([][]string, len(g.waves))
	for i, w := range g.waves {
		out[i] = slices.Clone(w)
	}
	return out
}

func without(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
