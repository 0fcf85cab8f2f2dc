package graph

import (
	"fmt"
	"strings"

	"github.com/Himanshu040604/PregelFlow/pkg/schema"
)

// Builder accumulates a graph definition. It is not safe for concurrent use.
type Builder struct {
	schema *schema.Schema
	nodes  []Node
	index  map[string]int
	edges  []Edge
	errs   []error
}

// New creates a builder for graphs over the given schema.
func New(s *schema.Schema) *Builder {
	return &Builder{
		schema: s,
		index:  make(map[string]int),
	}
}

// AddNode declares a node. Declaring the same id twice is reported by Build.
func (b *Builder) AddNode(n Node) *Builder {
	b.add(n)
	return b
}

// Node declares a node and returns a fluent builder for it.
func (b *Builder) Node(id string, fn NodeFunc) *NodeBuilder {
	return &NodeBuilder{builder: b, index: b.add(Node{ID: id, Run: fn})}
}

func (b *Builder) add(n Node) int {
	switch {
	case strings.TrimSpace(n.ID) == "":
		b.errs = append(b.errs, defErr(ErrInvalidNode, "", "node id cannot be empty"))
		return -1
	case n.ID == START || n.ID == END:
		b.errs = append(b.errs, defErr(ErrInvalidNode, n.ID, "id is reserved for a sentinel"))
		return -1
	}
	if _, dup := b.index[n.ID]; dup {
		b.errs = append(b.errs, defErr(ErrDuplicateNodeID, n.ID, "declared more than once"))
		return -1
	}
	if n.Run == nil {
		b.errs = append(b.errs, defErr(ErrInvalidNode, n.ID, "node has no task function"))
	}
	n.Writes = append([]string(nil), n.Writes...)
	b.index[n.ID] = len(b.nodes)
	b.nodes = append(b.nodes, n)
	return len(b.nodes) - 1
}

// Edge adds a directed edge. Duplicate edges are collapsed by Build.
func (b *Builder) Edge(from, to string) *Builder {
	b.edges = append(b.edges, Edge{From: from, To: to})
	return b
}

// Build validates the definition and returns the immutable graph.
func (b *Builder) Build() (*Graph, error) {
	if b.schema == nil {
		return nil, defErr(ErrSchemaConflict, "", "graph has no state schema")
	}
	g, err := validate(b.schema, b.nodes, b.edges, b.errs)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Graph {
	g, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("graph: %v", err))
	}
	return g
}
