package graph

import (
	"context"

	"github.com/Himanshu040604/PregelFlow/pkg/domain"
)

// Sentinel endpoints. They are not nodes and cannot be declared as such.
const (
	START = "__start__"
	END   = "__end__"
)

// NodeFunc is the task a node performs. It receives an immutable snapshot of
// the shared state and returns a partial update. It must not retain the
// snapshot's values beyond the call.
type NodeFunc func(ctx context.Context, in domain.Snapshot) (domain.Update, error)

// Node is one unit of work in the graph.
type Node struct {
	ID string
	// Run is invoked once per run of the graph.
	Run NodeFunc
	// Writes lists the schema fields the node may update.
	Writes []string
	// Optional nodes are best effort: a failure is recorded as an absent
	// update and does not abort the run.
	Optional bool
}

// Edge is an ordered (source, target) pair. Either end may be a sentinel.
type Edge struct {
	From string
	To   string
}

// NodeBuilder provides a fluent API for configuring a node while it is
// being declared.
type NodeBuilder struct {
	builder *Builder
	index   int // -1 when the declaration was rejected
}

func (n *NodeBuilder) node() *Node {
	if n.index < 0 {
		return &Node{}
	}
	return &n.builder.nodes[n.index]
}

// Writes declares the schema fields the node may update.
func (n *NodeBuilder) Writes(fields ...string) *NodeBuilder {
	nd := n.node()
	nd.Writes = append(nd.Writes, fields...)
	return n
}

// Optional marks the node as best effort.
func (n *NodeBuilder) Optional() *NodeBuilder {
	n.node().Optional = true
	return n
}

// To adds an edge from this node to target.
func (n *NodeBuilder) To(target string) *NodeBuilder {
	if n.index >= 0 {
		n.builder.Edge(n.node().ID, target)
	}
	return n
}

// From adds an edge from source to this node.
func (n *NodeBuilder) From(source string) *NodeBuilder {
	if n.index >= 0 {
		n.builder.Edge(source, n.node().ID)
	}
	return n
}
