package graph_test

import (
	"context"
	"testing"

	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	"github.com/Himanshu040604/PregelFlow/pkg/graph"
	"github.com/Himanshu040604/PregelFlow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, domain.Snapshot) (domain.Update, error) { return nil, nil }

func testSchema() *schema.Schema {
	return schema.MustNew(
		schema.Field{Name: "topic", Type: schema.String(), Policy: schema.Replace},
		schema.Field{Name: "results", Type: schema.String(), Policy: schema.Append},
		schema.Field{Name: "final_report", Type: schema.String(), Policy: schema.Replace},
	)
}

// fanOut builds START -> a, b, c -> join -> END.
func fanOut() *graph.Builder {
	b := graph.New(testSchema())
	for _, id := range []string{"a", "b", "c"} {
		b.Node(id, noop).Writes("results").From(graph.START).To("join")
	}
	b.Node("join", noop).Writes("final_report").To(graph.END)
	return b
}

func TestBuild_FanOutFanIn(t *testing.T) {
	g, err := fanOut().Build()
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "b", "c"}, {"join"}}, g.Wavefronts())
	assert.ElementsMatch(t, []string{"a", "b", "c"}, g.Roots())
	assert.Equal(t, []string{"join"}, g.Terminals())
	assert.ElementsMatch(t, []string{"a", "b", "c"}, g.Predecessors("join"))
	assert.Empty(t, g.Successors("join"), "END is not a node")
	assert.Equal(t, 2, g.Level("join"))
	assert.Equal(t, 3, g.Order("join"))
}

func TestBuild_LevelIsLongestPath(t *testing.T) {
	// START -> a -> b -> c -> END, plus a shortcut a -> c.
	b := graph.New(testSchema())
	b.Node("a", noop).From(graph.START).To("b").To("c")
	b.Node("b", noop).To("c")
	b.Node("c", noop).To(graph.END)
	g, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, g.Wavefronts())
}

func TestBuild_CycleDetected(t *testing.T) {
	b := graph.New(testSchema())
	b.Node("a", noop).From(graph.START).To("b")
	b.Node("b", noop).To("c")
	b.Node("c", noop).To("a").To(graph.END)

	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrCycleDetected)

	var de *graph.DefinitionError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Detail, "a, b, c")
}

func TestBuild_SelfLoop(t *testing.T) {
	b := graph.New(testSchema())
	b.Node("a", noop).From(graph.START).To("a").To(graph.END)
	_, err := b.Build()
	assert.ErrorIs(t, err, graph.ErrCycleDetected)
}

func TestBuild_UnknownEdgeEndpoint(t *testing.T) {
	b := fanOut()
	b.Edge("join", "ghost")
	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrUnknownEdgeEndpoint)
	assert.Contains(t, err.Error(), "ghost")
}

func TestBuild_SentinelMisuse(t *testing.T) {
	b := fanOut()
	b.Edge("a", graph.START)
	_, err := b.Build()
	assert.ErrorIs(t, err, graph.ErrUnknownEdgeEndpoint)

	b = fanOut()
	b.Edge(graph.END, "a")
	_, err = b.Build()
	assert.ErrorIs(t, err, graph.ErrUnknownEdgeEndpoint)

	b = fanOut()
	b.Node(graph.START, noop)
	_, err = b.Build()
	assert.ErrorIs(t, err, graph.ErrInvalidNode)
}

func TestBuild_DuplicateNodeID(t *testing.T) {
	b := fanOut()
	b.AddNode(graph.Node{ID: "a", Run: noop})
	_, err := b.Build()
	assert.ErrorIs(t, err, graph.ErrDuplicateNodeID)
}

func TestBuild_NodeWithoutTask(t *testing.T) {
	b := graph.New(testSchema())
	b.Node("a", nil).From(graph.START).To(graph.END)
	_, err := b.Build()
	assert.ErrorIs(t, err, graph.ErrInvalidNode)
}

func TestBuild_Unreachable(t *testing.T) {
	b := fanOut()
	b.Node("orphan", noop).To(graph.END)
	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrUnreachableNode)
	assert.Contains(t, err.Error(), "not reachable from START")

	b = fanOut()
	b.Node("dead_end", noop).From(graph.START)
	_, err = b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot reach END")

	_, err = graph.New(testSchema()).Edge(graph.START, graph.END).Build()
	assert.ErrorIs(t, err, graph.ErrUnreachableNode)
}

func TestBuild_SchemaConflict_ConcurrentReplace(t *testing.T) {
	b := graph.New(testSchema())
	b.Node("a", noop).Writes("topic").From(graph.START).To(graph.END)
	b.Node("b", noop).Writes("topic").From(graph.START).To(graph.END)

	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrSchemaConflict)
	assert.Contains(t, err.Error(), `"topic"`)
	assert.Contains(t, err.Error(), "a, b")
}

func TestBuild_SequentialReplaceWritersAreFine(t *testing.T) {
	b := graph.New(testSchema())
	b.Node("a", noop).Writes("topic").From(graph.START).To("b")
	b.Node("b", noop).Writes("topic").To(graph.END)
	_, err := b.Build()
	assert.NoError(t, err)
}

func TestBuild_SchemaConflict_UndeclaredField(t *testing.T) {
	b := graph.New(testSchema())
	b.Node("a", noop).Writes("nope").From(graph.START).To(graph.END)
	_, err := b.Build()
	assert.ErrorIs(t, err, graph.ErrSchemaConflict)
}

func TestBuild_RequiresSchema(t *testing.T) {
	b := graph.New(nil)
	b.Node("a", noop).From(graph.START).To(graph.END)
	_, err := b.Build()
	assert.ErrorIs(t, err, graph.ErrSchemaConflict)
}

func TestBuild_DuplicateEdgesCollapse(t *testing.T) {
	b := fanOut()
	b.Edge("a", "join")
	g, err := b.Build()
	require.NoError(t, err)
	assert.Len(t, g.Predecessors("join"), 3)
}
