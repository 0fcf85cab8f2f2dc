/*
Package graph declares and validates the fixed task graph executed by the
runtime.

A Builder accumulates nodes and edges against a schema; Build validates the
result and returns an immutable Graph. A Graph can only be obtained through
Build, so no execution may start against an unvalidated definition.

	b := graph.New(s)
	b.Node("weather", weatherFn).Writes("results").Optional()
	b.Node("report", reportFn).Writes("final_report")
	b.Edge(graph.START, "weather")
	b.Edge("weather", "report")
	b.Edge("report", graph.END)
	g, err := b.Build()

# Validation

Build checks, in order: node identity (ErrInvalidNode, ErrDuplicateNodeID),
edge endpoints (ErrUnknownEdgeEndpoint), acyclicity (ErrCycleDetected),
reachability from START and to END (ErrUnreachableNode), and finally the
schema conflict rule (ErrSchemaConflict): a Replace field may have at most one
writer per wavefront. Errors are reported as *DefinitionError values joined
with errors.Join, so errors.Is works against each kind.
*/
package graph
