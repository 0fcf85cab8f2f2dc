/*
Package pregelflow is a small workflow-orchestration kernel: it runs a fixed
acyclic task graph over one shared state record, executing independent tasks
concurrently and merging their partial outputs with per-field policies.

It implements a Pregel-style superstep model. Nodes whose predecessors have
all completed form a wavefront; the wavefront runs concurrently, a barrier
waits for every member, the merge engine folds their updates, and a
checkpoint is committed before the next wavefront starts. Checkpoints are
keyed by session, so an interrupted run can be resumed and later turns can
build on earlier ones.

# Concept

  - Schema (pkg/schema): fields with a Replace or Append merge policy.
  - Graph (pkg/graph): nodes, edges, START and END, validated at build time.
    A Replace field written by two nodes of one wavefront is rejected.
  - Executor (internal/runtime): wavefront scheduling, barrier, commit.
  - CheckpointStore (pkg/ports): memory, file, SQLite and Redis adapters.
  - Engine (this package): one turn per Invoke, under a per-session lock.

# Usage

	s := schema.MustNew(
		schema.Field{Name: "topic", Type: schema.String(), Policy: schema.Replace},
		schema.Field{Name: "results", Type: schema.String(), Policy: schema.Append},
	)
	b := graph.New(s)
	b.Node("a", fetchA).Writes("results").From(graph.START).To(graph.END)
	b.Node("b", fetchB).Writes("results").From(graph.START).To(graph.END)
	g, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}

	eng, err := pregelflow.New(g, memory.NewStore())
	if err != nil {
		log.Fatal(err)
	}
	res, err := eng.Invoke(ctx, "session-1", domain.Update{"topic": "London"})
*/
package pregelflow
