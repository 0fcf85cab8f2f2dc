/*
Package domain contains the core records shared by every layer of PregelFlow.

It is kept free of I/O and persistence, following the same hexagonal layout as
the rest of the module: adapters depend on domain, never the other way round.

# Key Entities

  - Snapshot: an immutable view of the shared state handed to a node.
  - Update: the partial record a node returns (a subset of schema fields).
  - Checkpoint: a committed superstep boundary of one session.
  - ExecutionError / PersistenceError: the run-time error taxonomy.
  - LifecycleHooks: observability callbacks fired by the executor.
*/
package domain
