/*
Package ports defines the driven ports (interfaces) for the PregelFlow engine.

These interfaces decouple the executor and session runner from concrete
storage and coordination backends.

# Key Interfaces

  - CheckpointStore: append-only, per-session checkpoint persistence.
  - DistributedLocker: cross-process locking for single-writer-per-session.
*/
package ports
