/*
Package session serializes access to session checkpoints.

The Manager guarantees a single writer per session: within one process with
reference-counted per-session mutexes, and across replicas with an optional
ports.DistributedLocker. Different sessions never block each other.
*/
package session
