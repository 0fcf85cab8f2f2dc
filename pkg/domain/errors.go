package domain

import (
	"errors"
	"fmt"
)

// ErrNoHistory is returned when a session has no committed checkpoint yet.
var ErrNoHistory = errors.New("no checkpoint history")

// ErrSequenceConflict is returned by a store when a checkpoint does not
// advance the session's latest sequence number.
var ErrSequenceConflict = errors.New("checkpoint sequence conflict")

// ErrInvalidSessionID is returned for empty or unsafe session identifiers.
var ErrInvalidSessionID = errors.New("invalid session id")

// ExecutionError reports that a required node failed, or that the run was
// cancelled, during a wavefront. Nothing from that wavefront was committed.
type ExecutionError struct {
	SessionID string
	RunID     string
	NodeID    string // Empty when the run as a whole was cancelled.
	Wavefront int
	Err       error
}

func (e *ExecutionError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("run %s aborted at wavefront %d: %v", e.RunID, e.Wavefront, e.Err)
	}
	return fmt.Sprintf("node %q failed at wavefront %d: %v", e.NodeID, e.Wavefront, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// PersistenceError reports that the checkpoint store could not be read or
// written. Previously committed checkpoints are unaffected.
type PersistenceError struct {
	SessionID string
	Op        string // "load", "save", "history", ...
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("checkpoint %s for session %q: %v", e.Op, e.SessionID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsRunError reports whether err aborts only the current turn (as opposed
// to a build-time error that stops startup).
func IsRunError(err error) bool {
	var ee *ExecutionError
	var pe *PersistenceError
	return errors.As(err, &ee) || errors.As(err, &pe)
}
