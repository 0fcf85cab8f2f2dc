package domain

import (
	"slices"
	"time"
)

// RunStatus tells whether the run recorded by a checkpoint is still in flight.
type RunStatus string

const (
	RunRunning   RunStatus = "running"   // Wavefronts remain; resumable.
	RunCompleted RunStatus = "completed" // END reached.
)

// Checkpoint is one committed superstep boundary of a session. Checkpoints
// are append-only per session; the one with the highest Sequence is the
// resume point.
type Checkpoint struct {
	SessionID string         `json:"session_id"`
	Sequence  int64          `json:"seq"`
	RunID     string         `json:"run_id"`
	Status    RunStatus      `json:"status"`
	Wavefront int            `json:"wavefront"`
	State     map[string]any `json:"state"`
	Completed []string       `json:"completed"`
	CreatedAt time.Time      `json:"created_at"`
}

// Clone returns a deep copy.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	out := *c
	out.State = CloneValues(c.State)
	out.Completed = slices.Clone(c.Completed)
	return &out
}

// IsComplete reports whether the recorded run reached END.
func (c *Checkpoint) IsComplete() bool {
	return c != nil && c.Status == RunCompleted
}

// CompletedSet returns the completed node ids as a set.
func (c *Checkpoint) CompletedSet() map[string]bool {
	set := make(map[string]bool, len(c.Completed))
	for _, id := range c.Completed {
		set[id] = true
	}
	return set
}
