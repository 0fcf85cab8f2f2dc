package ports

import (
	"context"

	"github.com/Himanshu040604/PregelFlow/pkg/domain"
)

// CheckpointStore persists the append-only checkpoint history of sessions.
// It enables durable execution: a run interrupted after a wavefront commit
// can be resumed from the latest checkpoint.
//
// Implementations must be safe for concurrent use across different session
// IDs. Writes to one session are serialized by the caller (see
// pkg/session), but a store still rejects a checkpoint that does not advance
// the session's sequence.
type CheckpointStore interface {
	// Save durably appends cp as the new latest checkpoint of cp.SessionID.
	// Returns domain.ErrSequenceConflict if cp.Sequence is not greater than
	// the latest stored sequence.
	Save(ctx context.Context, cp *domain.Checkpoint) error

	// LoadLatest returns the checkpoint with the highest sequence.
	// Returns domain.ErrNoHistory for a session without checkpoints.
	LoadLatest(ctx context.Context, sessionID string) (*domain.Checkpoint, error)

	// History returns every checkpoint of the session in ascending sequence
	// order. A fresh session yields an empty slice.
	History(ctx context.Context, sessionID string) ([]*domain.Checkpoint, error)

	// Delete removes all checkpoints of a session. Deleting an unknown
	// session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all sessions with at least one checkpoint.
	List(ctx context.Context) ([]string, error)
}
