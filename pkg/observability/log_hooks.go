package observability

import (
	"context"
	"log/slog"

	"github.com/Himanshu040604/PregelFlow/pkg/domain"
)

// LogHooks logs every lifecycle event at Debug. The executor already logs
// failures at their own levels.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeStart: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_start", "session_id", e.SessionID, "run_id", e.RunID,
				"node_id", e.NodeID, "wavefront", e.Wavefront)
		},
		OnNodeFinish: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_finish", "session_id", e.SessionID, "run_id", e.RunID,
				"node_id", e.NodeID, "duration", e.Duration, "err", e.Err)
		},
		OnCommit: func(ctx context.Context, e *domain.CommitEvent) {
			logger.DebugContext(ctx, "commit", "session_id", e.SessionID, "run_id", e.RunID,
				"seq", e.Sequence, "wavefront", e.Wavefront, "nodes", e.Nodes, "status", e.Status)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			logger.DebugContext(ctx, "run_finish", "session_id", e.SessionID, "run_id", e.RunID,
				"status", e.Status, "duration", e.Duration, "err", e.Err)
		},
	}
}
