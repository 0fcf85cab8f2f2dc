package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeStart  EventType = "node_start"
	EventNodeFinish EventType = "node_finish"
	EventCommit     EventType = "commit"
	EventRunFinish  EventType = "run_finish"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	RunID     string    `json:"run_id"`
}

// NodeEvent represents the start or finish of one node task.
type NodeEvent struct {
	EventBase
	NodeID    string        `json:"node_id"`
	Wavefront int           `json:"wavefront"`
	Optional  bool          `json:"optional"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
}

// CommitEvent is fired after a wavefront checkpoint has been persisted.
type CommitEvent struct {
	EventBase
	Sequence  int64     `json:"seq"`
	Wavefront int       `json:"wavefront"`
	Nodes     []string  `json:"nodes"`
	Status    RunStatus `json:"status"`
}

// RunEvent is fired once per executor run, successful or not.
type RunEvent struct {
	EventBase
	Status   RunStatus     `json:"status"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for executor observability. Hooks run on
// the goroutine that produced the event and must not block.
type LifecycleHooks struct {
	OnNodeStart  func(context.Context, *NodeEvent)
	OnNodeFinish func(context.Context, *NodeEvent)
	OnCommit     func(context.Context, *CommitEvent)
	OnRunFinish  func(context.Context, *RunEvent)
}

// CombineHooks fans every event out to all of the given hooks in order.
func CombineHooks(all ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeStart: func(ctx context.Context, e *NodeEvent) {
			for _, h := range all {
				if h.OnNodeStart != nil {
					h.OnNodeStart(ctx, e)
				}
			}
		},
		OnNodeFinish: func(ctx context.Context, e *NodeEvent) {
			for _, h := range all {
				if h.OnNodeFinish != nil {
					h.OnNodeFinish(ctx, e)
				}
			}
		},
		OnCommit: func(ctx context.Context, e *CommitEvent) {
			for _, h := range all {
				if h.OnCommit != nil {
					h.OnCommit(ctx, e)
				}
			}
		},
		OnRunFinish: func(ctx context.Context, e *RunEvent) {
			for _, h := range all {
				if h.OnRunFinish != nil {
					h.OnRunFinish(ctx, e)
				}
			}
		},
	}
}
