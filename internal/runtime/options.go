package runtime

import (
	"log/slog"
	"time"

	"github.com/Himanshu040604/PregelFlow/pkg/domain"
)

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) ExecutorOption {
	return func(e *Executor) {
		e.hooks = hooks
	}
}

// WithNodeTimeout bounds each node task. Zero means no per-node limit.
func WithNodeTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.nodeTimeout = d
	}
}

// WithClock overrides time.Now, for deterministic checkpoints in tests.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}
