package runner

import (
	"log/slog"
	"time"

	"github.com/Himanshu040604/PregelFlow/pkg/domain"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithSessionID sets the session every turn runs on.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithSeed maps an input line to the seed of a run.
func WithSeed(seed func(string) domain.Update) Option {
	return func(r *Runner) {
		r.Seed = seed
	}
}

// WithAutoResume continues an in-flight run of the session before the first
// prompt.
func WithAutoResume(enabled bool) Option {
	return func(r *Runner) {
		r.AutoResume = enabled
	}
}

// WithTurnTimeout bounds every turn. Zero disables it.
func WithTurnTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.TurnTimeout = d
	}
}

// WithInterruptSource sets a channel that signals the runner to interrupt
// the current turn.
func WithInterruptSource(ch <-chan struct{}) Option {
	return func(r *Runner) {
		r.InterruptSource = ch
	}
}
