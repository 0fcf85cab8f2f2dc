package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Himanshu040604/PregelFlow"
	"github.com/Himanshu040604/PregelFlow/internal/logging"
	"github.com/Himanshu040604/PregelFlow/pkg/domain"
)

// DefaultInputField receives the input line when no seed function is set.
const DefaultInputField = "input"

// Messages written through IOHandler.SystemOutput.
const (
	MsgExiting     = "Exiting..."
	MsgProcessing  = "\n   Processing..."
	MsgInterrupted = "Interrupted. The unfinished run can be resumed."
)

// Engine is the part of *pregelflow.Engine the loop drives.
type Engine interface {
	Invoke(ctx context.Context, sessionID string, seed domain.Update) (*pregelflow.Result, error)
	Resume(ctx context.Context, sessionID string) (*pregelflow.Result, error)
	Pending(ctx context.Context, sessionID string) (bool, error)
}

// Runner handles the interactive loop of an Engine using the provided IO.
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on stdio.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	SessionID       string
	Seed            func(string) domain.Update
	AutoResume      bool
	TurnTimeout     time.Duration
	InterruptSource <-chan struct{}

	engine Engine
}

// New creates a Runner for engine.
func New(engine Engine, opts ...Option) *Runner {
	r := &Runner{
		Logger:    logging.NewNop(),
		SessionID: domain.DefaultSessionID,
		engine:    engine,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	if r.Seed == nil {
		r.Seed = func(s string) domain.Update { return domain.Update{DefaultInputField: s} }
	}
	return r
}

// Run executes the loop until exit, end of input, or an interrupt at the
// prompt. Those all return nil; only IO failures are errors.
func (r *Runner) Run(ctx context.Context) error {
	signals := NewSignalManager(ctx, r.InterruptSource)
	defer signals.Stop()

	if r.AutoResume && !r.resume(ctx, signals) {
		return nil
	}

	for {
		promptCtx := signals.Context()
		line, err := r.Handler.Input(promptCtx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return nil
			case errors.Is(err, ErrInputTooLarge), errors.Is(err, ErrInvalidUTF8):
				r.report(ctx, fmt.Sprintf("Error: %v", err))
				continue
			}
			signals.CheckRace()
			if promptCtx.Err() != nil {
				r.Logger.Debug("runner input: context cancelled", "err", promptCtx.Err())
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		if line == "" {
			continue
		}
		if IsExit(line) {
			r.report(ctx, MsgExiting)
			return nil
		}

		r.report(ctx, MsgProcessing)
		res, err := r.turn(signals.Context(), line)
		if !r.settle(ctx, signals, res, err) {
			return nil
		}
	}
}

func (r *Runner) turn(ctx context.Context, line string) (*pregelflow.Result, error) {
	if r.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.TurnTimeout)
		defer cancel()
	}
	return r.engine.Invoke(ctx, r.SessionID, r.Seed(line))
}

// resume continues an in-flight run left by an earlier process.
func (r *Runner) resume(parent context.Context, signals *SignalManager) bool {
	pending, err := r.engine.Pending(signals.Context(), r.SessionID)
	if err != nil {
		return r.settle(parent, signals, nil, err)
	}
	if !pending {
		return true
	}
	r.report(parent, fmt.Sprintf("Resuming unfinished run of session %q...", r.SessionID))
	res, err := r.engine.Resume(signals.Context(), r.SessionID)
	return r.settle(parent, signals, res, err)
}

// settle reports the outcome of a turn. It returns false when the loop
// should stop because the parent context is gone.
func (r *Runner) settle(parent context.Context, signals *SignalManager, res *pregelflow.Result, err error) bool {
	if err == nil {
		if outErr := r.Handler.Output(parent, res); outErr != nil {
			r.Logger.Error("failed to write output", "err", outErr)
		}
		return true
	}
	if parent.Err() != nil {
		return false
	}
	if signals.Context().Err() != nil {
		r.report(parent, MsgInterrupted)
		signals.Reset()
		return true
	}
	r.Logger.Debug("turn failed", "session_id", r.SessionID, "err", err)
	r.report(parent, fmt.Sprintf("Error: %v", err))
	return true
}

func (r *Runner) report(ctx context.Context, msg string) {
	if err := r.Handler.SystemOutput(context.WithoutCancel(ctx), msg); err != nil {
		r.Logger.Error("failed to write system output", "err", err)
	}
}
