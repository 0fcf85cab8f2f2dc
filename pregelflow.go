package pregelflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Himanshu040604/PregelFlow/internal/logging"
	"github.com/Himanshu040604/PregelFlow/internal/runtime"
	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	"github.com/Himanshu040604/PregelFlow/pkg/graph"
	"github.com/Himanshu040604/PregelFlow/pkg/ports"
	"github.com/Himanshu040604/PregelFlow/pkg/session"
	"github.com/google/uuid"
)

// ErrInvalidInput reports a seed update the schema rejects.
var ErrInvalidInput = errors.New("invalid input")

// ResetPolicy decides what a new turn keeps from the previous run.
type ResetPolicy int

const (
	// ResetRunScoped starts every turn from a fresh state, keeping only
	// session-scoped fields.
	ResetRunScoped ResetPolicy = iota
	// Accumulate carries the whole previous state into the next turn, so
	// Append fields grow across turns.
	Accumulate
)

func (p ResetPolicy) String() string {
	if p == Accumulate {
		return "accumulate"
	}
	return "reset"
}

// ParseResetPolicy accepts "reset" or "accumulate".
func ParseResetPolicy(s string) (ResetPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reset":
		return ResetRunScoped, nil
	case "accumulate":
		return Accumulate, nil
	}
	return ResetRunScoped, fmt.Errorf("unknown reset policy %q", s)
}

// Engine is the high-level entry point: it runs one graph per session turn
// on top of a checkpoint store.
type Engine struct {
	graph       *graph.Graph
	executor    *runtime.Executor
	sessions    *session.Manager
	hooks       domain.LifecycleHooks
	locker      ports.DistributedLocker
	lockTTL     time.Duration
	logger      *slog.Logger
	reset       ResetPolicy
	outputField string
	nodeTimeout time.Duration
	newRunID    func() string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLocker adds cross-process session locking.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = locker
		e.lockTTL = ttl
	}
}

// WithResetPolicy selects how turns inherit state (default ResetRunScoped).
func WithResetPolicy(p ResetPolicy) Option {
	return func(e *Engine) {
		e.reset = p
	}
}

// WithOutputField names the state field returned as a turn's output.
func WithOutputField(name string) Option {
	return func(e *Engine) {
		e.outputField = name
	}
}

// WithNodeTimeout bounds every node task.
func WithNodeTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.nodeTimeout = d
	}
}

// WithRunIDGenerator overrides the random run ids.
func WithRunIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newRunID = fn
	}
}

// New creates an engine for a validated graph persisting to store.
func New(g *graph.Graph, store ports.CheckpointStore, opts ...Option) (*Engine, error) {
	if g == nil {
		return nil, errors.New("graph is required")
	}
	if store == nil {
		return nil, errors.New("checkpoint store is required")
	}
	eng := &Engine{
		graph:    g,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.outputField != "" && !g.Schema().Has(eng.outputField) {
		return nil, fmt.Errorf("output field %q is not in the schema", eng.outputField)
	}

	eng.executor = runtime.NewExecutor(g,
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithNodeTimeout(eng.nodeTimeout),
	)
	sessionOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(eng.locker), session.WithLockTTL(eng.lockTTL))
	}
	eng.sessions = session.NewManager(store, sessionOpts...)
	return eng, nil
}

// Result is the outcome of one turn.
type Result struct {
	Checkpoint *domain.Checkpoint
	// Output is the designated output field, "" when unset.
	Output string
}

func (e *Engine) result(cp *domain.Checkpoint) *Result {
	return &Result{Checkpoint: cp, Output: e.Output(cp.State)}
}

// Invoke runs one full turn for the session: it derives the initial state
// from the latest checkpoint according to the reset policy, applies seed and
// drives the graph to END. A run left in flight by an earlier failure is
// superseded by the new turn.
func (e *Engine) Invoke(ctx context.Context, sessionID string, seed domain.Update) (*Result, error) {
	var out *Result
	err := e.sessions.WithLock(ctx, sessionID, func(ctx context.Context, store ports.CheckpointStore) error {
		base := e.graph.Schema().Init()
		var after int64

		latest, err := store.LoadLatest(ctx, sessionID)
		switch {
		case err == nil:
			after = latest.Sequence
			if !latest.IsComplete() {
				e.logger.Warn("Superseding in-flight run", "session_id", sessionID, "run_id", latest.RunID, "seq", latest.Sequence)
			}
			if e.reset == Accumulate {
				base = domain.CloneValues(latest.State)
			} else {
				base = e.graph.Schema().Reset(latest.State)
			}
		case errors.Is(err, domain.ErrNoHistory):
		default:
			return &domain.PersistenceError{SessionID: sessionID, Op: "load", Err: err}
		}

		state, err := e.executor.Merger().Seed(base, seed)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}

		runID := e.newRunID()
		e.logger.Debug("Starting run", "session_id", sessionID, "run_id", runID, "seq", after+1)
		cp, err := e.executor.Start(ctx, store, runtime.StartRequest{
			SessionID: sessionID,
			RunID:     runID,
			After:     after,
			State:     state,
		})
		if err != nil {
			return err
		}
		out = e.result(cp)
		return nil
	})
	return out, err
}

// Resume continues the session's in-flight run from its latest checkpoint.
// For a completed run it returns the stored result without executing
// anything. A session without history yields domain.ErrNoHistory.
func (e *Engine) Resume(ctx context.Context, sessionID string) (*Result, error) {
	var out *Result
	err := e.sessions.WithLock(ctx, sessionID, func(ctx context.Context, store ports.CheckpointStore) error {
		latest, err := store.LoadLatest(ctx, sessionID)
		if errors.Is(err, domain.ErrNoHistory) {
			return err
		}
		if err != nil {
			return &domain.PersistenceError{SessionID: sessionID, Op: "load", Err: err}
		}
		if !latest.IsComplete() {
			e.logger.Info("Resuming run", "session_id", sessionID, "run_id", latest.RunID, "wavefront", latest.Wavefront)
		}
		cp, err := e.executor.Resume(ctx, store, latest)
		if err != nil {
			return err
		}
		out = e.result(cp)
		return nil
	})
	return out, err
}

// Pending reports whether the session has a run left in flight.
func (e *Engine) Pending(ctx context.Context, sessionID string) (bool, error) {
	latest, err := e.Latest(ctx, sessionID)
	if errors.Is(err, domain.ErrNoHistory) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !latest.IsComplete(), nil
}

// Latest returns the session's newest checkpoint.
func (e *Engine) Latest(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	cp, err := e.sessions.LoadLatest(ctx, sessionID)
	if err != nil && !errors.Is(err, domain.ErrNoHistory) && !errors.Is(err, domain.ErrInvalidSessionID) {
		return nil, &domain.PersistenceError{SessionID: sessionID, Op: "load", Err: err}
	}
	return cp, err
}

// History returns every checkpoint of the session, oldest first.
func (e *Engine) History(ctx context.Context, sessionID string) ([]*domain.Checkpoint, error) {
	history, err := e.sessions.History(ctx, sessionID)
	if err != nil && !errors.Is(err, domain.ErrInvalidSessionID) {
		return nil, &domain.PersistenceError{SessionID: sessionID, Op: "history", Err: err}
	}
	return history, err
}

// Sessions lists all sessions with history.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// Delete drops the session's whole history.
func (e *Engine) Delete(ctx context.Context, sessionID string) error {
	return e.sessions.Delete(ctx, sessionID)
}

// Graph returns the executed graph for introspection.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// Output extracts the designated output field from a state record.
func (e *Engine) Output(state map[string]any) string {
	if e.outputField == "" {
		return ""
	}
	switch v := state[e.outputField].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
