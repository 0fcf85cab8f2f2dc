package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Himanshu040604/PregelFlow/internal/logging"
	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	"github.com/Himanshu040604/PregelFlow/pkg/graph"
	"github.com/Himanshu040604/PregelFlow/pkg/merge"
	"github.com/Himanshu040604/PregelFlow/pkg/ports"
	"golang.org/x/sync/errgroup"
)

// Executor runs a graph to completion one wavefront at a time. It holds no
// per-run state and is safe for concurrent use on different sessions; the
// caller guarantees a single writer per session.
type Executor struct {
	graph       *graph.Graph
	merger      *merge.Engine
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	nodeTimeout time.Duration
	now         func() time.Time
}

// NewExecutor creates an executor for a validated graph.
func NewExecutor(g *graph.Graph, opts ...ExecutorOption) *Executor {
	e := &Executor{
		graph:  g,
		merger: merge.New(g.Schema()),
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Graph returns the executed graph.
func (e *Executor) Graph() *graph.Graph { return e.graph }

// Merger returns the merge engine bound to the graph's schema.
func (e *Executor) Merger() *merge.Engine { return e.merger }

// StartRequest describes a new run.
type StartRequest struct {
	SessionID string
	RunID     string
	// After is the session's latest sequence, zero for a fresh session.
	After int64
	// State is the run's initial shared state, already seeded.
	State map[string]any
}

// Start commits the run's input checkpoint (wavefront 0, nothing
// completed) and drives the run to END.
func (e *Executor) Start(ctx context.Context, store ports.CheckpointStore, req StartRequest) (*domain.Checkpoint, error) {
	if err := e.graph.Schema().Validate(req.State); err != nil {
		return nil, fmt.Errorf("invalid initial state: %w", err)
	}
	input := &domain.Checkpoint{
		SessionID: req.SessionID,
		Sequence:  req.After + 1,
		RunID:     req.RunID,
		Status:    domain.RunRunning,
		Wavefront: 0,
		State:     domain.CloneValues(req.State),
		Completed: []string{},
		CreatedAt: e.now(),
	}
	if err := e.commit(ctx, store, input, nil); err != nil {
		return nil, err
	}
	return e.Resume(ctx, store, input)
}

// Resume drives an in-flight run from its latest checkpoint. Nodes already
// recorded as completed are never re-invoked. A completed checkpoint is
// returned unchanged.
func (e *Executor) Resume(ctx context.Context, store ports.CheckpointStore, cp *domain.Checkpoint) (result *domain.Checkpoint, err error) {
	if cp.IsComplete() {
		return cp, nil
	}
	if verr := e.graph.Schema().Validate(cp.State); verr != nil {
		return nil, &domain.PersistenceError{SessionID: cp.SessionID, Op: "load", Err: fmt.Errorf("checkpoint %d is corrupt: %w", cp.Sequence, verr)}
	}

	log := e.logger.With("session_id", cp.SessionID, "run_id", cp.RunID)
	started := e.now()
	defer func() {
		status := domain.RunRunning
		if err == nil {
			status = domain.RunCompleted
			log.Info("Run completed", "seq", result.Sequence, "duration", time.Since(started))
		} else {
			log.Error("Run aborted", "err", err)
		}
		if e.hooks.OnRunFinish != nil {
			e.hooks.OnRunFinish(ctx, &domain.RunEvent{
				EventBase: e.event(domain.EventRunFinish, cp),
				Status:    status,
				Duration:  time.Since(started),
				Err:       err,
			})
		}
	}()

	current := cp.Clone()
	for {
		ready := e.readySet(current.CompletedSet())
		if len(ready) == 0 {
			// Only reachable for a running checkpoint whose every node is
			// done, e.g. written by a crashed process before its final commit.
			return e.finish(ctx, store, current)
		}
		next, err := e.step(ctx, store, current, ready, log)
		if err != nil {
			return nil, err
		}
		current = next
		if current.IsComplete() {
			return current, nil
		}
	}
}

// readySet returns the nodes, in declaration order, that have not completed
// and whose every predecessor has.
func (e *Executor) readySet(completed map[string]bool) []string {
	var ready []string
	for _, n := range e.graph.Nodes() {
		if completed[n.ID] {
			continue
		}
		unmet := 0
		for _, p := range e.graph.Predecessors(n.ID) {
			if !completed[p] {
				unmet++
			}
		}
		if unmet == 0 {
			ready = append(ready, n.ID)
		}
	}
	return ready
}

type outcome struct {
	update domain.Update
	err    error
}

// step runs one wavefront: fan out, barrier, merge, commit.
func (e *Executor) step(ctx context.Context, store ports.CheckpointStore, cp *domain.Checkpoint, ready []string, log *slog.Logger) (*domain.Checkpoint, error) {
	wave := cp.Wavefront + 1
	log = log.With("wavefront", wave)

	outcomes := make([]outcome, len(ready))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ready {
		node, _ := e.graph.Node(id)
		snapshot := domain.NewSnapshot(cp.State)
		g.Go(func() error {
			update, err := e.runNode(gctx, cp, node, wave, snapshot, log)
			outcomes[i] = outcome{update: update, err: err}
			if err != nil && !node.Optional {
				return &domain.ExecutionError{SessionID: cp.SessionID, RunID: cp.RunID, NodeID: id, Wavefront: wave, Err: err}
			}
			return nil
		})
	}
	werr := g.Wait()

	// Barrier reached. A cancelled run commits nothing of this wavefront.
	if err := ctx.Err(); err != nil {
		return nil, &domain.ExecutionError{SessionID: cp.SessionID, RunID: cp.RunID, Wavefront: wave, Err: err}
	}
	if werr != nil {
		return nil, werr
	}

	contribs := make([]merge.Contribution, 0, len(ready))
	for i, id := range ready {
		node, _ := e.graph.Node(id)
		o := outcomes[i]
		if o.err != nil {
			log.Warn("Optional node failed, continuing without its update", "node_id", id, "err", o.err)
			continue
		}
		c := merge.Contribution{NodeID: id, Writes: node.Writes, Update: o.update}
		if err := e.merger.Validate(c); err != nil {
			if node.Optional {
				log.Warn("Optional node returned an invalid update, discarding it", "node_id", id, "err", err)
				continue
			}
			return nil, &domain.ExecutionError{SessionID: cp.SessionID, RunID: cp.RunID, NodeID: id, Wavefront: wave, Err: err}
		}
		contribs = append(contribs, c)
	}

	state, err := e.merger.Apply(cp.State, contribs)
	if err != nil {
		return nil, &domain.ExecutionError{SessionID: cp.SessionID, RunID: cp.RunID, Wavefront: wave, Err: err}
	}

	completed := append(slices.Clone(cp.Completed), ready...)
	status := domain.RunRunning
	if len(completed) == len(e.graph.Nodes()) {
		status = domain.RunCompleted
	}
	next := &domain.Checkpoint{
		SessionID: cp.SessionID,
		Sequence:  cp.Sequence + 1,
		RunID:     cp.RunID,
		Status:    status,
		Wavefront: wave,
		State:     state,
		Completed: completed,
		CreatedAt: e.now(),
	}
	if err := e.commit(ctx, store, next, ready); err != nil {
		return nil, err
	}
	log.Info("Wavefront committed", "seq", next.Sequence, "nodes", len(ready))
	return next, nil
}

// runNode executes one task, converting panics to errors.
func (e *Executor) runNode(ctx context.Context, cp *domain.Checkpoint, node graph.Node, wave int, snapshot domain.Snapshot, log *slog.Logger) (update domain.Update, err error) {
	if e.nodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.nodeTimeout)
		defer cancel()
	}

	ev := &domain.NodeEvent{
		EventBase: e.event(domain.EventNodeStart, cp),
		NodeID:    node.ID,
		Wavefront: wave,
		Optional:  node.Optional,
	}
	if e.hooks.OnNodeStart != nil {
		e.hooks.OnNodeStart(ctx, ev)
	}
	log.Debug("Node started", "node_id", node.ID)

	started := e.now()
	defer func() {
		if r := recover(); r != nil {
			update, err = nil, fmt.Errorf("node panicked: %v", r)
		}
		if err == nil && e.nodeTimeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			// A task that ignores its deadline still counts as timed out.
			update, err = nil, fmt.Errorf("node exceeded timeout %s: %w", e.nodeTimeout, ctx.Err())
		}
		log.Debug("Node finished", "node_id", node.ID, "duration", time.Since(started), "err", err)
		if e.hooks.OnNodeFinish != nil {
			done := *ev
			done.EventBase = e.event(domain.EventNodeFinish, cp)
			done.Duration = time.Since(started)
			done.Err = err
			e.hooks.OnNodeFinish(ctx, &done)
		}
	}()

	return node.Run(ctx, snapshot)
}

// finish marks a run whose nodes have all completed.
func (e *Executor) finish(ctx context.Context, store ports.CheckpointStore, cp *domain.Checkpoint) (*domain.Checkpoint, error) {
	next := cp.Clone()
	next.Sequence++
	next.Status = domain.RunCompleted
	next.CreatedAt = e.now()
	if err := e.commit(ctx, store, next, nil); err != nil {
		return nil, err
	}
	return next, nil
}

// commit persists cp before the wavefront is reported complete.
func (e *Executor) commit(ctx context.Context, store ports.CheckpointStore, cp *domain.Checkpoint, nodes []string) error {
	if err := store.Save(ctx, cp); err != nil {
		return &domain.PersistenceError{SessionID: cp.SessionID, Op: "save", Err: err}
	}
	if e.hooks.OnCommit != nil {
		e.hooks.OnCommit(ctx, &domain.CommitEvent{
			EventBase: e.event(domain.EventCommit, cp),
			Sequence:  cp.Sequence,
			Wavefront: cp.Wavefront,
			Nodes:     slices.Clone(nodes),
			Status:    cp.Status,
		})
	}
	return nil
}

func (e *Executor) event(t domain.EventType, cp *domain.Checkpoint) domain.EventBase {
	return domain.EventBase{
		Timestamp: e.now(),
		Type:      t,
		SessionID: cp.SessionID,
		RunID:     cp.RunID,
	}
}
