package runtime_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Himanshu040604/PregelFlow/internal/runtime"
	"github.com/Himanshu040604/PregelFlow/pkg/adapters/memory"
	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	"github.com/Himanshu040604/PregelFlow/pkg/graph"
	"github.com/Himanshu040604/PregelFlow/pkg/ports"
	"github.com/Himanshu040604/PregelFlow/pkg/schema"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *schema.Schema {
	return schema.MustNew(
		schema.Field{Name: "topic", Type: schema.String(), Policy: schema.Replace},
		schema.Field{Name: "results", Type: schema.String(), Policy: schema.Append},
		schema.Field{Name: "report", Type: schema.String(), Policy: schema.Replace},
	)
}

// fanIn wires roots -> join -> END. Roots and join are supplied by the test.
func fanIn(t *testing.T, roots map[string]graph.NodeFunc, optional map[string]bool, join graph.NodeFunc) *graph.Graph {
	t.Helper()
	b := graph.New(testSchema())
	for _, id := range []string{"a", "b", "c"} {
		fn, ok := roots[id]
		if !ok {
			continue
		}
		nb := b.Node(id, fn).Writes("results").From(graph.START).To("join")
		if optional[id] {
			nb.Optional()
		}
	}
	b.Node("join", join).Writes("report").To(graph.END)
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func appendTopic(label string) graph.NodeFunc {
	return func(ctx context.Context, s domain.Snapshot) (domain.Update, error) {
		return domain.Update{"results": label + ":" + s.String("topic")}, nil
	}
}

func joinResults(ctx context.Context, s domain.Snapshot) (domain.Update, error) {
	return domain.Update{"report": strings.Join(s.Strings("results"), "|")}, nil
}

func seed(topic string) map[string]any {
	state := testSchema().Init()
	state["topic"] = topic
	return state
}

func start(t *testing.T, ex *runtime.Executor, store ports.CheckpointStore, session string) (*domain.Checkpoint, error) {
	t.Helper()
	return ex.Start(context.Background(), store, runtime.StartRequest{
		SessionID: session,
		RunID:     "run-1",
		State:     seed("London"),
	})
}

func TestExecutor_RunsToCompletion(t *testing.T) {
	g := fanIn(t, map[string]graph.NodeFunc{"a": appendTopic("a"), "b": appendTopic("b"), "c": appendTopic("c")}, nil, joinResults)
	store := memory.NewStore()

	cp, err := start(t, runtime.NewExecutor(g), store, "s1")
	require.NoError(t, err)
	assert.True(t, cp.IsComplete())
	assert.Equal(t, "a:London|b:London|c:London", cp.State["report"])
	assert.ElementsMatch(t, []string{"a", "b", "c", "join"}, cp.Completed)

	history, err := store.History(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, history, 3, "input checkpoint plus one per wavefront")
	for i, h := range history {
		assert.EqualValues(t, i+1, h.Sequence)
		assert.Equal(t, i, h.Wavefront)
	}
	assert.Empty(t, history[0].Completed)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, history[1].Completed)
	assert.Equal(t, domain.RunRunning, history[1].Status)
	assert.Len(t, history[1].State["results"], 3)
	_, hasReport := history[1].State["report"]
	assert.False(t, hasReport)
}

func TestExecutor_ConcurrentAppendsAreAllPreserved(t *testing.T) {
	jitter := func(label string) graph.NodeFunc {
		return func(ctx context.Context, s domain.Snapshot) (domain.Update, error) {
			time.Sleep(time.Duration(rand.IntN(3000)) * time.Microsecond)
			return domain.Update{"results": []string{label}}, nil
		}
	}
	g := fanIn(t, map[string]graph.NodeFunc{"a": jitter("a"), "b": jitter("b"), "c": jitter("c")}, nil, joinResults)

	for i := 0; i < 25; i++ {
		cp, err := start(t, runtime.NewExecutor(g), memory.NewStore(), "s")
		require.NoError(t, err)
		assert.Len(t, cp.State["results"], 3)
		assert.ElementsMatch(t, []any{"a", "b", "c"}, cp.State["results"])
	}
}

func TestExecutor_BarrierExposesAllPredecessorOutputs(t *testing.T) {
	slow := func(ctx context.Context, s domain.Snapshot) (domain.Update, error) {
		time.Sleep(30 * time.Millisecond)
		return domain.Update{"results": "slow"}, nil
	}
	var seen []string
	join := func(ctx context.Context, s domain.Snapshot) (domain.Update, error) {
		seen = s.Strings("results")
		return domain.Update{"report": "ok"}, nil
	}
	g := fanIn(t, map[string]graph.NodeFunc{"a": appendTopic("a"), "b": slow, "c": appendTopic("c")}, nil, join)

	_, err := start(t, runtime.NewExecutor(g), memory.NewStore(), "s")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a:London", "slow", "c:London"}, seen)
}

func TestExecutor_SnapshotsAreReadOnly(t *testing.T) {
	mutate := func(ctx context.Context, s domain.Snapshot) (domain.Update, error) {
		s.Values()["topic"] = "tampered"
		return domain.Update{"results": "a"}, nil
	}
	g := fanIn(t, map[string]graph.NodeFunc{"a": mutate, "b": appendTopic("b")}, nil, joinResults)

	cp, err := start(t, runtime.NewExecutor(g), memory.NewStore(), "s")
	require.NoError(t, err)
	assert.Equal(t, "London", cp.State["topic"])
	assert.Equal(t, "a|b:London", cp.State["report"])
}

func TestExecutor_RequiredFailureAbortsWithoutCommit(t *testing.T) {
	boom := errors.New("boom")
	var siblingCancelled atomic.Bool
	blocker := func(ctx context.Context, s domain.Snapshot) (domain.Update, error) {
		select {
		case <-ctx.Done():
			siblingCancelled.Store(true)
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return domain.Update{"results": "late"}, nil
		}
	}
	fail := func(ctx context.Context, s domain.Snapshot) (domain.Update, error) { return nil, boom }
	joined := false
	join := func(ctx context.Context, s domain.Snapshot) (domain.Update, error) {
		joined = true
		return nil, nil
	}
	g := fanIn(t, map[string]graph.NodeFunc{"a": blocker, "b": fail}, nil, join)
	store := memory.NewStore()

	_, err := start(t, runtime.NewExecutor(g), store, "s")
	require.Error(t, err)

	var ee *domain.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "b", ee.NodeID)
	assert.Equal(t, 1, ee.Wavefront)
	assert.ErrorIs(t, err, boom)
	assert.True(t, siblingCancelled.Load(), "siblings are cancelled")
	assert.False(t, joined)

	history, err := store.History(context.Background(), "s")
	require.NoError(t, err)
	require.Len(t, history, 1, "only the input checkpoint survives")
	assert.Equal(t, domain.RunRunning, history[0].Status)
}

func TestExecutor_OptionalFailureIsAbsentUpdate(t *testing.T) {
	fail := func(ctx context.Context, s domain.Snapshot) (domain.Update, error) { return nil, errors.New("api down") }
	panics := func(ctx context.Context, s domain.Snapshot) (domain.Update, error) { panic("nil map") }
	g := fanIn(t,
		map[string]graph.NodeFunc{"a": appendTopic("a"), "b": fail, "c": panics},
		map[string]bool{"b": true, "c": true},
		joinResults,
	)

	cp, err := start(t, runtime.NewExecutor(g), memory.NewStore(), "s")
	require.NoError(t, err)
	assert.Equal(t, "a:London", cp.State["report"])
	assert.Contains(t, cp.Completed, "b", "a failed optional node still counts as run")
}

func TestExecutor_RequiredPanicIsExecutionError(t *testing.T) {
	panics := func(ctx context.Context, s domain.Snapshot) (domain.Update, error) { panic("kaboom") }
	g := fanIn(t, map[string]graph.NodeFunc{"a": appendTopic("a")}, nil, panics)

	_, err := start(t, runtime.NewExecutor(g), memory.NewStore(), "s")
	var ee *domain.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "join", ee.NodeID)
	assert.ErrorContains(t, err, "kaboom")
}

func TestExecutor_InvalidUpdates(t *testing.T) {
	writesReport := func(ctx context.Context, s domain.Snapshot) (domain.Update, error) {
		return domain.Update{"report": "not mine"}, nil
	}

	// Optional: discarded.
	g := fanIn(t, map[string]graph.NodeFunc{"a": appendTopic("a"), "b": writesReport}, map[string]bool{"b": true}, joinResults)
	cp, err := start(t, runtime.NewExecutor(g), memory.NewStore(), "s")
	require.NoError(t, err)
	assert.Equal(t, "a:London", cp.State["report"])

	// Required: aborts.
	g = fanIn(t, map[string]graph.NodeFunc{"a": appendTopic("a"), "b": writesReport}, nil, joinResults)
	_, err = start(t, runtime.NewExecutor(g), memory.NewStore(), "s")
	var ee *domain.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "b", ee.NodeID)
}

func TestExecutor_CancellationLeavesLastMergedState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var once sync.Once
	blocker := func(ctx context.Context, s domain.Snapshot) (domain.Update, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return domain.Update{"results": "partial"}, nil
	}
	g := fanIn(t, map[string]graph.NodeFunc{"a": blocker, "b": blocker}, map[string]bool{"a": true, "b": true}, joinResults)
	store := memory.NewStore()

	go func() {
		<-started
		cancel()
	}()
	_, err := runtime.NewExecutor(g).Start(ctx, store, runtime.StartRequest{SessionID: "s", RunID: "r", State: seed("x")})

	var ee *domain.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Empty(t, ee.NodeID)
	assert.ErrorIs(t, err, context.Canceled)

	latest, err := store.LoadLatest(context.Background(), "s")
	require.NoError(t, err)
	assert.EqualValues(t, 1, latest.Sequence, "no partial wavefront is checkpointed")
	assert.Equal(t, []any{}, latest.State["results"])
}

func TestExecutor_NodeTimeout(t *testing.T) {
	hang := func(ctx context.Context, s domain.Snapshot) (domain.Update, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	ignoresDeadline := func(ctx context.Context, s domain.Snapshot) (domain.Update, error) {
		time.Sleep(60 * time.Millisecond)
		return domain.Update{"results": "too late"}, nil
	}
	g := fanIn(t,
		map[string]graph.NodeFunc{"a": appendTopic("a"), "b": hang, "c": ignoresDeadline},
		map[string]bool{"b": true, "c": true},
		joinResults,
	)

	cp, err := start(t, runtime.NewExecutor(g, runtime.WithNodeTimeout(20*time.Millisecond)), memory.NewStore(), "s")
	require.NoError(t, err)
	assert.Equal(t, "a:London", cp.State["report"])
}

// failingStore fails every Save after the first n.
type failingStore struct {
	ports.CheckpointStore
	n     int
	saves int
}

func (f *failingStore) Save(ctx context.Context, cp *domain.Checkpoint) error {
	f.saves++
	if f.saves > f.n {
		return errors.New("disk full")
	}
	return f.CheckpointStore.Save(ctx, cp)
}

func TestExecutor_PersistenceError(t *testing.T) {
	g := fanIn(t, map[string]graph.NodeFunc{"a": appendTopic("a")}, nil, joinResults)
	store := &failingStore{CheckpointStore: memory.NewStore(), n: 1}

	_, err := start(t, runtime.NewExecutor(g), store, "s")
	var pe *domain.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "save", pe.Op)
	assert.True(t, domain.IsRunError(err))

	latest, err := store.LoadLatest(context.Background(), "s")
	require.NoError(t, err)
	assert.EqualValues(t, 1, latest.Sequence, "previous checkpoints untouched")
}

func TestExecutor_ResumeSkipsCompletedNodes(t *testing.T) {
	var calls sync.Map
	counted := func(label string, next graph.NodeFunc) graph.NodeFunc {
		return func(ctx context.Context, s domain.Snapshot) (domain.Update, error) {
			n, _ := calls.LoadOrStore(label, new(atomic.Int32))
			n.(*atomic.Int32).Add(1)
			return next(ctx, s)
		}
	}
	roots := map[string]graph.NodeFunc{
		"a": counted("a", appendTopic("a")),
		"b": counted("b", appendTopic("b")),
		"c": counted("c", appendTopic("c")),
	}
	g := fanIn(t, roots, nil, counted("join", joinResults))

	// Crash right after wavefront 1 commits: input + wave 1 succeed.
	backing := memory.NewStore()
	crashing := &failingStore{CheckpointStore: backing, n: 2}
	_, err := start(t, runtime.NewExecutor(g), crashing, "s")
	require.Error(t, err)

	latest, err := backing.LoadLatest(context.Background(), "s")
	require.NoError(t, err)
	require.Equal(t, 1, latest.Wavefront)

	resumed, err := runtime.NewExecutor(g).Resume(context.Background(), backing, latest)
	require.NoError(t, err)
	assert.True(t, resumed.IsComplete())

	for _, id := range []string{"a", "b", "c"} {
		n, _ := calls.Load(id)
		assert.EqualValues(t, 1, n.(*atomic.Int32).Load(), "%s re-invoked", id)
	}

	// Same final state as an uninterrupted run.
	clean, err := start(t, runtime.NewExecutor(g), memory.NewStore(), "other")
	require.NoError(t, err)
	if diff := cmp.Diff(clean.State, resumed.State); diff != "" {
		t.Errorf("resumed state differs (-clean +resumed):\n%s", diff)
	}
}

func TestExecutor_ResumeCompletedIsNoop(t *testing.T) {
	g := fanIn(t, map[string]graph.NodeFunc{"a": appendTopic("a")}, nil, joinResults)
	store := memory.NewStore()
	cp, err := start(t, runtime.NewExecutor(g), store, "s")
	require.NoError(t, err)

	again, err := runtime.NewExecutor(g).Resume(context.Background(), store, cp)
	require.NoError(t, err)
	assert.Same(t, cp, again)

	history, err := store.History(context.Background(), "s")
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestExecutor_ResumeRejectsCorruptCheckpoint(t *testing.T) {
	g := fanIn(t, map[string]graph.NodeFunc{"a": appendTopic("a")}, nil, joinResults)
	cp := &domain.Checkpoint{SessionID: "s", Sequence: 4, Status: domain.RunRunning, State: map[string]any{"results": "not a list"}}

	_, err := runtime.NewExecutor(g).Resume(context.Background(), memory.NewStore(), cp)
	var pe *domain.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "load", pe.Op)
}

func TestExecutor_Idempotence(t *testing.T) {
	g := fanIn(t, map[string]graph.NodeFunc{"a": appendTopic("a"), "b": appendTopic("b"), "c": appendTopic("c")}, nil, joinResults)

	first, err := start(t, runtime.NewExecutor(g), memory.NewStore(), "one")
	require.NoError(t, err)
	second, err := start(t, runtime.NewExecutor(g), memory.NewStore(), "two")
	require.NoError(t, err)

	if diff := cmp.Diff(first.State, second.State); diff != "" {
		t.Errorf("fresh runs differ (-first +second):\n%s", diff)
	}
}

func TestExecutor_LifecycleHooks(t *testing.T) {
	var mu sync.Mutex
	var starts, finishes, commits, runs int
	var runStatus domain.RunStatus
	hooks := domain.LifecycleHooks{
		OnNodeStart:  func(context.Context, *domain.NodeEvent) { mu.Lock(); starts++; mu.Unlock() },
		OnNodeFinish: func(context.Context, *domain.NodeEvent) { mu.Lock(); finishes++; mu.Unlock() },
		OnCommit:     func(context.Context, *domain.CommitEvent) { mu.Lock(); commits++; mu.Unlock() },
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			mu.Lock()
			runs++
			runStatus = e.Status
			mu.Unlock()
		},
	}
	g := fanIn(t, map[string]graph.NodeFunc{"a": appendTopic("a"), "b": appendTopic("b")}, nil, joinResults)

	_, err := start(t, runtime.NewExecutor(g, runtime.WithLifecycleHooks(hooks)), memory.NewStore(), "s")
	require.NoError(t, err)
	assert.Equal(t, 3, starts)
	assert.Equal(t, 3, finishes)
	assert.Equal(t, 3, commits)
	assert.Equal(t, 1, runs)
	assert.Equal(t, domain.RunCompleted, runStatus)
}

func TestExecutor_StartRejectsInvalidState(t *testing.T) {
	g := fanIn(t, map[string]graph.NodeFunc{"a": appendTopic("a")}, nil, joinResults)
	_, err := runtime.NewExecutor(g).Start(context.Background(), memory.NewStore(), runtime.StartRequest{
		SessionID: "s",
		State:     map[string]any{"topic": 42},
	})
	assert.Error(t, err)
}
