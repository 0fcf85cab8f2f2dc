package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Himanshu040604/PregelFlow/pkg/adapters/memory"
	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	"github.com/Himanshu040604/PregelFlow/pkg/ports"
	"github.com/Himanshu040604/PregelFlow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s SlowStore) LoadLatest(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.LoadLatest(ctx, sessionID)
}

func (s SlowStore) Save(ctx context.Context, cp *domain.Checkpoint) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Save(ctx, cp)
}

// next appends latest+1 as a read-modify-write cycle.
func next(ctx context.Context, store ports.CheckpointStore, id string) error {
	seq := int64(0)
	latest, err := store.LoadLatest(ctx, id)
	switch {
	case err == nil:
		seq = latest.Sequence
	case !errors.Is(err, domain.ErrNoHistory):
		return err
	}
	return store.Save(ctx, &domain.Checkpoint{SessionID: id, Sequence: seq + 1, CreatedAt: time.Now()})
}

func TestManager_SerializesReadModifyWrite(t *testing.T) {
	manager := session.NewManager(SlowStore{memory.NewStore()})
	ctx := context.Background()
	id := "race-test"

	var wg sync.WaitGroup
	writers := 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, id, func(ctx context.Context, store ports.CheckpointStore) error {
				return next(ctx, store, id)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	latest, err := manager.LoadLatest(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, writers, latest.Sequence, "no update lost")

	history, err := manager.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, writers)
}

func TestManager_SessionsDoNotBlockEachOther(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	held := make(chan struct{})
	releaseA := make(chan struct{})
	go func() {
		_ = manager.WithLock(ctx, "a", func(context.Context, ports.CheckpointStore) error {
			close(held)
			<-releaseA
			return nil
		})
	}()
	<-held

	done := make(chan error, 1)
	go func() {
		done <- manager.WithLock(ctx, "b", func(context.Context, ports.CheckpointStore) error { return nil })
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("session b blocked behind session a")
	}
	close(releaseA)
}

func TestManager_ReadsDoNotWaitForWriter(t *testing.T) {
	store := memory.NewStore()
	manager := session.NewManager(store)
	ctx := context.Background()
	require.NoError(t, next(ctx, store, "busy"))

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = manager.WithLock(ctx, "busy", func(context.Context, ports.CheckpointStore) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	done := make(chan error, 1)
	go func() {
		_, err := manager.LoadLatest(ctx, "busy")
		done <- err
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("LoadLatest waited for the session lock")
	}
}

func TestManager_RejectsInvalidSessionID(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	err := manager.WithLock(context.Background(), "../etc", func(context.Context, ports.CheckpointStore) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSessionID)
}

type countingLocker struct {
	locks, unlocks atomic.Int32
	ttl            time.Duration
	fail           error
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.fail != nil {
		return nil, l.fail
	}
	l.locks.Add(1)
	l.ttl = ttl
	return func(context.Context) error {
		l.unlocks.Add(1)
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &countingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(5*time.Second))
	ctx := context.Background()

	require.NoError(t, manager.Save(ctx, &domain.Checkpoint{SessionID: "s", Sequence: 1, CreatedAt: time.Now()}))
	_, err := manager.LoadLatest(ctx, "s")
	require.NoError(t, err)
	assert.EqualValues(t, 1, locker.locks.Load(), "reads skip the lock")
	require.NoError(t, manager.Delete(ctx, "s"))

	assert.EqualValues(t, 2, locker.locks.Load())
	assert.EqualValues(t, 2, locker.unlocks.Load())
	assert.Equal(t, 5*time.Second, locker.ttl)

	failing := session.NewManager(memory.NewStore(), session.WithLocker(&countingLocker{fail: errors.New("redis down")}))
	err = failing.Delete(ctx, "s")
	assert.ErrorContains(t, err, "distributed lock")
}

func TestManager_CancelledContext(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := manager.WithLock(ctx, "s", func(context.Context, ports.CheckpointStore) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
