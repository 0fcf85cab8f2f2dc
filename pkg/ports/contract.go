package ports

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCheckpointStoreContract runs a suite of tests to verify that a
// CheckpointStore implementation adheres to the interface contract.
func RunCheckpointStoreContract(t *testing.T, store CheckpointStore) {
	t.Helper()
	ctx := context.Background()
	base := "contract-" + time.Now().Format("20060102150405.000000")

	checkpoint := func(session string, seq int64, status domain.RunStatus) *domain.Checkpoint {
		return &domain.Checkpoint{
			SessionID: session,
			Sequence:  seq,
			RunID:     "run-1",
			Status:    status,
			Wavefront: int(seq),
			State: map[string]any{
				"topic":   "London",
				"results": []any{fmt.Sprintf("result-%d", seq)},
			},
			Completed: []string{fmt.Sprintf("node-%d", seq)},
			CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		}
	}

	t.Run("LoadLatest Fresh Session", func(t *testing.T) {
		_, err := store.LoadLatest(ctx, base+"-fresh")
		assert.ErrorIs(t, err, domain.ErrNoHistory)

		history, err := store.History(ctx, base+"-fresh")
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("Save and LoadLatest", func(t *testing.T) {
		id := base + "-save"
		require.NoError(t, store.Save(ctx, checkpoint(id, 1, domain.RunRunning)))
		require.NoError(t, store.Save(ctx, checkpoint(id, 2, domain.RunCompleted)))

		latest, err := store.LoadLatest(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, latest.SessionID)
		assert.EqualValues(t, 2, latest.Sequence)
		assert.Equal(t, "run-1", latest.RunID)
		assert.Equal(t, domain.RunCompleted, latest.Status)
		assert.Equal(t, 2, latest.Wavefront)
		assert.Equal(t, "London", latest.State["topic"])
		assert.Equal(t, []any{"result-2"}, latest.State["results"])
		assert.Equal(t, []string{"node-2"}, latest.Completed)
		assert.False(t, latest.CreatedAt.IsZero())
	})

	t.Run("History Is Ordered", func(t *testing.T) {
		id := base + "-history"
		for seq := int64(1); seq <= 3; seq++ {
			require.NoError(t, store.Save(ctx, checkpoint(id, seq, domain.RunRunning)))
		}
		history, err := store.History(ctx, id)
		require.NoError(t, err)
		require.Len(t, history, 3)
		for i, cp := range history {
			assert.EqualValues(t, i+1, cp.Sequence)
		}
	})

	t.Run("Rejects Stale Sequence", func(t *testing.T) {
		id := base + "-stale"
		require.NoError(t, store.Save(ctx, checkpoint(id, 1, domain.RunRunning)))
		require.NoError(t, store.Save(ctx, checkpoint(id, 2, domain.RunRunning)))

		err := store.Save(ctx, checkpoint(id, 2, domain.RunRunning))
		assert.ErrorIs(t, err, domain.ErrSequenceConflict)
		err = store.Save(ctx, checkpoint(id, 1, domain.RunRunning))
		assert.ErrorIs(t, err, domain.ErrSequenceConflict)

		history, err := store.History(ctx, id)
		require.NoError(t, err)
		assert.Len(t, history, 2, "rejected saves leave history intact")
	})

	t.Run("Returned Checkpoints Are Copies", func(t *testing.T) {
		id := base + "-copy"
		cp := checkpoint(id, 1, domain.RunRunning)
		require.NoError(t, store.Save(ctx, cp))
		cp.State["topic"] = "mutated"

		loaded, err := store.LoadLatest(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "London", loaded.State["topic"])
		loaded.State["topic"] = "mutated again"

		again, err := store.LoadLatest(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "London", again.State["topic"])
	})

	t.Run("Sessions Are Independent", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make([]error, 4)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("%s-par-%d", base, i)
				for seq := int64(1); seq <= 3; seq++ {
					if err := store.Save(ctx, checkpoint(id, seq, domain.RunRunning)); err != nil {
						errs[i] = err
						return
					}
				}
			}(i)
		}
		wg.Wait()
		for i, err := range errs {
			require.NoError(t, err)
			latest, err := store.LoadLatest(ctx, fmt.Sprintf("%s-par-%d", base, i))
			require.NoError(t, err)
			assert.EqualValues(t, 3, latest.Sequence)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		id := base + "-delete"
		require.NoError(t, store.Save(ctx, checkpoint(id, 1, domain.RunRunning)))
		require.NoError(t, store.Delete(ctx, id))

		_, err := store.LoadLatest(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNoHistory, "LoadLatest after Delete should return ErrNoHistory")

		require.NoError(t, store.Delete(ctx, id), "deleting twice is fine")
		require.NoError(t, store.Save(ctx, checkpoint(id, 1, domain.RunRunning)), "sequence restarts after delete")
	})

	t.Run("List", func(t *testing.T) {
		id1 := base + "-list-1"
		id2 := base + "-list-2"
		require.NoError(t, store.Save(ctx, checkpoint(id1, 1, domain.RunRunning)))
		require.NoError(t, store.Save(ctx, checkpoint(id2, 1, domain.RunRunning)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
