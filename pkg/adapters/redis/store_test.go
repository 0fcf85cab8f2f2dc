package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/Himanshu040604/PregelFlow/pkg/adapters/redis"
	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	"github.com/Himanshu040604/PregelFlow/pkg/ports"
	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.CheckpointStore = (*redis.Store)(nil)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func checkpoint(id string, seq int64) *domain.Checkpoint {
	return &domain.Checkpoint{
		SessionID: id,
		Sequence:  seq,
		RunID:     "run",
		Status:    domain.RunRunning,
		State:     map[string]any{"topic": "London"},
		CreatedAt: time.Now(),
	}
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunCheckpointStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	// Create store with 1s TTL
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	sessionID := "session-ttl"

	require.NoError(t, store.Save(ctx, checkpoint(sessionID, 1)))

	sessions, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, sessions, sessionID)

	// Key expiration in miniredis is driven by FastForward.
	mr.FastForward(2 * time.Second)

	_, err = store.LoadLatest(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrNoHistory)

	// The index prune uses wall-clock time.
	time.Sleep(1200 * time.Millisecond)

	sessions, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, sessions)

	// Expired sessions start over at any sequence.
	assert.NoError(t, store.Save(ctx, checkpoint(sessionID, 1)))
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	sessionID := "my-session"

	require.NoError(t, store.Save(ctx, checkpoint(sessionID, 1)))

	assert.True(t, mr.Exists("custom:app:my-session:checkpoints"), "Expected list with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:my-session:seq"), "Expected sequence key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	seq, err := mr.Get("custom:app:my-session:seq")
	require.NoError(t, err)
	assert.Equal(t, "1", seq)

	list, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, list, sessionID)
}

func TestRedisStore_ConflictLeavesListUntouched(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, checkpoint("s", 5)))
	err := store.Save(ctx, checkpoint("s", 5))
	assert.ErrorIs(t, err, domain.ErrSequenceConflict)

	items, err := mr.List(redis.DefaultPrefix + "s:checkpoints")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
