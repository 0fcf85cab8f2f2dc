package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"
	"time"

	"github.com/Himanshu040604/PregelFlow/pkg/adapters/memory"
	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	"github.com/Himanshu040604/PregelFlow/pkg/persistence/middleware"
	"github.com/Himanshu040604/PregelFlow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func checkpoint(session string, seq int64, state map[string]any) *domain.Checkpoint {
	return &domain.Checkpoint{
		SessionID: session,
		Sequence:  seq,
		RunID:     "run",
		Status:    domain.RunRunning,
		State:     state,
		Completed: []string{"weather_agent"},
		CreatedAt: time.Now(),
	}
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunCheckpointStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := memory.NewStore()
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	sessionID := "test-session"
	require.NoError(t, secureStore.Save(ctx, checkpoint(sessionID, 1, map[string]any{"secret": "my-secret-sauce"})))

	// The backing store only sees the envelope.
	stored, err := underlyingStore.LoadLatest(ctx, sessionID)
	require.NoError(t, err)
	assert.NotContains(t, stored.State, "secret")
	assert.Contains(t, stored.State, middleware.EnvelopeKey)
	assert.Empty(t, stored.Completed)
	assert.EqualValues(t, 1, stored.Sequence, "metadata stays readable")

	loaded, err := secureStore.LoadLatest(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "my-secret-sauce", loaded.State["secret"])
	assert.Equal(t, []string{"weather_agent"}, loaded.Completed)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureStoreOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)

	ctx := context.Background()
	sessionID := "rotation-session"
	require.NoError(t, secureStoreOld.Save(ctx, checkpoint(sessionID, 1, map[string]any{"data": "encrypted-with-old-key"})))

	secureStoreNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	loaded, err := secureStoreNew.LoadLatest(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "encrypted-with-old-key", loaded.State["data"])

	require.NoError(t, secureStoreNew.Save(ctx, checkpoint(sessionID, 2, map[string]any{"data": "encrypted-with-new-key"})))

	history, err := secureStoreNew.History(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "encrypted-with-new-key", history[1].State["data"])

	_, err = secureStoreOld.LoadLatest(ctx, sessionID)
	assert.Error(t, err, "old key alone cannot read new checkpoints")
}

func TestEncryptionMiddleware_RejectsPlainCheckpoint(t *testing.T) {
	underlyingStore := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlyingStore.Save(ctx, checkpoint("plain", 1, map[string]any{"topic": "x"})))

	secureStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	_, err := secureStore.LoadLatest(ctx, "plain")
	assert.ErrorContains(t, err, "envelope")
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	})
}
