package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Himanshu040604/PregelFlow/pkg/adapters/sqlite"
	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	"github.com/Himanshu040604/PregelFlow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.CheckpointStore = (*sqlite.Store)(nil)

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "cp.db"))
	require.NoError(t, err)
	defer store.Close()

	ports.RunCheckpointStoreContract(t, store)
}

func TestSQLiteStore_InMemory(t *testing.T) {
	store, err := sqlite.Open(sqlite.MemoryPath)
	require.NoError(t, err)
	defer store.Close()

	ports.RunCheckpointStoreContract(t, store)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cp.db")
	ctx := context.Background()

	store, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, &domain.Checkpoint{
		SessionID: "1",
		Sequence:  1,
		RunID:     "run",
		Status:    domain.RunCompleted,
		State:     map[string]any{"final_report": "done"},
		Completed: []string{"synthesizer"},
		CreatedAt: time.Now(),
	}))
	require.NoError(t, store.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	latest, err := reopened.LoadLatest(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "done", latest.State["final_report"])
	assert.True(t, latest.IsComplete())
	assert.Equal(t, path, reopened.Path())
}
