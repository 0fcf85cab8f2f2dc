package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignalManager_Lifecycle(t *testing.T) {
	sm := NewSignalManager(context.Background(), nil)
	defer sm.Stop()

	ctx1 := sm.Context()
	assert.NoError(t, ctx1.Err())

	sm.Interrupt()
	assert.ErrorIs(t, ctx1.Err(), context.Canceled)

	sm.Reset()
	ctx2 := sm.Context()
	assert.NotEqual(t, ctx1, ctx2, "Reset should generate a new context")
	assert.NoError(t, ctx2.Err())

	sm.Stop()
	assert.ErrorIs(t, ctx2.Err(), context.Canceled)
	sm.Stop()
}

func TestSignalManager_Source(t *testing.T) {
	src := make(chan struct{})
	sm := NewSignalManager(context.Background(), src)
	defer sm.Stop()

	src <- struct{}{}
	select {
	case <-sm.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("source did not interrupt")
	}
}

func TestSignalManager_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	sm := NewSignalManager(parent, nil)
	defer sm.Stop()

	cancel()
	assert.Error(t, sm.Context().Err())
}

func TestSignalManager_CheckRace(t *testing.T) {
	sm := NewSignalManager(context.Background(), nil)
	defer sm.Stop()

	start := time.Now()
	sm.CheckRace()
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}
