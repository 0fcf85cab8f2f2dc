package runner

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// SignalManager owns the context of the current turn. OS interrupts, an
// optional interrupt channel, or an explicit Interrupt cancel it; Reset arms
// a fresh one for the next turn.
type SignalManager struct {
	parent context.Context

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc

	stop chan struct{}
	once sync.Once
}

// NewSignalManager creates a manager derived from parent and immediately
// starts listening for signals. A nil source is allowed.
func NewSignalManager(parent context.Context, source <-chan struct{}) *SignalManager {
	sm := &SignalManager{parent: parent, stop: make(chan struct{})}
	sm.Reset()
	if source != nil {
		go sm.watch(source)
	}
	return sm
}

func (sm *SignalManager) watch(source <-chan struct{}) {
	for {
		select {
		case <-sm.stop:
			return
		case _, ok := <-source:
			if !ok {
				return
			}
			sm.Interrupt()
		}
	}
}

// Context returns the current turn context.
func (sm *SignalManager) Context() context.Context {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.ctx
}

// Interrupt cancels the current turn context.
func (sm *SignalManager) Interrupt() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.cancel()
}

// Reset re-arms the signal listener.
// Should be called after an interrupted turn has been reported.
func (sm *SignalManager) Reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.cancel != nil {
		sm.cancel()
	}
	sm.ctx, sm.cancel = signal.NotifyContext(sm.parent, os.Interrupt, syscall.SIGTERM)
}

// Stop permanently stops the signal listener.
func (sm *SignalManager) Stop() {
	sm.once.Do(func() { close(sm.stop) })
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.cancel()
}

// CheckRace waits briefly to see if a context cancellation follows an error.
// On some terminals Ctrl+C surfaces as an input error slightly before the
// signal context is cancelled.
func (sm *SignalManager) CheckRace() {
	ctx := sm.Context()
	if ctx.Err() != nil {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(100 * time.Millisecond):
	}
}
