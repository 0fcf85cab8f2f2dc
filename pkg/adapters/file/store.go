// Package file implements ports.CheckpointStore on the local filesystem.
//
// Layout: one directory per session under BasePath, one JSON document per
// checkpoint named by its zero-padded sequence number:
//
//	<BasePath>/<session>/000000000001.json
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/Himanshu040604/PregelFlow/pkg/domain"
)

const ext = ".json"

// Store implements ports.CheckpointStore using the local filesystem.
type Store struct {
	BasePath string

	mu sync.Mutex
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".pregelflow/checkpoints".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".pregelflow", "checkpoints")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) dir(sessionID string) string {
	return filepath.Join(s.BasePath, sessionID)
}

func fileName(seq int64) string {
	return fmt.Sprintf("%012d%s", seq, ext)
}

// sequences returns the stored sequence numbers of a session, ascending.
func (s *Store) sequences(sessionID string) ([]int64, error) {
	entries, err := os.ReadDir(s.dir(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session directory: %w", err)
	}
	var seqs []int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ext) || strings.HasPrefix(name, "tmp-") {
			continue
		}
		seq, err := strconv.ParseInt(strings.TrimSuffix(name, ext), 10, 64)
		if err != nil {
			continue
		}
		seqs = append(seqs, seq)
	}
	slices.Sort(seqs)
	return seqs, nil
}

// Save writes the checkpoint atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, cp *domain.Checkpoint) error {
	if err := domain.ValidateSessionID(cp.SessionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seqs, err := s.sequences(cp.SessionID)
	if err != nil {
		return err
	}
	if n := len(seqs); n > 0 && cp.Sequence <= seqs[n-1] {
		return fmt.Errorf("%w: seq %d after %d", domain.ErrSequenceConflict, cp.Sequence, seqs[n-1])
	}

	dir := s.dir(cp.SessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	// Same directory so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, fileName(cp.Sequence))); err != nil {
		return fmt.Errorf("failed to commit checkpoint file: %w", err)
	}
	return nil
}

func (s *Store) read(sessionID string, seq int64) (*domain.Checkpoint, error) {
	data, err := os.ReadFile(filepath.Join(s.dir(sessionID), fileName(seq)))
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}
	var cp domain.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint %d: %w", seq, err)
	}
	return &cp, nil
}

// LoadLatest reads the checkpoint with the highest sequence.
func (s *Store) LoadLatest(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	seqs, err := s.sequences(sessionID)
	if err != nil {
		return nil, err
	}
	if len(seqs) == 0 {
		return nil, domain.ErrNoHistory
	}
	return s.read(sessionID, seqs[len(seqs)-1])
}

// History reads every checkpoint of the session, oldest first.
func (s *Store) History(ctx context.Context, sessionID string) ([]*domain.Checkpoint, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	seqs, err := s.sequences(sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Checkpoint, 0, len(seqs))
	for _, seq := range seqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cp, err := s.read(sessionID, seq)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// Delete removes the session directory.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.RemoveAll(s.dir(sessionID)); err != nil {
		return fmt.Errorf("failed to delete session directory: %w", err)
	}
	return nil
}

// List returns all session IDs that have at least one checkpoint.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sessions := []string{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		seqs, err := s.sequences(e.Name())
		if err != nil {
			return nil, err
		}
		if len(seqs) > 0 {
			sessions = append(sessions, e.Name())
		}
	}
	return sessions, nil
}
