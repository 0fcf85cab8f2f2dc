// Package redis implements the checkpoint store and distributed locker on
// Redis, for deployments where several engine replicas share sessions.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "pregelflow:session:"

// farFuture is the index score of sessions without a TTL (2100-01-01).
const farFuture = 4102444800

// appendScript appends a checkpoint only if its sequence advances the
// session's stored sequence. KEYS: list, seq, index. ARGV: seq, payload,
// ttl millis, index score, session id.
var appendScript = backend.NewScript(`
local cur = redis.call("GET", KEYS[2])
if cur and tonumber(ARGV[1]) <= tonumber(cur) then
	return tonumber(cur)
end
redis.call("RPUSH", KEYS[1], ARGV[2])
redis.call("SET", KEYS[2], ARGV[1])
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call("PEXPIRE", KEYS[1], ttl)
	redis.call("PEXPIRE", KEYS[2], ttl)
end
redis.call("ZADD", KEYS[3], ARGV[4], ARGV[5])
return -1
`)

// Store implements ports.CheckpointStore using Redis. Each session's
// history is a list of JSON checkpoints guarded by a sequence key; a sorted
// set indexes sessions by expiry.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for sessions. Every save refreshes it.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to build a Locker on it.
func (s *Store) Client() *backend.Client { return s.client }

func (s *Store) listKey(sessionID string) string { return s.prefix + sessionID + ":checkpoints" }
func (s *Store) seqKey(sessionID string) string  { return s.prefix + sessionID + ":seq" }
func (s *Store) indexKey() string                { return s.prefix + "index" }

// Save appends the checkpoint atomically via a Lua script.
func (s *Store) Save(ctx context.Context, cp *domain.Checkpoint) error {
	if err := domain.ValidateSessionID(cp.SessionID); err != nil {
		return err
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = farFuture
	}

	latest, err := appendScript.Run(ctx, s.client,
		[]string{s.listKey(cp.SessionID), s.seqKey(cp.SessionID), s.indexKey()},
		cp.Sequence, data, s.ttl.Milliseconds(), score, cp.SessionID,
	).Int64()
	if err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	if latest >= 0 {
		return fmt.Errorf("%w: seq %d after %d", domain.ErrSequenceConflict, cp.Sequence, latest)
	}
	return nil
}

func decode(val string) (*domain.Checkpoint, error) {
	var cp domain.Checkpoint
	if err := json.Unmarshal([]byte(val), &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// LoadLatest retrieves the tail of the session's list.
func (s *Store) LoadLatest(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	val, err := s.client.LIndex(ctx, s.listKey(sessionID), -1).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrNoHistory
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return decode(val)
}

// History retrieves the whole list, oldest first.
func (s *Store) History(ctx context.Context, sessionID string) ([]*domain.Checkpoint, error) {
	vals, err := s.client.LRange(ctx, s.listKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get history from redis: %w", err)
	}
	out := make([]*domain.Checkpoint, 0, len(vals))
	for _, val := range vals {
		cp, err := decode(val)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.listKey(sessionID), s.seqKey(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List returns active sessions, lazily pruning expired index entries.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
