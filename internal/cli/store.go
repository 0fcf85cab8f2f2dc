package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/Himanshu040604/PregelFlow/internal/config"
	"github.com/Himanshu040604/PregelFlow/pkg/adapters/file"
	"github.com/Himanshu040604/PregelFlow/pkg/adapters/memory"
	"github.com/Himanshu040604/PregelFlow/pkg/adapters/redis"
	"github.com/Himanshu040604/PregelFlow/pkg/adapters/sqlite"
	"github.com/Himanshu040604/PregelFlow/pkg/persistence/middleware"
	"github.com/Himanshu040604/PregelFlow/pkg/ports"
)

// Default locations, relative to the working directory.
const (
	DefaultDataDir    = ".pregelflow"
	DefaultSQLitePath = DefaultDataDir + "/checkpoints.db"
	DefaultFilePath   = DefaultDataDir + "/sessions"
)

// Backend is an opened checkpoint store plus the optional locker sharing
// its connection.
type Backend struct {
	Store  ports.CheckpointStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases the store's connection.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend builds the store selected by cfg and wraps it with the PII
// and encryption middlewares when configured. PII masking runs first so
// masked values are what gets encrypted.
func OpenBackend(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*Backend, error) {
	b := &Backend{}
	switch cfg.Driver {
	case config.DriverMemory:
		b.Store = memory.NewStore()

	case config.DriverFile:
		path := cfg.Path
		if path == "" {
			path = DefaultFilePath
		}
		b.Store = file.New(path)

	case config.DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = DefaultSQLitePath
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		b.Store, b.close = store, store.Close

	case config.DriverRedis:
		opts := []redis.Option{redis.WithTTL(cfg.Redis.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		if err := store.Client().Ping(ctx).Err(); err != nil {
			_ = store.Client().Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		b.Store, b.close = store, store.Client().Close
		if cfg.Redis.Lock {
			prefix := cfg.Redis.Prefix
			if prefix == "" {
				prefix = "pregelflow:"
			}
			b.Locker = redis.NewLocker(store.Client(), prefix)
		}

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	var mws []middleware.Middleware
	if len(cfg.MaskFields) > 0 {
		patterns := make([]string, len(cfg.MaskFields))
		for i, f := range cfg.MaskFields {
			patterns[i] = "^" + regexp.QuoteMeta(f) + "$"
		}
		mws = append(mws, middleware.NewPIIMiddleware(patterns))
	}
	if cfg.EncryptionKey != "" {
		enc, err := encryptionConfig(cfg)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(enc))
	}
	if len(mws) > 0 {
		b.Store = middleware.Chain(b.Store, mws...)
	}

	logger.Debug("Checkpoint store ready", "driver", cfg.Driver, "encrypted", cfg.EncryptionKey != "", "masked_fields", len(cfg.MaskFields), "locking", b.Locker != nil)
	return b, nil
}

func encryptionConfig(cfg config.StoreConfig) (middleware.EncryptionConfig, error) {
	active, err := config.DecodeKey(cfg.EncryptionKey)
	if err != nil {
		return middleware.EncryptionConfig{}, fmt.Errorf("encryption key: %w", err)
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.FallbackKeys {
		key, err := config.DecodeKey(k)
		if err != nil {
			return middleware.EncryptionConfig{}, fmt.Errorf("fallback key %d: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	return enc, nil
}
