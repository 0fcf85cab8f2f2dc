// Package config loads the pregelflow configuration: built-in defaults, an
// optional YAML file, then PREGELFLOW_* environment overrides. Command-line
// flags are applied by the caller afterwards.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/Himanshu040604/PregelFlow"
	"github.com/Himanshu040604/PregelFlow/internal/logging"
	"github.com/Himanshu040604/PregelFlow/pkg/domain"
)

// DefaultPath is read when no --config flag is given. A missing file is not
// an error.
const DefaultPath = "pregelflow.yaml"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Drivers lists the valid store drivers.
var Drivers = []string{DriverMemory, DriverFile, DriverSQLite, DriverRedis}

// Config is the full runtime configuration.
type Config struct {
	Session  string         `mapstructure:"session" yaml:"session"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Services ServicesConfig `mapstructure:"services" yaml:"services"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	// Path is the directory (file) or database file (sqlite).
	Path string      `mapstructure:"path" yaml:"path"`
	Redis RedisConfig `mapstructure:"redis" yaml:"redis"`
	// EncryptionKey is a hex encoded 32-byte AES key. Empty disables encryption.
	EncryptionKey string `mapstructure:"encryption_key" yaml:"encryption_key"`
	// FallbackKeys decrypt checkpoints written before a key rotation.
	FallbackKeys []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`
	// MaskFields are state keys masked before a checkpoint is persisted.
	MaskFields []string `mapstructure:"mask_fields" yaml:"mask_fields"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
	// Lock enables the distributed session lock.
	Lock    bool          `mapstructure:"lock" yaml:"lock"`
	LockTTL time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type EngineConfig struct {
	Reset       string        `mapstructure:"reset" yaml:"reset"`
	NodeTimeout time.Duration `mapstructure:"node_timeout" yaml:"node_timeout"`
	RunTimeout  time.Duration `mapstructure:"run_timeout" yaml:"run_timeout"`
	AutoResume  bool          `mapstructure:"auto_resume" yaml:"auto_resume"`
}

type ServicesConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Weather APIConfig     `mapstructure:"weather" yaml:"weather"`
	News    APIConfig     `mapstructure:"news" yaml:"news"`
	Stock   APIConfig     `mapstructure:"stock" yaml:"stock"`
}

type APIConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Session: "1",
		Store: StoreConfig{
			Driver: DriverSQLite,
			Redis: RedisConfig{
				Addr:    "localhost:6379",
				LockTTL: 30 * time.Second,
			},
		},
		Log: LogConfig{
			Level:  "warn",
			Format: string(logging.FormatText),
		},
		Engine: EngineConfig{
			Reset:       pregelflow.ResetRunScoped.String(),
			NodeTimeout: 30 * time.Second,
			AutoResume:  true,
		},
		Services: ServicesConfig{Timeout: 10 * time.Second},
		Server:   ServerConfig{Addr: ":8080"},
	}
}

// envKeys maps environment variables to config keys. Later entries win, so
// the PREGELFLOW_ names override the plain provider names.
var envKeys = []struct{ env, key string }{
	{"OPENWEATHER_API_KEY", "services.weather.api_key"},
	{"NEWS_API_KEY", "services.news.api_key"},
	{"PREGELFLOW_SESSION", "session"},
	{"PREGELFLOW_STORE_DRIVER", "store.driver"},
	{"PREGELFLOW_STORE_PATH", "store.path"},
	{"PREGELFLOW_ENCRYPTION_KEY", "store.encryption_key"},
	{"PREGELFLOW_REDIS_ADDR", "store.redis.addr"},
	{"PREGELFLOW_REDIS_PASSWORD", "store.redis.password"},
	{"PREGELFLOW_REDIS_DB", "store.redis.db"},
	{"PREGELFLOW_REDIS_PREFIX", "store.redis.prefix"},
	{"PREGELFLOW_REDIS_TTL", "store.redis.ttl"},
	{"PREGELFLOW_REDIS_LOCK", "store.redis.lock"},
	{"PREGELFLOW_LOG_LEVEL", "log.level"},
	{"PREGELFLOW_LOG_FORMAT", "log.format"},
	{"PREGELFLOW_RESET", "engine.reset"},
	{"PREGELFLOW_NODE_TIMEOUT", "engine.node_timeout"},
	{"PREGELFLOW_RUN_TIMEOUT", "engine.run_timeout"},
	{"PREGELFLOW_AUTO_RESUME", "engine.auto_resume"},
	{"PREGELFLOW_OPENWEATHER_API_KEY", "services.weather.api_key"},
	{"PREGELFLOW_NEWS_API_KEY", "services.news.api_key"},
	{"PREGELFLOW_WEATHER_URL", "services.weather.base_url"},
	{"PREGELFLOW_NEWS_URL", "services.news.base_url"},
	{"PREGELFLOW_STOCK_URL", "services.stock.base_url"},
	{"PREGELFLOW_HTTP_ADDR", "server.addr"},
}

// Load builds the configuration from path and the environment. When
// mustExist is false a missing file yields the defaults.
func Load(path string, mustExist bool) (*Config, error) {
	return load(path, mustExist, os.LookupEnv)
}

func load(path string, mustExist bool, lookup func(string) (string, bool)) (*Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &raw); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			if raw == nil {
				raw = map[string]any{}
			}
		case errors.Is(err, os.ErrNotExist) && !mustExist:
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	for _, e := range envKeys {
		if v, ok := lookup(e.env); ok && v != "" {
			setKey(raw, e.key, v)
		}
	}

	cfg := Default()
	if err := decode(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays raw onto cfg. Strings are weakly converted so env values
// can populate ints, bools and durations.
func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			intSecondsToDuration,
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// intSecondsToDuration lets YAML say `ttl: 60` for a minute.
func intSecondsToDuration(from, to reflect.Type, data any) (any, error) {
	durationType := reflect.TypeOf(time.Duration(0))
	if to != durationType || from == durationType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Int, reflect.Int64:
		return time.Duration(reflect.ValueOf(data).Int()) * time.Second, nil
	}
	return data, nil
}

func setKey(m map[string]any, key, value string) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// Validate checks values that decoding cannot.
func (c *Config) Validate() error {
	var errs []error
	if err := domain.ValidateSessionID(c.Session); err != nil {
		errs = append(errs, fmt.Errorf("session: %w", err))
	}
	if !slices.Contains(Drivers, c.Store.Driver) {
		errs = append(errs, fmt.Errorf("store driver %q (valid: %s)", c.Store.Driver, strings.Join(Drivers, ", ")))
	}
	if c.Store.Driver == DriverRedis && c.Store.Redis.Addr == "" {
		errs = append(errs, errors.New("store.redis.addr is required for the redis driver"))
	}
	if c.Store.EncryptionKey != "" {
		if _, err := DecodeKey(c.Store.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("store.encryption_key: %w", err))
		}
	}
	for i, k := range c.Store.FallbackKeys {
		if _, err := DecodeKey(k); err != nil {
			errs = append(errs, fmt.Errorf("store.fallback_keys[%d]: %w", i, err))
		}
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, err)
	}
	if _, err := pregelflow.ParseResetPolicy(c.Engine.Reset); err != nil {
		errs = append(errs, err)
	}
	for _, d := range []struct {
		name string
		d    time.Duration
	}{
		{"engine.node_timeout", c.Engine.NodeTimeout},
		{"engine.run_timeout", c.Engine.RunTimeout},
		{"services.timeout", c.Services.Timeout},
		{"store.redis.ttl", c.Store.Redis.TTL},
	} {
		if d.d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", d.name))
		}
	}
	return errors.Join(errs...)
}

// DecodeKey parses a hex encoded AES-256 key.
func DecodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("not hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("want 32 bytes, got %d", len(key))
	}
	return key, nil
}
