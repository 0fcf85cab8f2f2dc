package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Himanshu040604/PregelFlow"
	"github.com/Himanshu040604/PregelFlow/internal/config"
	"github.com/Himanshu040604/PregelFlow/internal/logging"
	"github.com/Himanshu040604/PregelFlow/internal/research"
	httpadapter "github.com/Himanshu040604/PregelFlow/pkg/adapters/http"
	"github.com/Himanshu040604/PregelFlow/pkg/observability"
)

// App is one wired process: configuration, logger, store and engine.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Backend *Backend
	Engine  *pregelflow.Engine
	Metrics *observability.Metrics
	Streams *httpadapter.StreamManager
}

type appOptions struct {
	sources   *research.Collaborators
	logOutput io.Writer
}

// AppOption customizes NewApp.
type AppOption func(*appOptions)

// WithSources replaces the live data sources, e.g. with fakes in tests.
func WithSources(c research.Collaborators) AppOption {
	return func(o *appOptions) { o.sources = &c }
}

// WithLogOutput redirects logs away from stderr.
func WithLogOutput(w io.Writer) AppOption {
	return func(o *appOptions) { o.logOutput = w }
}

// NewApp validates cfg and wires the engine. Close must be called.
func NewApp(ctx context.Context, cfg *config.Config, opts ...AppOption) (*App, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := createLogger(cfg.Log, o.logOutput)
	if err != nil {
		return nil, err
	}

	backend, err := OpenBackend(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	sources := createSources(cfg.Services, logger)
	if o.sources != nil {
		sources = *o.sources
	}
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Backend: backend,
		Metrics: observability.NewMetrics(nil),
		Streams: httpadapter.NewStreamManager(logger),
	}
	app.Engine, err = createEngine(cfg, backend, sources, logger, app.Metrics.Hooks(), app.Streams.Hooks())
	if err != nil {
		return nil, errors.Join(err, backend.Close())
	}
	return app, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Backend.Close()
}

// createLogger configures the application logger. Logs always go to
// stderr (or w) to keep stdout for reports.
func createLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}
	return logging.New(logging.Options{Level: level, Format: format, Output: w}), nil
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
