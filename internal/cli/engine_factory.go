package cli

import (
	"fmt"
	"log/slog"

	"github.com/Himanshu040604/PregelFlow"
	"github.com/Himanshu040604/PregelFlow/internal/config"
	"github.com/Himanshu040604/PregelFlow/internal/research"
	"github.com/Himanshu040604/PregelFlow/internal/services/news"
	"github.com/Himanshu040604/PregelFlow/internal/services/stock"
	"github.com/Himanshu040604/PregelFlow/internal/services/weather"
	"github.com/Himanshu040604/PregelFlow/pkg/collaborator"
	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	"github.com/Himanshu040604/PregelFlow/pkg/observability"
)

// createSources builds the live data sources from the services config.
// Every source is guarded so a panic becomes report text.
func createSources(cfg config.ServicesConfig, logger *slog.Logger) research.Collaborators {
	w := weather.New(cfg.Weather.APIKey)
	n := news.New(cfg.News.APIKey)
	s := stock.New()
	if cfg.Weather.BaseURL != "" {
		w.BaseURL = cfg.Weather.BaseURL
	}
	if cfg.News.BaseURL != "" {
		n.BaseURL = cfg.News.BaseURL
	}
	if cfg.Stock.BaseURL != "" {
		s.BaseURL = cfg.Stock.BaseURL
	}
	if cfg.Timeout > 0 {
		w.Client.Timeout = cfg.Timeout
		n.Client.Timeout = cfg.Timeout
		s.Client.Timeout = cfg.Timeout
	}
	if cfg.Weather.APIKey == "" {
		logger.Warn("OPENWEATHER_API_KEY is not set; weather lookups will report a missing key")
	}
	if cfg.News.APIKey == "" {
		logger.Warn("NEWS_API_KEY is not set; news lookups will report a missing key")
	}
	return research.Collaborators{
		Weather: collaborator.Guard("Weather", w, logger),
		News:    collaborator.Guard("News", n, logger),
		Stock:   collaborator.Guard("Stock", s, logger),
	}
}

// createEngine initializes the research engine with standard CLI conventions:
// debug lifecycle logs always, plus any extra hooks (metrics, SSE).
func createEngine(cfg *config.Config, backend *Backend, sources research.Collaborators, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*pregelflow.Engine, error) {
	g, err := research.Graph(sources)
	if err != nil {
		return nil, err
	}
	reset, err := pregelflow.ParseResetPolicy(cfg.Engine.Reset)
	if err != nil {
		return nil, err
	}

	all := append([]domain.LifecycleHooks{observability.LogHooks(logger)}, hooks...)
	opts := []pregelflow.Option{
		pregelflow.WithLogger(logger),
		pregelflow.WithLifecycleHooks(domain.CombineHooks(all...)),
		pregelflow.WithResetPolicy(reset),
		pregelflow.WithOutputField(research.FieldReport),
		pregelflow.WithNodeTimeout(cfg.Engine.NodeTimeout),
	}
	if backend.Locker != nil {
		opts = append(opts, pregelflow.WithLocker(backend.Locker, cfg.Store.Redis.LockTTL))
	}

	engine, err := pregelflow.New(g, backend.Store, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}
