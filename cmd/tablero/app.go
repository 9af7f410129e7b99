package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spektr-org/tablero/assistant"
	"github.com/spektr-org/tablero/config"
	"github.com/spektr-org/tablero/dashboard"
	"github.com/spektr-org/tablero/dataset"
	"github.com/spektr-org/tablero/logging"
	"github.com/spektr-org/tablero/metrics"
	"github.com/spektr-org/tablero/store"
)

// ============================================================================
// WIRING
// ============================================================================
// config → logger → metrics → registry (datasets) → provider + store →
// assistant service → dashboard. Each command asks only for what it uses.
// ============================================================================

type bootOptions struct {
	datasets bool
	// assistant loads the provider; a failure only disables the assistant
	// unless requireAssistant is set.
	assistant        bool
	requireAssistant bool
}

type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	registry  *dataset.Registry
	dashboard *dashboard.Dashboard

	provider  assistant.Provider
	model     string
	assistant *assistant.Service

	closers []func() error
}

func newApp(ctx context.Context, opts *globalOptions, boot bootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath, ".env")
	if err != nil {
		return nil, err
	}
	cfg.Log.Level = logging.Level(cfg.Log.Level, opts.verbose, opts.quiet)

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	a := &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		registry: dataset.NewRegistry(logger, m),
	}

	if boot.datasets {
		if err := a.registry.LoadAll(ctx, datasetSources(cfg.Datasets)); err != nil {
			return nil, fmt.Errorf("failed to load datasets: %w", err)
		}
		logger.Info("📂 datasets loaded", zap.Strings("datasets", a.registry.Names()))
	}

	if boot.assistant || boot.requireAssistant {
		if err := a.initAssistant(ctx); err != nil {
			if boot.requireAssistant {
				return nil, err
			}
			logger.Warn("⚠️ assistant disabled", zap.Error(err))
		}
	}

	dashOpts := []dashboard.Option{dashboard.WithLogger(logger), dashboard.WithMetrics(a.metrics)}
	if a.assistant != nil {
		dashOpts = append(dashOpts, dashboard.WithAssistant(a.assistant))
	}
	a.dashboard = dashboard.New(a.registry, dashOpts...)

	return a, nil
}

func datasetSources(cfg config.DatasetsConfig) []dataset.Source {
	return []dataset.Source{
		{Name: dashboard.StudentsDataset, Path: cfg.Students},
		{Name: dashboard.CasesDataset, Path: cfg.Cases, Cleaner: dataset.CasesCleaner},
	}
}

func (a *app) initAssistant(ctx context.Context) error {
	provider, err := assistant.NewProvider(ctx, a.cfg.Assistant)
	if err != nil {
		return err
	}

	// The provider resolves its own default when the configured model
	// belongs to another provider.
	model := a.cfg.Assistant.Model
	if m, ok := provider.(interface{ Model() string }); ok {
		model = m.Model()
	}

	a.provider = provider
	a.model = model
	a.assistant = assistant.NewService(provider, model,
		assistant.WithStore(a.newStore(ctx), a.cfg.Assistant.CacheTTL, a.cfg.Assistant.History),
		assistant.WithRateLimit(a.cfg.Server.RateLimit, 1),
		assistant.WithTimeout(a.cfg.Assistant.Timeout),
		assistant.WithMaxTokens(a.cfg.Assistant.MaxTokens),
		assistant.WithLogger(a.logger),
		assistant.WithMetrics(a.metrics),
	)
	a.logger.Info("🤖 assistant ready",
		zap.String("provider", a.cfg.Assistant.Provider),
		zap.String("model", model))
	return nil
}

// newStore prefers Redis when enabled and reachable.
func (a *app) newStore(ctx context.Context) store.Store {
	if !a.cfg.Redis.Enabled {
		return store.NewMemoryStore()
	}

	rs := store.NewRedisStore(store.NewRedisClient(a.cfg.Redis), a.logger)
	if err := rs.Ping(ctx); err != nil {
		a.logger.Warn("⚠️ redis unavailable, using in-memory cache",
			zap.String("addr", a.cfg.Redis.Addr), zap.Error(err))
		_ = rs.Close()
		return store.NewMemoryStore()
	}
	a.closers = append(a.closers, rs.Close)
	return rs
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
