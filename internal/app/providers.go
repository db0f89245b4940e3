package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
	"github.com/mikeoller82/codexa-sub000/internal/infra/catalog"
	"github.com/mikeoller82/codexa-sub000/internal/infra/demotools"
	"github.com/mikeoller82/codexa-sub000/internal/infra/executor"
	"github.com/mikeoller82/codexa-sub000/internal/infra/gateway"
	"github.com/mikeoller82/codexa-sub000/internal/infra/planner"
	"github.com/mikeoller82/codexa-sub000/internal/infra/recovery"
	"github.com/mikeoller82/codexa-sub000/internal/infra/resolver"
	"github.com/mikeoller82/codexa-sub000/internal/infra/telemetry"
)

func NewMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	registry.MustRegister(prometheus.NewGoCollector())
	return registry
}

func NewMetrics(registry *prometheus.Registry) domain.Metrics {
	return telemetry.NewPrometheusMetrics(registry)
}

func ProvideConfigProvider(ctx context.Context, cfg ServeConfig, logger *zap.Logger) (*ConfigProvider, error) {
	return NewConfigProvider(ctx, cfg.ConfigPath, logger)
}

func NewRuntimeConfig(provider *ConfigProvider) domain.RuntimeConfig {
	return provider.Snapshot()
}

// NewToolCatalog builds the catalog with the built-in tools registered.
func NewToolCatalog(cfg ServeConfig, metrics domain.Metrics, logger *zap.Logger) (*catalog.Catalog, error) {
	c := catalog.New(logger, metrics)
	if err := demotools.Register(c, demotools.Options{SimulateFailure: cfg.SimulateFailure}, logger); err != nil {
		return nil, err
	}
	return c, nil
}

func NewRecoveryManager(runtime domain.RuntimeConfig, metrics domain.Metrics, logger *zap.Logger) *recovery.Manager {
	return recovery.NewManager(runtime.Recovery, logger, metrics)
}

func NewResolver(metrics domain.Metrics, logger *zap.Logger) *resolver.Resolver {
	return resolver.New(logger, metrics)
}

func NewPlanner(logger *zap.Logger) *planner.Planner {
	return planner.New(logger)
}

func NewExecutor(tools *catalog.Catalog, recoverer *recovery.Manager, metrics domain.Metrics, logger *zap.Logger) *executor.Executor {
	return executor.New(tools, recoverer, logger, metrics)
}

func NewGateway(coordinator *Coordinator, logger *zap.Logger) *gateway.Gateway {
	return gateway.New(coordinator, Version, logger)
}
