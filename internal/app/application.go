package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
	"github.com/mikeoller82/codexa-sub000/internal/infra/gateway"
	"github.com/mikeoller82/codexa-sub000/internal/infra/telemetry"
)

// ServeConfig configures a coordinator process.
type ServeConfig struct {
	ConfigPath string
	// MetricsAddr enables /metrics and /healthz on this address regardless of config.
	MetricsAddr string
	// SimulateFailure makes the built-in text generation tool fail with this kind.
	SimulateFailure domain.ErrorKind
}

// Application runs the MCP gateway with config reload and observability.
type Application struct {
	ctx      context.Context
	cfg      ServeConfig
	logger   *zap.Logger
	registry *prometheus.Registry
	runtime  domain.RuntimeConfig

	coordinator   *Coordinator
	gateway       *gateway.Gateway
	reloadManager *ReloadManager
}

// ApplicationOptions captures dependencies and settings for Application.
type ApplicationOptions struct {
	Context       context.Context
	ServeConfig   ServeConfig
	Logger        *zap.Logger
	Registry      *prometheus.Registry
	Runtime       domain.RuntimeConfig
	Coordinator   *Coordinator
	Gateway       *gateway.Gateway
	ReloadManager *ReloadManager
}

// NewApplication constructs the application runtime.
func NewApplication(opts ApplicationOptions) *Application {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Application{
		ctx:           ctx,
		cfg:           opts.ServeConfig,
		logger:        logger,
		registry:      opts.Registry,
		runtime:       opts.Runtime,
		coordinator:   opts.Coordinator,
		gateway:       opts.Gateway,
		reloadManager: opts.ReloadManager,
	}
}

// Coordinator returns the wired coordinator.
func (a *Application) Coordinator() *Coordinator {
	return a.coordinator
}

// Run starts the services and blocks until the gateway stops.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(a.ctx)
	defer cancel()

	a.logger.Info("configuration loaded",
		zap.String("config", a.cfg.ConfigPath),
		zap.Int("tools", len(a.coordinator.Tools())),
		zap.String("version", Version),
	)

	a.reloadManager.Start(ctx)

	enabled := a.runtime.Observability.MetricsEnabled || a.cfg.MetricsAddr != ""
	if enabled {
		addr := a.cfg.MetricsAddr
		if addr == "" {
			addr = a.runtime.Observability.ListenAddress
		}
		go func() {
			err := telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
				Addr:          addr,
				EnableMetrics: true,
				EnableHealthz: true,
				Health:        a.health,
				Registry:      a.registry,
			}, a.logger)
			if err != nil {
				a.logger.Warn("observability server failed", zap.Error(err))
			}
		}()
	}

	return a.gateway.Run(ctx)
}

func (a *Application) health() telemetry.HealthReport {
	stats := a.coordinator.Stats()
	status := "ok"
	if stats.RegisteredTools > 0 && len(stats.UnhealthyTools) == stats.RegisteredTools {
		status = "unhealthy"
	}
	return telemetry.HealthReport{
		Status:         status,
		Tools:          stats.RegisteredTools,
		UnhealthyTools: stats.UnhealthyTools,
	}
}
