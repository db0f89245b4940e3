package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
	"github.com/mikeoller82/codexa-sub000/internal/infra/catalog"
)

// ValidateConfig configures a validation run.
type ValidateConfig struct {
	ConfigPath string
}

// ValidateConfig loads and normalizes the config without starting anything.
func (a *App) ValidateConfig(ctx context.Context, cfg ValidateConfig) (domain.RuntimeConfig, error) {
	logger := NewLogger(NewLogging(LoggingConfig{Logger: a.logger}))

	runtime, err := catalog.NewLoader(logger).Load(ctx, cfg.ConfigPath)
	if err != nil {
		return domain.RuntimeConfig{}, err
	}

	logger.Info("configuration validated",
		zap.String("config", cfg.ConfigPath),
		zap.Int("max_parallel", runtime.Coordination.MaxParallel),
		zap.Bool("recovery", runtime.Recovery.Enabled),
	)
	return runtime, nil
}
