package app

import (
	"context"

	"go.uber.org/zap"
)

// App is the entry point used by the command line.
type App struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{logger: logger}
}

// Serve runs the MCP gateway until ctx is canceled.
func (a *App) Serve(ctx context.Context, cfg ServeConfig) error {
	application, err := InitializeApplication(ctx, cfg, LoggingConfig{Logger: a.logger})
	if err != nil {
		return err
	}
	return application.Run()
}

// Coordinator builds a coordinator for one-shot commands.
func (a *App) Coordinator(ctx context.Context, cfg ServeConfig) (*Coordinator, error) {
	return InitializeCoordinator(ctx, cfg, LoggingConfig{Logger: a.logger})
}
