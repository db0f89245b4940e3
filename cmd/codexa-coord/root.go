package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/app"
	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

type cliOptions struct {
	configPath      string
	logLevel        string
	format          string
	simulateFailure string
	logger          *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{
		logLevel: "warn",
		format:   formatText,
		logger:   zap.NewNop(),
	}

	root := &cobra.Command{
		Use:           "codexa-coord",
		Short:         "Dependency-aware tool coordination engine",
		Version:       fmt.Sprintf("%s (%s)", app.Version, app.Build),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			applyRootFlagBindings(cmd, &opts)
			if err := validateFormat(opts.format); err != nil {
				return err
			}
			if _, err := parseFailureKind(opts.simulateFailure); err != nil {
				return err
			}
			logger, err := newLogger(opts.logLevel)
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to runtime config file (defaults apply when empty)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.format, "format", opts.format, "output format (text, json, yaml, toml)")
	root.PersistentFlags().StringVar(&opts.simulateFailure, "simulate-failure", "", "make ai_text_generation fail with this error kind")

	root.AddCommand(
		newToolsCmd(&opts),
		newPlanCmd(&opts),
		newRunCmd(&opts),
		newValidateCmd(&opts),
		newServeCmd(&opts),
	)

	return root
}

func applyRootFlagBindings(cmd *cobra.Command, opts *cliOptions) {
	flags := cmd.Flags()
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "config":
			opts.configPath, _ = flags.GetString("config")
		case "log-level":
			opts.logLevel, _ = flags.GetString("log-level")
		case "format":
			opts.format, _ = flags.GetString("format")
		case "simulate-failure":
			opts.simulateFailure, _ = flags.GetString("simulate-failure")
		}
	})
}

func newLogger(level string) (*zap.Logger, error) {
	atomicLevel, err := zap.ParseAtomicLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = atomicLevel
	return cfg.Build()
}

func parseFailureKind(raw string) (domain.ErrorKind, error) {
	kind := domain.ErrorKind(strings.TrimSpace(raw))
	switch kind {
	case "", domain.ErrorKindTimeout, domain.ErrorKindConnection, domain.ErrorKindRateLimit,
		domain.ErrorKindAuthentication, domain.ErrorKindValidation:
		return kind, nil
	default:
		return "", fmt.Errorf("invalid --simulate-failure %q", raw)
	}
}

func (o *cliOptions) serveConfig() app.ServeConfig {
	kind, _ := parseFailureKind(o.simulateFailure)
	return app.ServeConfig{
		ConfigPath:      o.configPath,
		SimulateFailure: kind,
	}
}
