package main

import (
	"github.com/spf13/cobra"

	"github.com/mikeoller82/codexa-sub000/internal/app"
	"github.com/mikeoller82/codexa-sub000/internal/domain"
	"github.com/mikeoller82/codexa-sub000/internal/infra/mapping"
)

func newToolsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List registered tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			coord, err := app.New(opts.logger).Coordinator(cmd.Context(), opts.serveConfig())
			if err != nil {
				return err
			}
			return printTools(cmd.OutOrStdout(), mapping.MapTools(coord.Tools()), opts.format)
		},
	}
}

type requestFlags struct {
	requestID string
	request   string
	sessionID string
	parallel  bool
	sequence  bool
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.requestID, "request-id", "", "request id (generated when empty)")
	cmd.Flags().StringVar(&f.request, "request", "", "user request text passed to tools")
	cmd.Flags().StringVar(&f.sessionID, "session", "", "session id")
	cmd.Flags().BoolVar(&f.parallel, "parallel", false, "force parallel stages")
	cmd.Flags().BoolVar(&f.sequence, "sequential", false, "force one tool per stage")
	cmd.MarkFlagsMutuallyExclusive("parallel", "sequential")
}

func (f *requestFlags) build(coord *app.Coordinator, tools []string) domain.CoordinationRequest {
	req := domain.CoordinationRequest{
		RequestID:   f.requestID,
		UserRequest: f.request,
		SessionID:   f.sessionID,
		Tools:       tools,
	}
	if f.parallel || f.sequence {
		options := coord.Options()
		options.PreferParallel = f.parallel
		req.Options = &options
	}
	return req
}

func newPlanCmd(opts *cliOptions) *cobra.Command {
	var flags requestFlags
	cmd := &cobra.Command{
		Use:   "plan TOOL...",
		Short: "Resolve dependencies and print the execution plan",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := app.New(opts.logger).Coordinator(cmd.Context(), opts.serveConfig())
			if err != nil {
				return err
			}
			plan, err := coord.Plan(cmd.Context(), flags.build(coord, args))
			if err != nil {
				return err
			}
			return printPlan(cmd.OutOrStdout(), mapping.MapPlan(plan), opts.format)
		},
	}
	flags.bind(cmd)
	return cmd
}

func newRunCmd(opts *cliOptions) *cobra.Command {
	var flags requestFlags
	cmd := &cobra.Command{
		Use:   "run TOOL...",
		Short: "Plan and execute the requested tools",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			coord, err := app.New(opts.logger).Coordinator(ctx, opts.serveConfig())
			if err != nil {
				return err
			}
			result, err := coord.Coordinate(ctx, flags.build(coord, args))
			if err != nil {
				return err
			}
			if err := printResult(cmd.OutOrStdout(), mapping.MapResult(result), opts.format); err != nil {
				return err
			}
			if !result.Success {
				return exitSilent(2)
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newValidateCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the runtime configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runtime, err := app.New(opts.logger).ValidateConfig(cmd.Context(), app.ValidateConfig{
				ConfigPath: opts.configPath,
			})
			if err != nil {
				return err
			}
			return printConfig(cmd.OutOrStdout(), runtime, opts.format)
		},
	}
}

func newServeCmd(opts *cliOptions) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the coordinator as an MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			cfg := opts.serveConfig()
			cfg.MetricsAddr = metricsAddr
			return app.New(opts.logger).Serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address")
	return cmd
}
