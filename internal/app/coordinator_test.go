package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
	"github.com/mikeoller82/codexa-sub000/internal/infra/catalog"
	"github.com/mikeoller82/codexa-sub000/internal/infra/demotools"
	"github.com/mikeoller82/codexa-sub000/internal/infra/executor"
	"github.com/mikeoller82/codexa-sub000/internal/infra/planner"
	"github.com/mikeoller82/codexa-sub000/internal/infra/recovery"
	"github.com/mikeoller82/codexa-sub000/internal/infra/resolver"
	"github.com/mikeoller82/codexa-sub000/internal/infra/telemetry"
)

func newTestCoordinator(t *testing.T, cfg domain.RuntimeConfig) *Coordinator {
	t.Helper()

	logger := zap.NewNop()
	metrics := telemetry.NewNoopMetrics()
	tools := catalog.New(logger, metrics)
	require.NoError(t, demotools.Register(tools, demotools.Options{}, logger))
	manager := recovery.NewManager(cfg.Recovery, logger, metrics)

	return NewCoordinator(CoordinatorOptions{
		Config:   cfg,
		Catalog:  tools,
		Resolver: resolver.New(logger, metrics),
		Planner:  planner.New(logger),
		Executor: executor.New(tools, manager, logger, metrics),
		Recovery: manager,
		Metrics:  metrics,
		Logger:   logger,
	})
}

func TestCoordinator_CoordinateDataPipeline(t *testing.T) {
	coord := newTestCoordinator(t, domain.DefaultRuntimeConfig())

	result, err := coord.Coordinate(context.Background(), domain.CoordinationRequest{
		RequestID:   "req-1",
		UserRequest: "summarize the data",
		Tools:       []string{"report_generator"},
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Empty(t, result.Errors)

	want := []string{"data_validator", "data_processor", "report_generator"}
	if diff := cmp.Diff(want, result.ExecutionOrder); diff != "" {
		t.Fatalf("execution order mismatch (-want +got):\n%s", diff)
	}

	stats := coord.Stats()
	require.Equal(t, 1, stats.TotalCoordinations)
	require.Equal(t, 1, stats.Successful)
	require.InDelta(t, 1.0, stats.SuccessRate, 0.0001)
	require.Equal(t, 6, stats.RegisteredTools)
}

func TestCoordinator_PlanIsCached(t *testing.T) {
	coord := newTestCoordinator(t, domain.DefaultRuntimeConfig())
	req := domain.CoordinationRequest{RequestID: "req-cache", Tools: []string{"data_processor"}}

	first, err := coord.Plan(context.Background(), req)
	require.NoError(t, err)
	second, err := coord.Plan(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, first.CreatedAt, second.CreatedAt)
	require.Equal(t, 1, coord.Stats().CachedPlans)

	coord.ClearCache()
	require.Equal(t, 0, coord.Stats().CachedPlans)
}

func TestCoordinator_PlanMissOnDifferentOptions(t *testing.T) {
	coord := newTestCoordinator(t, domain.DefaultRuntimeConfig())
	req := domain.CoordinationRequest{RequestID: "req-opts", Tools: []string{"data_processor"}}

	_, err := coord.Plan(context.Background(), req)
	require.NoError(t, err)

	opts := coord.Options()
	opts.PreferParallel = !opts.PreferParallel
	req.Options = &opts
	plan, err := coord.Plan(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, opts.PreferParallel, plan.Options.PreferParallel)
}

func TestCoordinator_ResolutionErrorIsReturned(t *testing.T) {
	coord := newTestCoordinator(t, domain.DefaultRuntimeConfig())

	result, err := coord.Coordinate(context.Background(), domain.CoordinationRequest{
		Tools: []string{"does_not_exist"},
	})
	require.Error(t, err)
	require.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	require.NotEmpty(t, result.RequestID)

	var resErr *domain.ResolutionError
	require.True(t, errors.As(err, &resErr))

	stats := coord.Stats()
	require.Equal(t, 1, stats.TotalCoordinations)
	require.Equal(t, 0, stats.Successful)
}

func TestCoordinator_EmptyRequest(t *testing.T) {
	coord := newTestCoordinator(t, domain.DefaultRuntimeConfig())

	_, err := coord.Plan(context.Background(), domain.CoordinationRequest{})
	require.ErrorIs(t, err, domain.ErrEmptyRequest)
}

func TestCoordinator_CanceledContext(t *testing.T) {
	coord := newTestCoordinator(t, domain.DefaultRuntimeConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := coord.Plan(ctx, domain.CoordinationRequest{Tools: []string{"data_validator"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCoordinator_ApplyConfig(t *testing.T) {
	coord := newTestCoordinator(t, domain.DefaultRuntimeConfig())

	cfg := domain.DefaultRuntimeConfig()
	cfg.Coordination.MaxParallel = 2
	cfg.Coordination.ToolTimeout = 5 * time.Second
	cfg.PlanCacheSize = 1
	coord.ApplyConfig(cfg)

	require.Equal(t, 2, coord.Options().MaxParallel)
	require.Equal(t, 5*time.Second, coord.Options().ToolTimeout)

	for _, id := range []string{"a", "b", "c"} {
		_, err := coord.Plan(context.Background(), domain.CoordinationRequest{RequestID: id, Tools: []string{"data_validator"}})
		require.NoError(t, err)
	}
	require.Equal(t, 1, coord.Stats().CachedPlans)
}

func TestCoordinator_RegisterBumpsRevision(t *testing.T) {
	coord := newTestCoordinator(t, domain.DefaultRuntimeConfig())
	before := coord.CatalogRevision()

	err := coord.Register(&domain.FuncTool{
		Desc: domain.ToolDescriptor{Name: "echo"},
		Run: func(_ context.Context, shared *domain.SharedContext) domain.ExecutionResult {
			return domain.Succeeded("echo", nil, shared.UserRequest)
		},
	})
	require.NoError(t, err)
	require.Greater(t, coord.CatalogRevision(), before)

	result, err := coord.Coordinate(context.Background(), domain.CoordinationRequest{UserRequest: "hi", Tools: []string{"echo"}})
	require.NoError(t, err)
	require.Equal(t, "hi", result.Results["echo"].Output)
}
