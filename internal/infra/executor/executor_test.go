package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
	"github.com/mikeoller82/codexa-sub000/internal/infra/catalog"
	"github.com/mikeoller82/codexa-sub000/internal/infra/recovery"
	"github.com/mikeoller82/codexa-sub000/internal/infra/telemetry"
)

type recordingMetrics struct {
	telemetry.NoopMetrics

	mu            sync.Mutex
	tools         []domain.ToolExecutionMetric
	coordinations []domain.CoordinationMetric
}

func (m *recordingMetrics) ObserveToolExecution(metric domain.ToolExecutionMetric) {
	m.mu.Lock()
	m.tools = append(m.tools, metric)
	m.mu.Unlock()
}

func (m *recordingMetrics) ObserveCoordination(metric domain.CoordinationMetric) {
	m.mu.Lock()
	m.coordinations = append(m.coordinations, metric)
	m.mu.Unlock()
}

type harness struct {
	exec    *Executor
	manager *recovery.Manager
	metrics *recordingMetrics
	delays  []time.Duration
}

func newHarness(t *testing.T, withRecovery bool, tools ...*domain.FuncTool) *harness {
	t.Helper()
	c := catalog.New(zap.NewNop(), nil)
	for _, tool := range tools {
		require.NoError(t, c.Register(tool))
	}
	h := &harness{metrics: &recordingMetrics{}}
	var recoverer Recoverer
	if withRecovery {
		h.manager = recovery.NewManager(domain.DefaultRecoveryConfig(), zap.NewNop(), nil)
		recoverer = h.manager
	}
	h.exec = New(c, recoverer, zap.NewNop(), h.metrics)
	h.exec.sleep = func(ctx context.Context, d time.Duration) error {
		h.delays = append(h.delays, d)
		return ctx.Err()
	}
	return h
}

func tool(name string, run func(ctx context.Context, shared *domain.SharedContext) domain.ExecutionResult) *domain.FuncTool {
	return &domain.FuncTool{Desc: domain.ToolDescriptor{Name: name}, Run: run}
}

func ok(name string) func(context.Context, *domain.SharedContext) domain.ExecutionResult {
	return func(context.Context, *domain.SharedContext) domain.ExecutionResult {
		return domain.Succeeded(name, name+"-payload", name+" done")
	}
}

func failing(name string, err error) func(context.Context, *domain.SharedContext) domain.ExecutionResult {
	return func(context.Context, *domain.SharedContext) domain.ExecutionResult {
		return domain.Failed(name, err)
	}
}

func newPlan(deps map[string][]string, stages ...[]string) domain.CoordinationPlan {
	plan := domain.CoordinationPlan{
		RequestID:    "req-1",
		Dependencies: deps,
		Options:      domain.DefaultCoordinationOptions(),
	}
	for i, names := range stages {
		plan.Stages = append(plan.Stages, domain.Stage{Index: i, Tools: names, Parallel: len(names) > 1})
		plan.Tools = append(plan.Tools, names...)
	}
	return plan
}

func TestExecute_ForwardsDependencyResults(t *testing.T) {
	var received []string
	validator := tool("validator", func(_ context.Context, shared *domain.SharedContext) domain.ExecutionResult {
		shared.Set("validation_results", map[string]bool{"ok": true})
		return domain.Succeeded("validator", "valid", "")
	})
	processor := &domain.FuncTool{
		Desc: domain.ToolDescriptor{Name: "processor"},
		OnResult: func(_ context.Context, res domain.ExecutionResult, _ *domain.SharedContext) error {
			received = append(received, res.ToolName)
			return nil
		},
		Run: func(_ context.Context, shared *domain.SharedContext) domain.ExecutionResult {
			if _, ok := shared.Get("validation_results"); !ok {
				return domain.Failed("processor", errors.New("validation results missing"))
			}
			return domain.Succeeded("processor", nil, "processed")
		},
	}
	h := newHarness(t, true, validator, processor)
	shared := domain.NewSharedContext("req-1", "process data")

	res := h.exec.Execute(context.Background(), newPlan(map[string][]string{"processor": {"validator"}}, []string{"validator"}, []string{"processor"}), shared)

	require.True(t, res.Success, res.Errors)
	if diff := cmp.Diff([]string{"validator", "processor"}, res.ExecutionOrder); diff != "" {
		t.Fatalf("execution order mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []string{"validator"}, received)
	require.Equal(t, []string{"validator", "processor"}, shared.ToolChain())
	require.Equal(t, 1, res.Results["processor"].Attempts)
	require.Len(t, h.metrics.coordinations, 1)
	require.Equal(t, domain.CoordinationStatusSuccess, h.metrics.coordinations[0].Status)
	require.Len(t, h.metrics.tools, 2)
}

func TestExecute_ParallelStageRunsConcurrently(t *testing.T) {
	aStarted := make(chan struct{})
	bStarted := make(chan struct{})
	waitFor := func(name string, mine, other chan struct{}) func(context.Context, *domain.SharedContext) domain.ExecutionResult {
		return func(context.Context, *domain.SharedContext) domain.ExecutionResult {
			close(mine)
			select {
			case <-other:
				return domain.Succeeded(name, nil, "")
			case <-time.After(2 * time.Second):
				return domain.Failed(name, errors.New("sibling never started"))
			}
		}
	}
	h := newHarness(t, false,
		tool("a", waitFor("a", aStarted, bStarted)),
		tool("b", waitFor("b", bStarted, aStarted)),
	)

	res := h.exec.Execute(context.Background(), newPlan(nil, []string{"a", "b"}), nil)

	require.True(t, res.Success, res.Errors)
	if diff := cmp.Diff([]string{"a", "b"}, res.ExecutionOrder); diff != "" {
		t.Fatalf("execution order mismatch (-want +got):\n%s", diff)
	}
	require.InDelta(t, 1.0, res.ParallelEfficiency, 0.0001)
}

func TestExecute_SequentialStageSharesSiblingResults(t *testing.T) {
	var got []string
	b := &domain.FuncTool{
		Desc: domain.ToolDescriptor{Name: "b"},
		OnResult: func(_ context.Context, res domain.ExecutionResult, _ *domain.SharedContext) error {
			got = append(got, res.ToolName)
			return nil
		},
	}
	h := newHarness(t, false, tool("a", ok("a")), b)
	plan := newPlan(nil, []string{"a", "b"})
	plan.Stages[0].Parallel = false

	res := h.exec.Execute(context.Background(), plan, nil)

	require.True(t, res.Success)
	require.Equal(t, []string{"a"}, got)
}

func TestExecute_FailureHaltsLaterStages(t *testing.T) {
	h := newHarness(t, false,
		tool("a", failing("a", errors.New("boom"))),
		tool("b", ok("b")),
	)

	res := h.exec.Execute(context.Background(), newPlan(nil, []string{"a"}, []string{"b"}), nil)

	require.False(t, res.Success)
	require.Equal(t, []string{"tool a failed: boom"}, res.Errors)
	require.Equal(t, []string{"a"}, res.ExecutionOrder)
	require.Contains(t, res.Warnings, "skipped tools after failure: b")
	require.Equal(t, domain.ErrorKindTool, res.Results["a"].Kind)
	require.Equal(t, domain.CoordinationStatusFailure, h.metrics.coordinations[0].Status)
}

func TestExecute_ContinueOnOptionalFailure(t *testing.T) {
	h := newHarness(t, false,
		tool("a", failing("a", errors.New("boom"))),
		tool("b", ok("b")),
	)
	plan := newPlan(nil, []string{"a"}, []string{"b"})
	plan.Options.ContinueOnOptionalFailure = true

	res := h.exec.Execute(context.Background(), plan, nil)

	require.False(t, res.Success)
	require.Equal(t, []string{"a", "b"}, res.ExecutionOrder)
	require.Equal(t, []string{"b"}, res.SuccessfulTools())
	require.Equal(t, []string{"a"}, res.FailedTools())
}

func TestExecute_ParallelFailureDoesNotCancelSiblings(t *testing.T) {
	h := newHarness(t, false,
		tool("a", failing("a", errors.New("boom"))),
		tool("b", func(ctx context.Context, _ *domain.SharedContext) domain.ExecutionResult {
			time.Sleep(20 * time.Millisecond)
			if ctx.Err() != nil {
				return domain.Failed("b", ctx.Err())
			}
			return domain.Succeeded("b", nil, "")
		}),
		tool("c", ok("c")),
	)

	res := h.exec.Execute(context.Background(), newPlan(nil, []string{"a", "b"}, []string{"c"}), nil)

	require.False(t, res.Success)
	require.True(t, res.Results["b"].Success)
	require.NotContains(t, res.Results, "c")
}

func TestExecute_TimeoutRetriedThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	slow := &domain.FuncTool{
		Desc: domain.ToolDescriptor{Name: "slow", Timeout: 20 * time.Millisecond},
		Run: func(ctx context.Context, _ *domain.SharedContext) domain.ExecutionResult {
			if calls.Add(1) == 1 {
				<-ctx.Done()
				return domain.Failed("slow", ctx.Err())
			}
			return domain.Succeeded("slow", nil, "fast enough")
		},
	}
	h := newHarness(t, true, slow)

	res := h.exec.Execute(context.Background(), newPlan(nil, []string{"slow"}), nil)

	require.True(t, res.Success, res.Errors)
	require.Equal(t, 2, res.Results["slow"].Attempts)
	require.Equal(t, []time.Duration{time.Second}, h.delays)
}

func TestExecute_AbandonsToolIgnoringDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stuck := &domain.FuncTool{
		Desc: domain.ToolDescriptor{Name: "stuck", Timeout: 10 * time.Millisecond},
		Run: func(context.Context, *domain.SharedContext) domain.ExecutionResult {
			<-release
			return domain.Succeeded("stuck", nil, "")
		},
	}
	h := newHarness(t, false, stuck)

	res := h.exec.Execute(context.Background(), newPlan(nil, []string{"stuck"}), nil)

	require.False(t, res.Success)
	require.Equal(t, domain.ErrorKindTimeout, res.Results["stuck"].Kind)
}

func TestExecute_ConnectionFailureDegradesAfterRetries(t *testing.T) {
	h := newHarness(t, true, tool("shell", failing("shell", domain.ErrConnection)))

	res := h.exec.Execute(context.Background(), newPlan(nil, []string{"shell"}), nil)

	require.True(t, res.Success, res.Errors)
	require.True(t, res.Degraded())
	got := res.Results["shell"]
	require.True(t, got.Degraded)
	require.Equal(t, 4, got.Attempts)
	require.Contains(t, got.Output, "I encountered an issue with the shell tool")
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 5 * time.Second}, h.delays)
	require.Contains(t, res.Warnings, "tool shell returned a degraded result after connection failure")
	require.Equal(t, domain.CoordinationStatusDegraded, h.metrics.coordinations[0].Status)
}

func TestExecute_RateLimitFallsBackToProvider(t *testing.T) {
	rateLimited := &domain.ToolError{Kind: domain.ErrorKindRateLimit, Message: "rate limit exceeded"}
	h := newHarness(t, true,
		tool("ai_text_generation", failing("ai_text_generation", rateLimited)),
		tool("ai_provider", ok("ai_provider")),
	)

	res := h.exec.Execute(context.Background(), newPlan(nil, []string{"ai_text_generation"}), nil)

	require.True(t, res.Success, res.Errors)
	got := res.Results["ai_text_generation"]
	require.Equal(t, "ai_text_generation", got.ToolName)
	require.Equal(t, "ai_provider", got.FallbackFrom)
	require.Equal(t, "ai_provider done", got.Output)
	require.Equal(t, 2, got.Attempts)
	require.Contains(t, res.Warnings, "tool ai_text_generation was satisfied by fallback ai_provider")
}

func TestExecute_ExhaustedFallbackPropagatesFailure(t *testing.T) {
	rateLimited := &domain.ToolError{Kind: domain.ErrorKindRateLimit, Message: "rate limit exceeded"}
	h := newHarness(t, true, tool("ai_text_generation", failing("ai_text_generation", rateLimited)))

	res := h.exec.Execute(context.Background(), newPlan(nil, []string{"ai_text_generation"}), nil)

	require.False(t, res.Success)
	require.Equal(t, []string{"tool ai_text_generation failed: rate limit exceeded"}, res.Errors)
}

func TestExecute_CriticalFailureAborts(t *testing.T) {
	critical := &domain.ToolError{Kind: domain.ErrorKindTool, Severity: domain.SeverityCritical, Message: "disk gone"}
	h := newHarness(t, true, tool("writer", failing("writer", critical)))

	res := h.exec.Execute(context.Background(), newPlan(nil, []string{"writer"}), nil)

	require.False(t, res.Success)
	require.Empty(t, h.delays)
	require.Equal(t, 1, res.Results["writer"].Attempts)
	require.ErrorIs(t, res.Results["writer"].Err, critical)
}

func TestExecute_PanicBecomesInternalFailure(t *testing.T) {
	h := newHarness(t, false, tool("explode", func(context.Context, *domain.SharedContext) domain.ExecutionResult {
		panic("kaboom")
	}))

	res := h.exec.Execute(context.Background(), newPlan(nil, []string{"explode"}), nil)

	require.False(t, res.Success)
	require.Equal(t, domain.ErrorKindInternal, res.Results["explode"].Kind)
	require.Contains(t, res.Errors[0], "panicked: kaboom")
}

func TestExecute_PrepareFailureIsWarning(t *testing.T) {
	prep := &domain.FuncTool{
		Desc:     domain.ToolDescriptor{Name: "prep"},
		PrepareF: func(context.Context, *domain.SharedContext) error { return errors.New("cold cache") },
	}
	h := newHarness(t, false, prep)

	res := h.exec.Execute(context.Background(), newPlan(nil, []string{"prep"}), nil)

	require.True(t, res.Success)
	require.Contains(t, res.Warnings, "prepare hook for prep failed: cold cache")
}

func TestExecute_CanceledContextSkipsStages(t *testing.T) {
	h := newHarness(t, false, tool("a", ok("a")), tool("b", ok("b")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := h.exec.Execute(ctx, newPlan(nil, []string{"a"}, []string{"b"}), nil)

	require.False(t, res.Success)
	require.Empty(t, res.ExecutionOrder)
	require.Contains(t, res.Warnings, "skipped tools after failure: a, b")
}

func TestExecute_UnregisteredToolFails(t *testing.T) {
	h := newHarness(t, true)

	res := h.exec.Execute(context.Background(), newPlan(nil, []string{"ghost"}), nil)

	require.False(t, res.Success)
	require.ErrorIs(t, res.Results["ghost"].Err, domain.ErrToolNotFound)
	require.Equal(t, domain.ErrorKindConfiguration, res.Results["ghost"].Kind)
}
