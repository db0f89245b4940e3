package demotools

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
	"github.com/mikeoller82/codexa-sub000/internal/infra/catalog"
	"github.com/mikeoller82/codexa-sub000/internal/infra/executor"
	"github.com/mikeoller82/codexa-sub000/internal/infra/planner"
	"github.com/mikeoller82/codexa-sub000/internal/infra/recovery"
	"github.com/mikeoller82/codexa-sub000/internal/infra/resolver"
)

type pipeline struct {
	catalog *catalog.Catalog
	exec    *executor.Executor
}

func newPipeline(t *testing.T, opts Options) pipeline {
	t.Helper()
	c := catalog.New(zap.NewNop(), nil)
	require.NoError(t, Register(c, opts, zap.NewNop()))
	manager := recovery.NewManager(domain.DefaultRecoveryConfig(), zap.NewNop(), nil)
	return pipeline{catalog: c, exec: executor.New(c, manager, zap.NewNop(), nil)}
}

func (p pipeline) run(t *testing.T, request string, tools ...string) (domain.CoordinationPlan, domain.CoordinationResult, *domain.SharedContext) {
	t.Helper()
	opts := domain.DefaultCoordinationOptions()
	resolution, err := resolver.New(nil, nil).Resolve(tools, p.catalog, opts)
	require.NoError(t, err)
	plan := planner.New(nil).Build("req", resolution, p.catalog, opts)
	shared := domain.NewSharedContext("req", request)
	return plan, p.exec.Execute(context.Background(), plan, shared), shared
}

func TestRegister_AllToolsPresent(t *testing.T) {
	p := newPipeline(t, Options{})
	want := []string{"data_validator", "data_processor", "report_generator", "ai_text_generation", "ai_provider", "conversational_tool"}
	if diff := cmp.Diff(want, p.catalog.Names()); diff != "" {
		t.Fatalf("registered tools mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessorPullsInValidator(t *testing.T) {
	p := newPipeline(t, Options{})

	plan, res, shared := p.run(t, "process data", "data_processor")

	require.Equal(t, []string{"data_validator", "data_processor"}, plan.Tools)
	require.True(t, res.Success, res.Errors)
	require.Contains(t, res.Results["data_processor"].Output, "Processed 150 records")
	processed, ok := shared.Get(StateProcessingResults)
	require.True(t, ok)
	require.Equal(t, 150, processed.(ProcessingResults).ProcessedRecords)
}

func TestReportGeneratorUsesOptionalProcessor(t *testing.T) {
	p := newPipeline(t, Options{})

	plan, res, _ := p.run(t, "generate report", "report_generator")

	require.Equal(t, []string{"data_validator", "data_processor", "report_generator"}, plan.Tools)
	require.Equal(t, 3, plan.DependencyDepth())
	require.True(t, res.Success, res.Errors)
	report, ok := res.Results["report_generator"].Payload.(Report)
	require.True(t, ok)
	require.Equal(t, "Enhanced Data Report", report.Type)
}

func TestReportGeneratorStandalone(t *testing.T) {
	res := NewReportGenerator(nil).Execute(context.Background(), domain.NewSharedContext("req", ""))
	require.True(t, res.Success)
	require.Equal(t, "Basic Data Report", res.Payload.(Report).Type)
}

func TestProcessorWithoutValidationFails(t *testing.T) {
	res := NewDataProcessor(nil).Execute(context.Background(), domain.NewSharedContext("req", ""))
	require.False(t, res.Success)
	require.Equal(t, domain.ErrorKindValidation, res.Kind)
}

func TestTextGenerationFallsBackToProvider(t *testing.T) {
	p := newPipeline(t, Options{SimulateFailure: domain.ErrorKindRateLimit})

	_, res, _ := p.run(t, "write a poem", "ai_text_generation")

	require.True(t, res.Success, res.Errors)
	got := res.Results["ai_text_generation"]
	require.Equal(t, "ai_provider", got.FallbackFrom)
	require.Equal(t, "Provider response: write a poem", got.Output)
}

func TestTextGenerationSucceedsWithoutFailure(t *testing.T) {
	p := newPipeline(t, Options{})

	_, res, _ := p.run(t, "write a poem", "ai_text_generation")

	require.True(t, res.Success)
	require.Equal(t, "Generated: write a poem", res.Results["ai_text_generation"].Output)
}
