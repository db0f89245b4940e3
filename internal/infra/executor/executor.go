package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
	"github.com/mikeoller82/codexa-sub000/internal/infra/telemetry"
)

// Recoverer is consulted after a tool fails.
type Recoverer interface {
	Enabled() bool
	Classify(tool string, err error) domain.ErrorContext
	Decide(ec domain.ErrorContext) domain.RecoveryDecision
	Degrade(ec domain.ErrorContext) domain.ExecutionResult
	Healthy(tool string) bool
	RecordSuccess(tool string)
}

// Executor runs a plan stage by stage.
type Executor struct {
	tools     domain.ToolLookup
	recoverer Recoverer
	logger    *zap.Logger
	metrics   domain.Metrics
	sleep     func(ctx context.Context, d time.Duration) error
}

func New(tools domain.ToolLookup, recoverer Recoverer, logger *zap.Logger, metrics domain.Metrics) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		tools:     tools,
		recoverer: recoverer,
		logger:    logger.Named("executor"),
		metrics:   metrics,
		sleep:     sleepContext,
	}
}

// Execute runs every stage of plan in order. Tool failures are reported inside
// the result; the method itself never fails.
func (e *Executor) Execute(ctx context.Context, plan domain.CoordinationPlan, shared *domain.SharedContext) domain.CoordinationResult {
	start := time.Now()
	if shared == nil {
		shared = domain.NewSharedContext(plan.RequestID, "")
	}
	ctx, _ = telemetry.EnsureRequestMeta(ctx, plan.RequestID)
	ctx, span := telemetry.StartSpan(ctx, "coordination.execute",
		attribute.String("request_id", plan.RequestID),
		attribute.Int("stages", len(plan.Stages)),
	)
	logger := telemetry.LoggerWithRequest(ctx, e.logger)

	run := &coordinationRun{
		plan:   plan,
		shared: shared,
		logger: logger,
		result: domain.CoordinationResult{
			RequestID:          plan.RequestID,
			Results:            make(map[string]domain.ExecutionResult, len(plan.Tools)),
			ExecutionOrder:     make([]string, 0, len(plan.Tools)),
			Warnings:           append([]string(nil), plan.Warnings...),
			ParallelEfficiency: plan.ParallelEfficiency(),
		},
	}

	for i, stage := range plan.Stages {
		if err := ctx.Err(); err != nil {
			run.result.Errors = append(run.result.Errors, fmt.Sprintf("coordination canceled before stage %d: %v", stage.Index, err))
			run.skip(plan.Stages[i:], nil)
			break
		}
		halted := e.runStage(ctx, run, stage)
		if halted {
			run.skip(plan.Stages[i+1:], nil)
			break
		}
	}

	result := run.result
	result.Success = len(result.Errors) == 0
	result.Duration = time.Since(start)

	var spanErr error
	if !result.Success {
		spanErr = errors.New(strings.Join(result.Errors, "; "))
	}
	telemetry.EndSpan(span, spanErr)

	if e.metrics != nil {
		status := domain.CoordinationStatusSuccess
		switch {
		case !result.Success:
			status = domain.CoordinationStatusFailure
		case result.Degraded():
			status = domain.CoordinationStatusDegraded
		}
		e.metrics.ObserveCoordination(domain.CoordinationMetric{
			Status:   status,
			Tools:    len(result.ExecutionOrder),
			Stages:   len(plan.Stages),
			Duration: result.Duration,
		})
	}
	logger.Info("coordination finished",
		zap.Bool("success", result.Success),
		zap.Int("tools", len(result.ExecutionOrder)),
		zap.Int("errors", len(result.Errors)),
		telemetry.DurationField(result.Duration),
	)
	return result
}

type coordinationRun struct {
	plan   domain.CoordinationPlan
	shared *domain.SharedContext
	logger *zap.Logger
	result domain.CoordinationResult
}

func (r *coordinationRun) warn(msg string) {
	r.result.Warnings = append(r.result.Warnings, msg)
}

// skip reports tools that will never run.
func (r *coordinationRun) skip(stages []domain.Stage, extra []string) {
	skipped := append([]string(nil), extra...)
	for _, stage := range stages {
		skipped = append(skipped, stage.Tools...)
	}
	if len(skipped) == 0 {
		return
	}
	r.warn(fmt.Sprintf("skipped tools after failure: %s", strings.Join(skipped, ", ")))
}

// runStage executes one stage and reports whether coordination must halt.
func (e *Executor) runStage(ctx context.Context, run *coordinationRun, stage domain.Stage) bool {
	ctx, span := telemetry.StartSpan(ctx, "coordination.stage",
		attribute.Int("stage", stage.Index),
		attribute.StringSlice("tools", stage.Tools),
	)
	logger := run.logger.With(telemetry.StageField(stage.Index))
	logger.Debug("stage started", telemetry.EventField(telemetry.EventStageStart), zap.Strings("tools", stage.Tools))

	e.forwardDependencies(ctx, run, stage, logger)
	e.prepare(ctx, run, stage, logger)

	opts := run.plan.Options
	stageFailed := false
	if stage.Parallel && len(stage.Tools) > 1 {
		results := e.runParallel(ctx, run, stage.Tools)
		for _, res := range results {
			if !e.record(run, res, logger) {
				stageFailed = true
			}
		}
		for _, res := range results {
			if res.Success {
				e.coordinateSiblings(ctx, run, stage, res, logger)
			}
		}
	} else {
		for i, name := range stage.Tools {
			res := e.runTool(ctx, run, name)
			if !e.record(run, res, logger) {
				stageFailed = true
				if !opts.ContinueOnOptionalFailure {
					run.skip(nil, stage.Tools[i+1:])
					break
				}
				continue
			}
			e.coordinateSiblings(ctx, run, stage, res, logger)
		}
	}

	halt := stageFailed && !opts.ContinueOnOptionalFailure
	var spanErr error
	if stageFailed {
		spanErr = fmt.Errorf("stage %d had failures", stage.Index)
	}
	telemetry.EndSpan(span, spanErr)
	if halt {
		logger.Warn("halting coordination after failed stage", telemetry.EventField(telemetry.EventStageHalt))
	}
	return halt
}

// runParallel fans out one goroutine per tool and waits for all of them. A
// failing sibling never cancels the others.
func (e *Executor) runParallel(ctx context.Context, run *coordinationRun, names []string) []domain.ExecutionResult {
	results := make([]domain.ExecutionResult, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i] = e.runTool(ctx, run, name)
		}(i, name)
	}
	wg.Wait()
	return results
}

// record stores res and reports whether it counts as a success.
func (e *Executor) record(run *coordinationRun, res domain.ExecutionResult, logger *zap.Logger) bool {
	run.result.Results[res.ToolName] = res
	run.result.ExecutionOrder = append(run.result.ExecutionOrder, res.ToolName)
	run.shared.SetResult(res)

	if e.metrics != nil {
		e.metrics.ObserveToolExecution(domain.ToolExecutionMetric{
			Tool:     res.ToolName,
			Success:  res.Success,
			Kind:     res.Kind,
			Attempts: res.Attempts,
			Duration: res.Duration,
		})
	}

	switch {
	case !res.Success:
		run.result.Errors = append(run.result.Errors, fmt.Sprintf("tool %s failed: %s", res.ToolName, res.ErrorMessage()))
		logger.Warn("tool failed",
			telemetry.EventField(telemetry.EventToolFailure),
			telemetry.ToolField(res.ToolName),
			telemetry.ErrorKindField(string(res.Kind)),
			telemetry.AttemptField(res.Attempts),
			telemetry.DurationField(res.Duration),
			zap.Error(res.Err),
		)
		return false
	case res.Degraded:
		run.warn(fmt.Sprintf("tool %s returned a degraded result after %s failure", res.ToolName, res.Kind))
	case res.FallbackFrom != "":
		run.warn(fmt.Sprintf("tool %s was satisfied by fallback %s", res.ToolName, res.FallbackFrom))
	}
	logger.Debug("tool succeeded",
		telemetry.EventField(telemetry.EventToolSuccess),
		telemetry.ToolField(res.ToolName),
		telemetry.AttemptField(res.Attempts),
		telemetry.DurationField(res.Duration),
	)
	return true
}

// forwardDependencies hands results of earlier stages to the dependents in
// this stage before they run.
func (e *Executor) forwardDependencies(ctx context.Context, run *coordinationRun, stage domain.Stage, logger *zap.Logger) {
	for _, name := range stage.Tools {
		consumer, ok := e.consumer(name)
		if !ok {
			continue
		}
		for _, dep := range run.plan.Dependencies[name] {
			res, ok := run.result.Results[dep]
			if !ok || !res.Success {
				continue
			}
			if err := consumer.OnDependencyResult(ctx, res, run.shared); err != nil {
				run.warn(fmt.Sprintf("tool %s could not consume result of %s: %v", name, dep, err))
				logger.Warn("dependency hook failed", telemetry.EventField(telemetry.EventCoordinateHook), telemetry.ToolField(name), zap.String("dependency", dep), zap.Error(err))
			}
		}
	}
}

func (e *Executor) prepare(ctx context.Context, run *coordinationRun, stage domain.Stage, logger *zap.Logger) {
	for _, name := range stage.Tools {
		tool, ok := e.tools.Tool(name)
		if !ok {
			continue
		}
		preparer, ok := tool.(domain.Preparer)
		if !ok {
			continue
		}
		if err := preparer.Prepare(ctx, run.shared); err != nil {
			run.warn(fmt.Sprintf("prepare hook for %s failed: %v", name, err))
			logger.Warn("prepare hook failed", telemetry.EventField(telemetry.EventPrepareFailure), telemetry.ToolField(name), zap.Error(err))
		}
	}
}

// coordinateSiblings passes a completed result to every other tool of the stage.
func (e *Executor) coordinateSiblings(ctx context.Context, run *coordinationRun, stage domain.Stage, res domain.ExecutionResult, logger *zap.Logger) {
	for _, name := range stage.Tools {
		if name == res.ToolName {
			continue
		}
		consumer, ok := e.consumer(name)
		if !ok {
			continue
		}
		if err := consumer.OnDependencyResult(ctx, res, run.shared); err != nil {
			run.warn(fmt.Sprintf("tool %s could not consume result of %s: %v", name, res.ToolName, err))
			logger.Warn("coordinate hook failed", telemetry.EventField(telemetry.EventCoordinateHook), telemetry.ToolField(name), zap.String("dependency", res.ToolName), zap.Error(err))
		}
	}
}

func (e *Executor) consumer(name string) (domain.DependencyConsumer, bool) {
	tool, ok := e.tools.Tool(name)
	if !ok {
		return nil, false
	}
	consumer, ok := tool.(domain.DependencyConsumer)
	return consumer, ok
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
