package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
	"github.com/mikeoller82/codexa-sub000/internal/infra/telemetry"
)

// runTool invokes name and drives the recovery state machine until the
// failure is resolved or a terminal state is reached.
func (e *Executor) runTool(ctx context.Context, run *coordinationRun, name string) domain.ExecutionResult {
	res := e.invoke(ctx, run, name)
	attempts := 1
	if res.Success {
		e.markSuccess(name)
		res.Attempts = attempts
		return res
	}
	if e.recoverer == nil || !e.recoverer.Enabled() {
		res.Attempts = attempts
		return res
	}

	ec := e.recoverer.Classify(name, res.Err)
	for {
		if ctx.Err() != nil {
			res.Attempts = attempts
			return res
		}
		decision := e.recoverer.Decide(ec)
		switch decision.State {
		case domain.RecoveryRetrying:
			if err := e.sleep(ctx, decision.Delay); err != nil {
				res.Attempts = attempts
				return res
			}
			ec.RetryCount++
			attempts++
			res = e.invoke(ctx, run, name)
			if res.Success {
				e.markSuccess(name)
				res.Attempts = attempts
				return res
			}
			next := e.recoverer.Classify(name, res.Err)
			next.RetryCount = ec.RetryCount
			ec = next

		case domain.RecoveryFallback:
			if fb, ok := e.fallback(ctx, run, name, decision.Candidates); ok {
				fb.Attempts = attempts + 1
				return fb
			}
			// Exhausted fallback propagates the original failure.
			res.Attempts = attempts
			return res

		case domain.RecoveryDegraded:
			return e.degrade(ec, attempts)

		default:
			res.Attempts = attempts
			return res
		}
	}
}

func (e *Executor) degrade(ec domain.ErrorContext, attempts int) domain.ExecutionResult {
	res := e.recoverer.Degrade(ec)
	res.ToolName = ec.ToolName
	res.Attempts = attempts
	res.Degraded = true
	return res
}

// fallback tries each registered, healthy candidate once. The returned result
// keeps the original tool name so dependents find it.
func (e *Executor) fallback(ctx context.Context, run *coordinationRun, name string, candidates []string) (domain.ExecutionResult, bool) {
	for _, candidate := range candidates {
		if candidate == name {
			continue
		}
		if _, ok := e.tools.Tool(candidate); !ok {
			continue
		}
		if !e.recoverer.Healthy(candidate) {
			continue
		}
		res := e.invoke(ctx, run, candidate)
		if !res.Success {
			run.logger.Debug("fallback candidate failed", telemetry.ToolField(name), zap.String("candidate", candidate), zap.Error(res.Err))
			continue
		}
		e.markSuccess(candidate)
		res.ToolName = name
		res.FallbackFrom = candidate
		return res, true
	}
	return domain.ExecutionResult{}, false
}

func (e *Executor) markSuccess(name string) {
	if e.recoverer != nil {
		e.recoverer.RecordSuccess(name)
	}
}

type invocation struct {
	res domain.ExecutionResult
}

// invoke runs one attempt of a tool under its timeout. A tool that ignores
// cancellation is abandoned once the deadline passes.
func (e *Executor) invoke(ctx context.Context, run *coordinationRun, name string) domain.ExecutionResult {
	tool, ok := e.tools.Tool(name)
	if !ok {
		err := &domain.ToolError{
			Kind:     domain.ErrorKindConfiguration,
			Severity: domain.SeverityCritical,
			Message:  fmt.Sprintf("tool %s is not registered", name),
			Cause:    domain.ErrToolNotFound,
		}
		return domain.Failed(name, err)
	}

	timeout := tool.Descriptor().Timeout
	if timeout <= 0 {
		timeout = run.plan.Options.ToolTimeout
	}
	if timeout <= 0 {
		timeout = domain.DefaultToolTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger := run.logger.With(telemetry.ToolField(name))
	logger.Debug("tool started", telemetry.EventField(telemetry.EventToolStart))

	start := time.Now()
	done := make(chan invocation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("tool panicked",
					telemetry.EventField(telemetry.EventToolPanic),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				done <- invocation{res: domain.Failed(name, &domain.ToolError{
					Kind:     domain.ErrorKindInternal,
					Severity: domain.SeverityHigh,
					Message:  fmt.Sprintf("tool %s panicked: %v", name, r),
				})}
			}
		}()
		done <- invocation{res: tool.Execute(callCtx, run.shared)}
	}()

	var res domain.ExecutionResult
	select {
	case out := <-done:
		res = out.res
	case <-callCtx.Done():
		err := callCtx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = &domain.ToolError{
				Kind:    domain.ErrorKindTimeout,
				Message: fmt.Sprintf("tool %s timed out after %s", name, timeout),
				Cause:   err,
			}
		}
		res = domain.Failed(name, err)
	}
	return normalizeResult(name, res, time.Since(start))
}

func normalizeResult(name string, res domain.ExecutionResult, elapsed time.Duration) domain.ExecutionResult {
	res.ToolName = name
	if res.Duration <= 0 {
		res.Duration = elapsed
	}
	if res.Success {
		res.Err = nil
		return res
	}
	if res.Err == nil {
		res.Err = fmt.Errorf("tool %s reported failure without an error", name)
	}
	if res.Kind != "" {
		var toolErr *domain.ToolError
		if !errors.As(res.Err, &toolErr) {
			res.Err = &domain.ToolError{Kind: res.Kind, Message: res.Err.Error(), Cause: res.Err}
		}
	}
	res.Kind = domain.ClassifyError(res.Err)
	return res
}
