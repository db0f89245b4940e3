package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldTool       = "tool"
	FieldStage      = "stage"
	FieldState      = "state"
	FieldErrorKind  = "error_kind"
	FieldAttempt    = "attempt"
	FieldDurationMs = "duration_ms"
	FieldRequestID  = "request_id"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
)

const (
	EventToolStart        = "tool_start"
	EventToolSuccess      = "tool_success"
	EventToolFailure      = "tool_failure"
	EventToolPanic        = "tool_panic"
	EventPrepareFailure   = "prepare_failure"
	EventCoordinateHook   = "coordinate_hook_failure"
	EventStageStart       = "stage_start"
	EventStageHalt        = "stage_halt"
	EventRecoveryDecision = "recovery_decision"
	EventCycleBreak       = "cycle_break"
	EventConfigReload     = "config_reload"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func ToolField(tool string) zap.Field {
	return zap.String(FieldTool, tool)
}

func StageField(index int) zap.Field {
	return zap.Int(FieldStage, index)
}

func StateField(state string) zap.Field {
	return zap.String(FieldState, state)
}

func ErrorKindField(kind string) zap.Field {
	return zap.String(FieldErrorKind, kind)
}

func AttemptField(attempt int) zap.Field {
	return zap.Int(FieldAttempt, attempt)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}

func TraceIDField(value string) zap.Field {
	return zap.String(FieldTraceID, value)
}

func SpanIDField(value string) zap.Field {
	return zap.String(FieldSpanID, value)
}
