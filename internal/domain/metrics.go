package domain

import "time"

// CoordinationStatus labels the outcome of a coordination run.
type CoordinationStatus string

const (
	CoordinationStatusSuccess  CoordinationStatus = "success"
	CoordinationStatusDegraded CoordinationStatus = "degraded"
	CoordinationStatusFailure  CoordinationStatus = "failure"
)

// ToolExecutionMetric captures a single tool invocation.
type ToolExecutionMetric struct {
	Tool     string
	Success  bool
	Kind     ErrorKind
	Attempts int
	Duration time.Duration
}

// CoordinationMetric captures one coordination run.
type CoordinationMetric struct {
	Status   CoordinationStatus
	Tools    int
	Stages   int
	Duration time.Duration
}

// Metrics records operational metrics for the coordination engine.
type Metrics interface {
	ObserveToolExecution(metric ToolExecutionMetric)
	ObserveCoordination(metric CoordinationMetric)
	ObserveRecoveryDecision(tool string, kind ErrorKind, state RecoveryState)
	ObserveResolutionFailure(kind ResolutionErrorKind)
	ObservePlanCache(hit bool)
	SetRegisteredTools(count int)
}
