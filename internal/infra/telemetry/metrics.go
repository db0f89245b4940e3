package telemetry

import (
	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveToolExecution(_ domain.ToolExecutionMetric) {}

func (n *NoopMetrics) ObserveCoordination(_ domain.CoordinationMetric) {}

func (n *NoopMetrics) ObserveRecoveryDecision(_ string, _ domain.ErrorKind, _ domain.RecoveryState) {
}

func (n *NoopMetrics) ObserveResolutionFailure(_ domain.ResolutionErrorKind) {}

func (n *NoopMetrics) ObservePlanCache(_ bool) {}

func (n *NoopMetrics) SetRegisteredTools(_ int) {}

var _ domain.Metrics = (*NoopMetrics)(nil)
