package domain

import "time"

const (
	DefaultFailOnMissingDependencies = true
	DefaultPreferParallel            = true
	DefaultContinueOnOptionalFailure = false
	DefaultMaxParallel               = 8
	DefaultToolTimeout               = 30 * time.Second
	DefaultToolEstimate              = time.Second
	DefaultPlanCacheSize             = 128

	DefaultRecoveryEnabled    = true
	DefaultMaxRetries         = 3
	DefaultHistorySize        = 1000
	DefaultHealthCooldown     = 5 * time.Minute
	DefaultUnhealthyThreshold = 3

	DefaultObservabilityListenAddress = "127.0.0.1:9090"
	DefaultMetricsEnabled             = false
)

// DefaultBackoff is the retry delay schedule indexed by retry count.
func DefaultBackoff() []time.Duration {
	return []time.Duration{time.Second, 2 * time.Second, 5 * time.Second}
}
