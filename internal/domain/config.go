package domain

import "time"

// RecoveryConfig controls the recovery manager.
type RecoveryConfig struct {
	Enabled            bool
	MaxRetries         int
	Backoff            []time.Duration
	HistorySize        int
	Cooldown           time.Duration
	UnhealthyThreshold int
	// Fallbacks overrides the built-in fallback table. Keys ending in "*" match by prefix.
	Fallbacks map[string][]string
}

// ObservabilityConfig controls the metrics endpoint.
type ObservabilityConfig struct {
	ListenAddress  string
	MetricsEnabled bool
}

// RuntimeConfig is the full runtime configuration of the engine.
type RuntimeConfig struct {
	Coordination  CoordinationOptions
	PlanCacheSize int
	Recovery      RecoveryConfig
	Observability ObservabilityConfig
}

// DefaultRecoveryConfig returns the recovery defaults.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		Enabled:            DefaultRecoveryEnabled,
		MaxRetries:         DefaultMaxRetries,
		Backoff:            DefaultBackoff(),
		HistorySize:        DefaultHistorySize,
		Cooldown:           DefaultHealthCooldown,
		UnhealthyThreshold: DefaultUnhealthyThreshold,
	}
}

// DefaultRuntimeConfig returns a config with every default applied.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Coordination:  DefaultCoordinationOptions(),
		PlanCacheSize: DefaultPlanCacheSize,
		Recovery:      DefaultRecoveryConfig(),
		Observability: ObservabilityConfig{
			ListenAddress:  DefaultObservabilityListenAddress,
			MetricsEnabled: DefaultMetricsEnabled,
		},
	}
}
