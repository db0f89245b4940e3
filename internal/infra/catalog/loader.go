package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

// Loader reads the runtime configuration of the coordination engine.
type Loader struct {
	logger *zap.Logger
}

func newRuntimeViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setRuntimeDefaults(v)
	return v
}

func setRuntimeDefaults(v *viper.Viper) {
	v.SetDefault("coordination.failOnMissingDependencies", domain.DefaultFailOnMissingDependencies)
	v.SetDefault("coordination.preferParallel", domain.DefaultPreferParallel)
	v.SetDefault("coordination.continueOnOptionalFailure", domain.DefaultContinueOnOptionalFailure)
	v.SetDefault("coordination.maxParallel", domain.DefaultMaxParallel)
	v.SetDefault("coordination.toolTimeout", domain.DefaultToolTimeout.String())
	v.SetDefault("coordination.planCacheSize", domain.DefaultPlanCacheSize)
	v.SetDefault("recovery.enabled", domain.DefaultRecoveryEnabled)
	v.SetDefault("recovery.maxRetries", domain.DefaultMaxRetries)
	v.SetDefault("recovery.backoff", durationStrings(domain.DefaultBackoff()))
	v.SetDefault("recovery.historySize", domain.DefaultHistorySize)
	v.SetDefault("recovery.cooldown", domain.DefaultHealthCooldown.String())
	v.SetDefault("recovery.unhealthyThreshold", domain.DefaultUnhealthyThreshold)
	v.SetDefault("observability.listenAddress", domain.DefaultObservabilityListenAddress)
	v.SetDefault("observability.metricsEnabled", domain.DefaultMetricsEnabled)
}

type rawRuntimeConfig struct {
	Coordination  rawCoordinationConfig  `mapstructure:"coordination"`
	Recovery      rawRecoveryConfig      `mapstructure:"recovery"`
	Observability rawObservabilityConfig `mapstructure:"observability"`
}

type rawCoordinationConfig struct {
	FailOnMissingDependencies bool   `mapstructure:"failOnMissingDependencies"`
	PreferParallel            bool   `mapstructure:"preferParallel"`
	ContinueOnOptionalFailure bool   `mapstructure:"continueOnOptionalFailure"`
	MaxParallel               int    `mapstructure:"maxParallel"`
	ToolTimeout               string `mapstructure:"toolTimeout"`
	PlanCacheSize             int    `mapstructure:"planCacheSize"`
}

type rawRecoveryConfig struct {
	Enabled            bool                `mapstructure:"enabled"`
	MaxRetries         int                 `mapstructure:"maxRetries"`
	Backoff            []string            `mapstructure:"backoff"`
	HistorySize        int                 `mapstructure:"historySize"`
	Cooldown           string              `mapstructure:"cooldown"`
	UnhealthyThreshold int                 `mapstructure:"unhealthyThreshold"`
	Fallbacks          map[string][]string `mapstructure:"fallbacks"`
}

type rawObservabilityConfig struct {
	ListenAddress  string `mapstructure:"listenAddress"`
	MetricsEnabled bool   `mapstructure:"metricsEnabled"`
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("config")}
}

// Load reads path and returns the normalized runtime config. An empty path
// yields the defaults.
func (l *Loader) Load(ctx context.Context, path string) (domain.RuntimeConfig, error) {
	if path == "" {
		return l.decode(ctx, "")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RuntimeConfig{}, fmt.Errorf("read config: %w", err)
	}

	expanded, missing, err := expandConfigEnv(data)
	if err != nil {
		return domain.RuntimeConfig{}, err
	}
	if len(missing) > 0 {
		l.logger.Warn("missing environment variables in config", zap.String("path", path), zap.Strings("missing", missing))
	}
	return l.decode(ctx, expanded)
}

func (l *Loader) decode(ctx context.Context, expanded string) (domain.RuntimeConfig, error) {
	v := newRuntimeViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return domain.RuntimeConfig{}, fmt.Errorf("parse config: %w", err)
	}

	var cfg rawRuntimeConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return domain.RuntimeConfig{}, fmt.Errorf("decode config: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return domain.RuntimeConfig{}, err
	}

	runtime, errs := normalizeRuntimeConfig(cfg)
	if len(errs) > 0 {
		return domain.RuntimeConfig{}, domain.E(domain.CodeInvalidArgument, "load config", strings.Join(errs, "; "), nil)
	}
	return runtime, nil
}

func normalizeRuntimeConfig(cfg rawRuntimeConfig) (domain.RuntimeConfig, []string) {
	var errs []string
	out := domain.DefaultRuntimeConfig()

	coord := cfg.Coordination
	out.Coordination.FailOnMissingDependencies = coord.FailOnMissingDependencies
	out.Coordination.PreferParallel = coord.PreferParallel
	out.Coordination.ContinueOnOptionalFailure = coord.ContinueOnOptionalFailure
	if coord.MaxParallel < 0 {
		errs = append(errs, "coordination.maxParallel must be >= 0")
	} else {
		out.Coordination.MaxParallel = coord.MaxParallel
	}
	if timeout, err := parseDuration(coord.ToolTimeout); err != nil {
		errs = append(errs, fmt.Sprintf("coordination.toolTimeout: %v", err))
	} else {
		out.Coordination.ToolTimeout = timeout
	}
	if coord.PlanCacheSize < 0 {
		errs = append(errs, "coordination.planCacheSize must be >= 0")
	} else {
		out.PlanCacheSize = coord.PlanCacheSize
	}

	rec := cfg.Recovery
	out.Recovery.Enabled = rec.Enabled
	if rec.MaxRetries < 0 {
		errs = append(errs, "recovery.maxRetries must be >= 0")
	} else {
		out.Recovery.MaxRetries = rec.MaxRetries
	}
	if len(rec.Backoff) == 0 {
		errs = append(errs, "recovery.backoff must not be empty")
	} else {
		backoff := make([]time.Duration, 0, len(rec.Backoff))
		for i, raw := range rec.Backoff {
			delay, err := parseDuration(raw)
			if err != nil {
				errs = append(errs, fmt.Sprintf("recovery.backoff[%d]: %v", i, err))
				continue
			}
			backoff = append(backoff, delay)
		}
		out.Recovery.Backoff = backoff
	}
	if rec.HistorySize <= 0 {
		errs = append(errs, "recovery.historySize must be > 0")
	} else {
		out.Recovery.HistorySize = rec.HistorySize
	}
	if cooldown, err := parseDuration(rec.Cooldown); err != nil {
		errs = append(errs, fmt.Sprintf("recovery.cooldown: %v", err))
	} else {
		out.Recovery.Cooldown = cooldown
	}
	if rec.UnhealthyThreshold <= 0 {
		errs = append(errs, "recovery.unhealthyThreshold must be > 0")
	} else {
		out.Recovery.UnhealthyThreshold = rec.UnhealthyThreshold
	}
	if len(rec.Fallbacks) > 0 {
		keys := make([]string, 0, len(rec.Fallbacks))
		for key := range rec.Fallbacks {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		fallbacks := make(map[string][]string, len(keys))
		for _, key := range keys {
			candidates := trimNames(rec.Fallbacks[key])
			if strings.TrimSpace(key) == "" {
				errs = append(errs, "recovery.fallbacks: empty tool name")
				continue
			}
			fallbacks[strings.TrimSpace(key)] = candidates
		}
		out.Recovery.Fallbacks = fallbacks
	}

	out.Observability.ListenAddress = strings.TrimSpace(cfg.Observability.ListenAddress)
	if out.Observability.ListenAddress == "" {
		out.Observability.ListenAddress = domain.DefaultObservabilityListenAddress
	}
	out.Observability.MetricsEnabled = cfg.Observability.MetricsEnabled

	return out, errs
}

func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("duration is required")
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", raw)
	}
	return d, nil
}

func durationStrings(values []time.Duration) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return out
}

func trimNames(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
