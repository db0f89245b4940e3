package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

func TestLoader_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := NewLoader(zap.NewNop()).Load(context.Background(), "")
	require.NoError(t, err)
	if diff := cmp.Diff(domain.DefaultRuntimeConfig(), cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_Success(t *testing.T) {
	file := writeTempConfig(t, `
coordination:
	failOnMissingDependencies: false
	preferParallel: false
	continueOnOptionalFailure: true
	maxParallel: 2
	toolTimeout: 5s
	planCacheSize: 16
recovery:
	maxRetries: 1
	backoff: [10ms, 20ms]
	historySize: 50
	cooldown: 1m
	unhealthyThreshold: 2
	fallbacks:
		search: [grep, " find "]
observability:
	listenAddress: 127.0.0.1:9999
	metricsEnabled: true
`)

	cfg, err := NewLoader(zap.NewNop()).Load(context.Background(), file)
	require.NoError(t, err)

	want := domain.RuntimeConfig{
		Coordination: domain.CoordinationOptions{
			FailOnMissingDependencies: false,
			PreferParallel:            false,
			ContinueOnOptionalFailure: true,
			MaxParallel:               2,
			ToolTimeout:               5 * time.Second,
		},
		PlanCacheSize: 16,
		Recovery: domain.RecoveryConfig{
			Enabled:            true,
			MaxRetries:         1,
			Backoff:            []time.Duration{10 * time.Millisecond, 20 * time.Millisecond},
			HistorySize:        50,
			Cooldown:           time.Minute,
			UnhealthyThreshold: 2,
			Fallbacks:          map[string][]string{"search": {"grep", "find"}},
		},
		Observability: domain.ObservabilityConfig{ListenAddress: "127.0.0.1:9999", MetricsEnabled: true},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_EnvExpansion(t *testing.T) {
	t.Setenv("CODEXA_MAX_PARALLEL", "3")
	file := writeTempConfig(t, `
coordination:
	maxParallel: ${CODEXA_MAX_PARALLEL}
	toolTimeout: ${CODEXA_TIMEOUT:-7s}
`)

	cfg, err := NewLoader(zap.NewNop()).Load(context.Background(), file)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Coordination.MaxParallel)
	require.Equal(t, 7*time.Second, cfg.Coordination.ToolTimeout)
}

func TestLoader_ValidationErrorsJoined(t *testing.T) {
	file := writeTempConfig(t, `
coordination:
	maxParallel: -1
	toolTimeout: soon
recovery:
	historySize: 0
`)

	_, err := NewLoader(zap.NewNop()).Load(context.Background(), file)
	require.Error(t, err)
	require.Contains(t, err.Error(), "coordination.maxParallel must be >= 0")
	require.Contains(t, err.Error(), "coordination.toolTimeout")
	require.Contains(t, err.Error(), "recovery.historySize must be > 0")

	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	require.Equal(t, domain.CodeInvalidArgument, code)
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(nil).Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoader_ContextCanceled(t *testing.T) {
	file := writeTempConfig(t, `
coordination:
	maxParallel: 1
`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(nil).Load(ctx, file)
	require.ErrorIs(t, err, context.Canceled)
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "codexa.yaml")
	normalized := strings.ReplaceAll(content, "\t", "  ")
	if err := os.WriteFile(path, []byte(normalized), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}
