package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

func TestApp_ValidateConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codexa.yaml")
	writeConfig(t, path, `
coordination:
	maxParallel: 6
recovery:
	enabled: false
`)
	runtime, err := New(zap.NewNop()).ValidateConfig(context.Background(), ValidateConfig{ConfigPath: path})
	require.NoError(t, err)
	require.Equal(t, 6, runtime.Coordination.MaxParallel)
	require.False(t, runtime.Recovery.Enabled)
}

func TestApp_ValidateConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codexa.yaml")
	writeConfig(t, path, `
coordination:
	toolTimeout: soon
`)
	_, err := New(nil).ValidateConfig(context.Background(), ValidateConfig{ConfigPath: path})
	require.Error(t, err)
}

func TestApp_CoordinatorRegistersBuiltinTools(t *testing.T) {
	coord, err := New(zap.NewNop()).Coordinator(context.Background(), ServeConfig{
		SimulateFailure: domain.ErrorKindRateLimit,
	})
	require.NoError(t, err)
	require.Len(t, coord.Tools(), 6)

	result, err := coord.Coordinate(context.Background(), domain.CoordinationRequest{
		UserRequest: "hello",
		Tools:       []string{"ai_text_generation"},
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "ai_provider", result.Results["ai_text_generation"].FallbackFrom)
}

func TestApplication_HealthReport(t *testing.T) {
	coord := newTestCoordinator(t, domain.DefaultRuntimeConfig())
	application := NewApplication(ApplicationOptions{Coordinator: coord})

	report := application.health()
	require.Equal(t, "ok", report.Status)
	require.Equal(t, 6, report.Tools)
}
