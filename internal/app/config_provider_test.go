package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

func writeConfig(t *testing.T, path string, content string) {
	t.Helper()
	normalized := strings.ReplaceAll(content, "\t", "  ")
	require.NoError(t, os.WriteFile(path, []byte(normalized), 0o600))
}

func TestConfigProvider_EmptyPathUsesDefaults(t *testing.T) {
	provider, err := NewConfigProvider(context.Background(), "", zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, domain.DefaultRuntimeConfig(), provider.Snapshot())
	require.Equal(t, uint64(1), provider.Revision())
	require.NoError(t, provider.Reload(context.Background()))
	require.Equal(t, uint64(1), provider.Revision())
}

func TestConfigProvider_ReloadBroadcastsDiff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "codexa.yaml")
	writeConfig(t, path, `
coordination:
	maxParallel: 4
`)
	provider, err := NewConfigProvider(ctx, path, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 4, provider.Snapshot().Coordination.MaxParallel)

	updates := provider.Watch(ctx)

	writeConfig(t, path, `
coordination:
	maxParallel: 2
observability:
	listenAddress: 127.0.0.1:9999
`)
	require.NoError(t, provider.Reload(ctx))

	select {
	case update := <-updates:
		require.Equal(t, 2, update.Config.Coordination.MaxParallel)
		require.Equal(t, uint64(2), update.Revision)
		require.NotEmpty(t, update.Diff.DynamicFields)
		require.True(t, update.Diff.RequiresRestart())
	case <-time.After(2 * time.Second):
		t.Fatal("expected config update")
	}
}

func TestConfigProvider_InvalidReloadKeepsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codexa.yaml")
	writeConfig(t, path, `
coordination:
	maxParallel: 3
`)
	provider, err := NewConfigProvider(context.Background(), path, zap.NewNop())
	require.NoError(t, err)

	writeConfig(t, path, `
coordination:
	toolTimeout: not-a-duration
`)
	require.Error(t, provider.Reload(context.Background()))
	require.Equal(t, 3, provider.Snapshot().Coordination.MaxParallel)
	require.Equal(t, uint64(1), provider.Revision())
}

func TestReloadManager_AppliesDynamicChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "codexa.yaml")
	writeConfig(t, path, `
coordination:
	maxParallel: 4
`)
	provider, err := NewConfigProvider(ctx, path, zap.NewNop())
	require.NoError(t, err)
	coord := newTestCoordinator(t, provider.Snapshot())

	manager := NewReloadManager(provider, coord, zap.NewNop())
	manager.Start(ctx)

	writeConfig(t, path, `
coordination:
	maxParallel: 1
	toolTimeout: 3s
`)
	reloadCtx, reloadCancel := context.WithTimeout(ctx, 2*time.Second)
	defer reloadCancel()
	require.NoError(t, manager.Reload(reloadCtx))

	require.Equal(t, 1, coord.Options().MaxParallel)
	require.Equal(t, 3*time.Second, coord.Options().ToolTimeout)
}

func TestShouldReloadForPath(t *testing.T) {
	require.True(t, shouldReloadForPath("/tmp/x/../x/codexa.yaml", "/tmp/x/codexa.yaml"))
	require.False(t, shouldReloadForPath("/tmp/x/other.yaml", "/tmp/x/codexa.yaml"))
	require.False(t, shouldReloadForPath("", "/tmp/x/codexa.yaml"))
}
