package app

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ReloadManager applies config updates to the coordinator.
type ReloadManager struct {
	provider    *ConfigProvider
	coordinator *Coordinator
	logger      *zap.Logger
	appliedRev  atomic.Uint64
	started     atomic.Bool
}

func NewReloadManager(provider *ConfigProvider, coordinator *Coordinator, logger *zap.Logger) *ReloadManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReloadManager{
		provider:    provider,
		coordinator: coordinator,
		logger:      logger.Named("reload"),
	}
}

// Start begins watching for config updates.
func (m *ReloadManager) Start(ctx context.Context) {
	updates := m.provider.Watch(ctx)
	m.appliedRev.Store(m.provider.Revision())
	m.started.Store(true)
	go m.run(ctx, updates)
}

// Reload forces a config reload and waits until it is applied.
func (m *ReloadManager) Reload(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	prev := m.provider.Revision()
	if err := m.provider.Reload(ctx); err != nil {
		return err
	}
	if !m.started.Load() {
		return nil
	}
	next := m.provider.Revision()
	if next == prev {
		return nil
	}
	return m.waitForRevision(ctx, next)
}

func (m *ReloadManager) run(ctx context.Context, updates <-chan ConfigUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Diff.IsEmpty() {
				continue
			}
			m.applyUpdate(update)
		}
	}
}

func (m *ReloadManager) applyUpdate(update ConfigUpdate) {
	started := time.Now()
	if update.Diff.RequiresRestart() {
		m.logger.Warn("config changes require restart",
			zap.Strings("fields", update.Diff.RestartRequiredFields),
		)
	}
	if len(update.Diff.DynamicFields) > 0 {
		m.coordinator.ApplyConfig(update.Config)
	}
	m.logger.Info("config reload applied",
		zap.Uint64("revision", update.Revision),
		zap.String("source", string(update.Source)),
		zap.Strings("dynamic", update.Diff.DynamicFields),
		zap.Duration("latency", time.Since(started)),
	)
	m.appliedRev.Store(update.Revision)
}

func (m *ReloadManager) waitForRevision(ctx context.Context, revision uint64) error {
	if m.appliedRev.Load() >= revision {
		return nil
	}
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if m.appliedRev.Load() >= revision {
				return nil
			}
		}
	}
}
