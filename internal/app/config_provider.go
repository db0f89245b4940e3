package app

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
	"github.com/mikeoller82/codexa-sub000/internal/infra/catalog"
	"github.com/mikeoller82/codexa-sub000/internal/infra/telemetry"
)

const defaultReloadDebounce = 200 * time.Millisecond

// ConfigUpdateSource describes what triggered a reload.
type ConfigUpdateSource string

const (
	ConfigUpdateSourceWatch  ConfigUpdateSource = "watch"
	ConfigUpdateSourceManual ConfigUpdateSource = "manual"
)

// ConfigUpdate is broadcast after a reload changed the runtime config.
type ConfigUpdate struct {
	Config   domain.RuntimeConfig
	Diff     domain.RuntimeDiff
	Revision uint64
	Source   ConfigUpdateSource
}

// ConfigProvider loads the runtime config and watches the file for changes.
type ConfigProvider struct {
	logger     *zap.Logger
	loader     *catalog.Loader
	configPath string
	debounce   time.Duration

	state    atomic.Value
	revision atomic.Uint64

	subsMu sync.Mutex
	subs   map[chan ConfigUpdate]struct{}

	reloadMu  sync.Mutex
	watchOnce sync.Once
	watchCtx  context.Context
}

// NewConfigProvider loads configPath. An empty path yields the defaults and
// never reloads.
func NewConfigProvider(ctx context.Context, configPath string, logger *zap.Logger) (*ConfigProvider, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	loader := catalog.NewLoader(logger)
	cfg, err := loader.Load(ctx, configPath)
	if err != nil {
		return nil, err
	}

	provider := &ConfigProvider{
		logger:     logger.Named("config_provider"),
		loader:     loader,
		configPath: configPath,
		debounce:   defaultReloadDebounce,
		subs:       make(map[chan ConfigUpdate]struct{}),
		watchCtx:   ctx,
	}
	provider.state.Store(cfg)
	provider.revision.Store(1)
	return provider, nil
}

// Snapshot returns the current runtime config.
func (p *ConfigProvider) Snapshot() domain.RuntimeConfig {
	return p.state.Load().(domain.RuntimeConfig)
}

// Revision returns the number of accepted configs.
func (p *ConfigProvider) Revision() uint64 {
	return p.revision.Load()
}

// Watch subscribes to config updates until ctx is done.
func (p *ConfigProvider) Watch(ctx context.Context) <-chan ConfigUpdate {
	if ctx == nil {
		ctx = context.Background()
	}
	ch := make(chan ConfigUpdate, 1)
	p.subsMu.Lock()
	p.subs[ch] = struct{}{}
	p.subsMu.Unlock()

	if p.configPath != "" {
		p.watchOnce.Do(func() {
			go p.runWatcher(p.watchCtx)
		})
	}

	go func() {
		<-ctx.Done()
		p.subsMu.Lock()
		delete(p.subs, ch)
		p.subsMu.Unlock()
	}()

	return ch
}

// Reload forces a reload of the config file.
func (p *ConfigProvider) Reload(ctx context.Context) error {
	return p.reload(ctx, ConfigUpdateSourceManual)
}

func (p *ConfigProvider) reload(ctx context.Context, source ConfigUpdateSource) error {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	prev := p.Snapshot()
	next, err := p.loader.Load(ctx, p.configPath)
	if err != nil {
		return err
	}

	diff := domain.DiffRuntimeConfig(prev, next)
	if diff.IsEmpty() {
		return nil
	}

	revision := p.revision.Add(1)
	p.state.Store(next)
	p.logger.Info("config reloaded",
		telemetry.EventField(telemetry.EventConfigReload),
		zap.String("source", string(source)),
		zap.Uint64("revision", revision),
		zap.Strings("dynamic", diff.DynamicFields),
		zap.Strings("restart_required", diff.RestartRequiredFields),
	)
	p.broadcast(ConfigUpdate{
		Config:   next,
		Diff:     diff,
		Revision: revision,
		Source:   source,
	})
	return nil
}

func (p *ConfigProvider) broadcast(update ConfigUpdate) {
	p.subsMu.Lock()
	subs := make([]chan ConfigUpdate, 0, len(p.subs))
	for ch := range p.subs {
		subs = append(subs, ch)
	}
	p.subsMu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- update:
		default:
		}
	}
}

func (p *ConfigProvider) runWatcher(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Warn("config watcher failed", zap.Error(err))
		return
	}
	defer watcher.Close()

	// Editors replace files atomically, so watch the directory.
	dir := filepath.Dir(p.configPath)
	if err := watcher.Add(dir); err != nil {
		p.logger.Warn("config watcher add failed", zap.String("path", dir), zap.Error(err))
		return
	}

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case err := <-watcher.Errors:
			if err != nil {
				p.logger.Warn("config watcher error", zap.Error(err))
			}
		case event := <-watcher.Events:
			if !shouldReloadForPath(event.Name, p.configPath) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(p.debounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(p.debounce)
		case <-timerChan(timer):
			timer = nil
			if err := p.reload(ctx, ConfigUpdateSourceWatch); err != nil {
				p.logger.Warn("config reload failed", zap.Error(err))
			}
		}
	}
}

func shouldReloadForPath(path string, configPath string) bool {
	if path == "" || configPath == "" {
		return false
	}
	return filepath.Clean(path) == filepath.Clean(configPath)
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
