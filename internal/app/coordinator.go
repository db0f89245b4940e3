package app

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
	"github.com/mikeoller82/codexa-sub000/internal/infra/catalog"
	"github.com/mikeoller82/codexa-sub000/internal/infra/executor"
	"github.com/mikeoller82/codexa-sub000/internal/infra/hashutil"
	"github.com/mikeoller82/codexa-sub000/internal/infra/planner"
	"github.com/mikeoller82/codexa-sub000/internal/infra/recovery"
	"github.com/mikeoller82/codexa-sub000/internal/infra/resolver"
	"github.com/mikeoller82/codexa-sub000/internal/infra/telemetry"
)

// Coordinator ties resolution, planning and execution together for one
// catalog. It is safe for concurrent use.
type Coordinator struct {
	catalog  *catalog.Catalog
	resolver *resolver.Resolver
	planner  *planner.Planner
	executor *executor.Executor
	recovery *recovery.Manager
	cache    *planner.Cache
	metrics  domain.Metrics
	logger   *zap.Logger

	options atomic.Pointer[domain.CoordinationOptions]

	statsMu sync.Mutex
	stats   coordinationCounters
}

type coordinationCounters struct {
	total      int
	successful int
	degraded   int
	elapsed    time.Duration
}

// CoordinatorStats is a point-in-time view of coordinator activity.
type CoordinatorStats struct {
	TotalCoordinations int            `json:"totalCoordinations"`
	Successful         int            `json:"successful"`
	Degraded           int            `json:"degraded"`
	SuccessRate        float64        `json:"successRate"`
	AverageDuration    time.Duration  `json:"averageDuration"`
	CachedPlans        int            `json:"cachedPlans"`
	RegisteredTools    int            `json:"registeredTools"`
	UnhealthyTools     []string       `json:"unhealthyTools,omitempty"`
	Recovery           recovery.Stats `json:"recovery"`
}

// CoordinatorOptions captures dependencies for Coordinator.
type CoordinatorOptions struct {
	Config   domain.RuntimeConfig
	Catalog  *catalog.Catalog
	Resolver *resolver.Resolver
	Planner  *planner.Planner
	Executor *executor.Executor
	Recovery *recovery.Manager
	Metrics  domain.Metrics
	Logger   *zap.Logger
}

func NewCoordinator(opts CoordinatorOptions) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	c := &Coordinator{
		catalog:  opts.Catalog,
		resolver: opts.Resolver,
		planner:  opts.Planner,
		executor: opts.Executor,
		recovery: opts.Recovery,
		cache:    planner.NewCache(opts.Config.PlanCacheSize),
		metrics:  metrics,
		logger:   logger.Named("coordinator"),
	}
	coordination := opts.Config.Coordination
	c.options.Store(&coordination)
	return c
}

// Options returns the configured default coordination options.
func (c *Coordinator) Options() domain.CoordinationOptions {
	return *c.options.Load()
}

// Tools lists the registered tool descriptors.
func (c *Coordinator) Tools() []domain.ToolDescriptor {
	return c.catalog.Descriptors()
}

// CatalogRevision returns the catalog revision.
func (c *Coordinator) CatalogRevision() uint64 {
	return c.catalog.Revision()
}

// Register adds a tool to the catalog.
func (c *Coordinator) Register(tool domain.Tool) error {
	return c.catalog.Register(tool)
}

// Plan resolves and stages the requested tools without running them.
func (c *Coordinator) Plan(ctx context.Context, req domain.CoordinationRequest) (domain.CoordinationPlan, error) {
	req = c.normalizeRequest(req)
	return c.plan(ctx, req)
}

// Coordinate plans and executes a request. Resolution failures are returned
// as errors; tool failures are reported inside the result.
func (c *Coordinator) Coordinate(ctx context.Context, req domain.CoordinationRequest) (domain.CoordinationResult, error) {
	req = c.normalizeRequest(req)
	ctx, _ = telemetry.EnsureRequestMeta(ctx, req.RequestID)
	logger := telemetry.LoggerWithRequest(ctx, c.logger)
	start := time.Now()

	plan, err := c.plan(ctx, req)
	if err != nil {
		result := domain.CoordinationResult{
			RequestID: req.RequestID,
			Results:   map[string]domain.ExecutionResult{},
			Errors:    []string{err.Error()},
			Duration:  time.Since(start),
		}
		c.record(result)
		c.metrics.ObserveCoordination(domain.CoordinationMetric{
			Status:   domain.CoordinationStatusFailure,
			Duration: result.Duration,
		})
		logger.Warn("coordination rejected", zap.Strings("tools", req.Tools), zap.Error(err))
		return result, err
	}

	shared := req.Shared
	if shared == nil {
		shared = domain.NewSharedContext(req.RequestID, req.UserRequest)
		shared.SessionID = req.SessionID
	}
	result := c.executor.Execute(ctx, plan, shared)
	c.record(result)
	return result, nil
}

func (c *Coordinator) normalizeRequest(req domain.CoordinationRequest) domain.CoordinationRequest {
	if strings.TrimSpace(req.RequestID) == "" {
		req.RequestID = telemetry.NewRequestID()
	}
	if req.Options == nil {
		opts := c.Options()
		req.Options = &opts
	}
	return req
}

func (c *Coordinator) plan(ctx context.Context, req domain.CoordinationRequest) (domain.CoordinationPlan, error) {
	if err := ctx.Err(); err != nil {
		return domain.CoordinationPlan{}, domain.Wrap(domain.CodeCanceled, "plan", err)
	}
	opts := *req.Options
	key := hashutil.PlanKey(req.RequestID, hashutil.ToolSetHash(c.logger, req.Tools), c.catalog.Revision())
	if plan, ok := c.cache.Get(key, opts); ok {
		c.metrics.ObservePlanCache(true)
		return plan, nil
	}
	c.metrics.ObservePlanCache(false)

	resolution, err := c.resolver.Resolve(req.Tools, c.catalog, opts)
	if err != nil {
		return domain.CoordinationPlan{}, err
	}
	plan := c.planner.Build(req.RequestID, resolution, c.catalog, opts)
	c.cache.Put(key, plan)
	return plan, nil
}

func (c *Coordinator) record(result domain.CoordinationResult) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.total++
	if result.Success {
		c.stats.successful++
	}
	if result.Degraded() {
		c.stats.degraded++
	}
	c.stats.elapsed += result.Duration
}

// Stats reports coordinator counters together with recovery statistics.
func (c *Coordinator) Stats() CoordinatorStats {
	c.statsMu.Lock()
	counters := c.stats
	c.statsMu.Unlock()

	stats := CoordinatorStats{
		TotalCoordinations: counters.total,
		Successful:         counters.successful,
		Degraded:           counters.degraded,
		CachedPlans:        c.cache.Len(),
		RegisteredTools:    c.catalog.Len(),
	}
	if counters.total > 0 {
		stats.SuccessRate = float64(counters.successful) / float64(counters.total)
		stats.AverageDuration = counters.elapsed / time.Duration(counters.total)
	}
	if c.recovery != nil {
		stats.Recovery = c.recovery.Stats()
		stats.UnhealthyTools = c.recovery.UnhealthyTools()
	}
	return stats
}

// ApplyConfig swaps the runtime settings used by later requests.
func (c *Coordinator) ApplyConfig(cfg domain.RuntimeConfig) {
	coordination := cfg.Coordination
	c.options.Store(&coordination)
	c.cache.Resize(cfg.PlanCacheSize)
	if c.recovery != nil {
		c.recovery.Configure(cfg.Recovery)
	}
	c.logger.Info("runtime config applied",
		telemetry.EventField(telemetry.EventConfigReload),
		zap.Bool("prefer_parallel", coordination.PreferParallel),
		zap.Int("max_parallel", coordination.MaxParallel),
		zap.Int("plan_cache_size", cfg.PlanCacheSize),
	)
}

// ClearCache drops every cached plan.
func (c *Coordinator) ClearCache() {
	c.cache.Clear()
}
