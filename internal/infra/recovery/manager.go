package recovery

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
	"github.com/mikeoller82/codexa-sub000/internal/infra/telemetry"
)

// defaultFallbacks maps failing tools to substitutes. Keys ending in "*" match
// by prefix.
var defaultFallbacks = map[string][]string{
	"ai_text_generation": {"ai_provider", "conversational_tool"},
	"ai_code_generation": {"ai_provider", "ai_text_generation"},
	"ai_analysis":        {"ai_provider", "ai_text_generation"},
	"ai_provider":        {"conversational_tool"},
	"ai_*":               {"conversational_tool"},
}

var kindSeverity = map[domain.ErrorKind]domain.Severity{
	domain.ErrorKindConnection:     domain.SeverityHigh,
	domain.ErrorKindAuthentication: domain.SeverityHigh,
	domain.ErrorKindConfiguration:  domain.SeverityHigh,
	domain.ErrorKindTimeout:        domain.SeverityMedium,
	domain.ErrorKindRateLimit:      domain.SeverityMedium,
	domain.ErrorKindValidation:     domain.SeverityLow,
}

// Manager classifies tool failures and decides how to recover from them.
type Manager struct {
	logger  *zap.Logger
	metrics domain.Metrics
	history *History
	now     func() time.Time

	mu          sync.RWMutex
	cfg         domain.RecoveryConfig
	lastSuccess map[string]time.Time
}

func NewManager(cfg domain.RecoveryConfig, logger *zap.Logger, metrics domain.Metrics) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger:      logger.Named("recovery"),
		metrics:     metrics,
		history:     NewHistory(cfg.HistorySize),
		now:         time.Now,
		cfg:         normalizeConfig(cfg),
		lastSuccess: make(map[string]time.Time),
	}
}

func normalizeConfig(cfg domain.RecoveryConfig) domain.RecoveryConfig {
	if len(cfg.Backoff) == 0 {
		cfg.Backoff = domain.DefaultBackoff()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.UnhealthyThreshold <= 0 {
		cfg.UnhealthyThreshold = domain.DefaultUnhealthyThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = domain.DefaultHealthCooldown
	}
	return cfg
}

// Configure swaps the recovery settings in place.
func (m *Manager) Configure(cfg domain.RecoveryConfig) {
	cfg = normalizeConfig(cfg)
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	m.history.Resize(cfg.HistorySize)
}

func (m *Manager) config() domain.RecoveryConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Enabled reports whether failures should go through recovery at all.
func (m *Manager) Enabled() bool {
	return m.config().Enabled
}

// MaxRetries returns the configured retry budget.
func (m *Manager) MaxRetries() int {
	return m.config().MaxRetries
}

// Classify builds the ErrorContext of a failure.
func (m *Manager) Classify(tool string, err error) domain.ErrorContext {
	ec := domain.ErrorContext{
		ToolName:  tool,
		Kind:      domain.ClassifyError(err),
		Timestamp: m.now(),
	}
	if err != nil {
		ec.Message = err.Error()
	}
	if ec.Kind == "" {
		ec.Kind = domain.ErrorKindTool
	}

	var toolErr *domain.ToolError
	if errors.As(err, &toolErr) && toolErr.Severity != "" {
		ec.Severity = toolErr.Severity
	} else {
		ec.Severity = severityOf(ec.Kind, ec.Message)
	}
	return ec
}

func severityOf(kind domain.ErrorKind, message string) domain.Severity {
	if severity, ok := kindSeverity[kind]; ok {
		return severity
	}
	msg := strings.ToLower(message)
	switch {
	case containsAny(msg, "critical", "fatal", "emergency"):
		return domain.SeverityCritical
	case containsAny(msg, "authentication", "authorization", "forbidden"):
		return domain.SeverityHigh
	case containsAny(msg, "timeout", "rate limit", "quota"):
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// Decide evaluates the recovery rules in order and records the outcome.
func (m *Manager) Decide(ec domain.ErrorContext) domain.RecoveryDecision {
	cfg := m.config()
	decision := decide(cfg, ec, m.Fallbacks(ec.ToolName))

	m.history.Add(Record{Context: ec, Decision: decision})
	if m.metrics != nil {
		m.metrics.ObserveRecoveryDecision(ec.ToolName, ec.Kind, decision.State)
	}
	m.logger.Info("recovery decision",
		telemetry.EventField(telemetry.EventRecoveryDecision),
		telemetry.ToolField(ec.ToolName),
		telemetry.ErrorKindField(string(ec.Kind)),
		telemetry.StateField(string(decision.State)),
		telemetry.AttemptField(ec.RetryCount),
		zap.String("severity", string(ec.Severity)),
		zap.Duration("delay", decision.Delay),
		zap.String("reason", decision.Reason),
	)
	return decision
}

func decide(cfg domain.RecoveryConfig, ec domain.ErrorContext, fallbacks []string) domain.RecoveryDecision {
	retry := func(reason string) domain.RecoveryDecision {
		return domain.RecoveryDecision{State: domain.RecoveryRetrying, Delay: backoffDelay(cfg.Backoff, ec.RetryCount), Reason: reason}
	}
	budgetLeft := ec.RetryCount < cfg.MaxRetries

	switch {
	case !cfg.Enabled:
		return domain.RecoveryDecision{State: domain.RecoveryAborted, Reason: "recovery disabled"}
	case ec.Severity == domain.SeverityCritical:
		return domain.RecoveryDecision{State: domain.RecoveryAborted, Reason: "critical failure"}
	case (ec.Kind == domain.ErrorKindTimeout || ec.Kind == domain.ErrorKindConnection) && budgetLeft:
		return retry(fmt.Sprintf("transient %s failure", ec.Kind))
	case ec.Kind == domain.ErrorKindRateLimit || ec.Kind == domain.ErrorKindAuthentication:
		return domain.RecoveryDecision{State: domain.RecoveryFallback, Candidates: fallbacks, Reason: fmt.Sprintf("%s failure needs another tool", ec.Kind)}
	case !budgetLeft && len(fallbacks) > 0:
		return domain.RecoveryDecision{State: domain.RecoveryFallback, Candidates: fallbacks, Reason: "retries exhausted"}
	case !budgetLeft:
		return domain.RecoveryDecision{State: domain.RecoveryDegraded, Reason: "retries exhausted and no fallback"}
	default:
		return retry("retry budget remains")
	}
}

func backoffDelay(schedule []time.Duration, retry int) time.Duration {
	if len(schedule) == 0 {
		return 0
	}
	if retry < 0 {
		retry = 0
	}
	if retry >= len(schedule) {
		retry = len(schedule) - 1
	}
	return schedule[retry]
}

// Fallbacks returns the static substitutes for tool. Configured entries take
// precedence over the built-in table; exact names win over prefixes.
func (m *Manager) Fallbacks(tool string) []string {
	cfg := m.config()
	if out, ok := lookupFallbacks(cfg.Fallbacks, tool); ok {
		return out
	}
	out, _ := lookupFallbacks(defaultFallbacks, tool)
	return out
}

func lookupFallbacks(table map[string][]string, tool string) ([]string, bool) {
	if len(table) == 0 {
		return nil, false
	}
	if candidates, ok := table[tool]; ok {
		return append([]string(nil), candidates...), true
	}
	best := ""
	for key := range table {
		prefix, ok := strings.CutSuffix(key, "*")
		if ok && strings.HasPrefix(tool, prefix) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return nil, false
	}
	return append([]string(nil), table[best]...), true
}

// Degrade synthesizes the best-effort result for a failure.
func (m *Manager) Degrade(ec domain.ErrorContext) domain.ExecutionResult {
	return Degrade(ec)
}

// RecordSuccess resets the failure window used by Healthy.
func (m *Manager) RecordSuccess(tool string) {
	m.mu.Lock()
	m.lastSuccess[tool] = m.now()
	m.mu.Unlock()
}

// Healthy reports whether tool had fewer than UnhealthyThreshold failures
// within the cooldown window since its last success.
func (m *Manager) Healthy(tool string) bool {
	cfg := m.config()
	since := m.now().Add(-cfg.Cooldown)
	m.mu.RLock()
	if last, ok := m.lastSuccess[tool]; ok && last.After(since) {
		since = last
	}
	m.mu.RUnlock()
	return m.history.FailuresSince(tool, since) < cfg.UnhealthyThreshold
}

// UnhealthyTools lists tools currently considered unhealthy, sorted.
func (m *Manager) UnhealthyTools() []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range m.history.Records() {
		name := rec.Context.ToolName
		if seen[name] {
			continue
		}
		seen[name] = true
		if !m.Healthy(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Stats returns the failure statistics of the history.
func (m *Manager) Stats() Stats {
	return m.history.Stats(m.now())
}

// History exposes the underlying ring buffer.
func (m *Manager) History() *History {
	return m.history
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
