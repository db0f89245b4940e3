package planner

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
	"github.com/mikeoller82/codexa-sub000/internal/infra/hashutil"
	"github.com/mikeoller82/codexa-sub000/internal/infra/resolver"
	"github.com/mikeoller82/codexa-sub000/internal/infra/telemetry"
)

// Layout is the stage partition of a resolved tool list.
type Layout struct {
	Stages       []domain.Stage
	Dependencies map[string][]string
	Warnings     []string
}

// Planner partitions resolved tools into stages.
type Planner struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{logger: logger.Named("planner")}
}

// Plan peels ready frontiers off the in-set dependency graph. Within a
// frontier, parallel-eligible tools share a stage and the rest get one stage
// each in priority order. The result depends only on its inputs.
func (p *Planner) Plan(resolved []string, catalog domain.CatalogReader, opts domain.CoordinationOptions) Layout {
	descs := make(map[string]domain.ToolDescriptor, len(resolved))
	for _, name := range resolved {
		if desc, ok := catalog.Descriptor(name); ok {
			descs[name] = desc
		} else {
			descs[name] = domain.ToolDescriptor{Name: name, Priority: domain.PriorityNormal}
		}
	}

	deps := p.edges(resolved, descs, catalog)
	layout := Layout{Dependencies: deps}

	assigned := make(map[string]bool, len(resolved))
	remaining := append([]string(nil), resolved...)
	for len(remaining) > 0 {
		frontier := make([]string, 0, len(remaining))
		for _, name := range remaining {
			if ready(name, deps, assigned) {
				frontier = append(frontier, name)
			}
		}
		if len(frontier) == 0 {
			forced := remaining[0]
			msg := fmt.Sprintf("dependency cycle detected during planning; forcing %s into its own stage", forced)
			p.logger.Warn(msg, telemetry.EventField(telemetry.EventCycleBreak), telemetry.ToolField(forced))
			layout.Warnings = append(layout.Warnings, msg)
			frontier = []string{forced}
		}

		layout.Stages = append(layout.Stages, p.split(frontier, descs, opts)...)
		for _, name := range frontier {
			assigned[name] = true
		}
		next := remaining[:0]
		for _, name := range remaining {
			if !assigned[name] {
				next = append(next, name)
			}
		}
		remaining = next
	}

	for i := range layout.Stages {
		layout.Stages[i].Index = i
	}
	return layout
}

// Build turns a resolution into a plan with estimates and a tool-set hash.
func (p *Planner) Build(requestID string, resolution domain.Resolution, catalog domain.CatalogReader, opts domain.CoordinationOptions) domain.CoordinationPlan {
	layout := p.Plan(resolution.Tools, catalog, opts)

	tools := make([]string, 0, len(resolution.Tools))
	var estimate time.Duration
	for _, stage := range layout.Stages {
		tools = append(tools, stage.Tools...)
		var longest time.Duration
		for _, name := range stage.Tools {
			d := domain.DefaultToolEstimate
			if desc, ok := catalog.Descriptor(name); ok && desc.EstimatedDuration > 0 {
				d = desc.EstimatedDuration
			}
			if d > longest {
				longest = d
			}
		}
		estimate += longest
	}

	warnings := append(append([]string(nil), resolution.Warnings...), layout.Warnings...)
	plan := domain.CoordinationPlan{
		RequestID:         requestID,
		ToolSetHash:       hashutil.ToolSetHash(p.logger, resolution.Tools),
		Tools:             tools,
		Stages:            layout.Stages,
		Dependencies:      layout.Dependencies,
		EstimatedDuration: estimate,
		Options:           opts,
		Warnings:          warnings,
		CreatedAt:         time.Now(),
	}
	p.logger.Debug("plan built",
		telemetry.RequestIDField(requestID),
		zap.Int("stages", len(plan.Stages)),
		zap.Int("tools", len(plan.Tools)),
		zap.Float64("parallel_efficiency", plan.ParallelEfficiency()),
	)
	return plan
}

// edges maps each tool's REQUIRED and OPTIONAL dependencies onto tools of the
// resolved set using the resolver's search order. Edges leaving the set are dropped.
func (p *Planner) edges(resolved []string, descs map[string]domain.ToolDescriptor, catalog domain.CatalogReader) map[string][]string {
	inSet := make(map[string]bool, len(resolved))
	for _, name := range resolved {
		inSet[name] = true
	}

	deps := make(map[string][]string)
	for _, name := range resolved {
		desc := descs[name]
		seen := make(map[string]bool)
		for _, dep := range desc.Dependencies {
			if dep.Kind == domain.DependencyConflict {
				continue
			}
			target, ok, err := resolver.Match(catalog, desc, dep, func(candidate string) bool {
				return inSet[candidate]
			})
			if err != nil || !ok || target == name || seen[target] {
				continue
			}
			seen[target] = true
			deps[name] = append(deps[name], target)
		}
	}
	return deps
}

func (p *Planner) split(frontier []string, descs map[string]domain.ToolDescriptor, opts domain.CoordinationOptions) []domain.Stage {
	var group, singles []string
	for _, name := range frontier {
		if opts.PreferParallel && descs[name].Coordination.ParallelEligible {
			group = append(group, name)
		} else {
			singles = append(singles, name)
		}
	}

	stages := make([]domain.Stage, 0, len(singles)+1)
	for _, chunk := range chunk(group, groupLimit(group, descs, opts)) {
		stages = append(stages, domain.Stage{Tools: chunk, Parallel: len(chunk) > 1})
	}

	sort.SliceStable(singles, func(i, j int) bool {
		return descs[singles[i]].Priority > descs[singles[j]].Priority
	})
	for _, name := range singles {
		stages = append(stages, domain.Stage{Tools: []string{name}})
	}
	return stages
}

func groupLimit(group []string, descs map[string]domain.ToolDescriptor, opts domain.CoordinationOptions) int {
	limit := opts.MaxParallel
	for _, name := range group {
		hint := descs[name].Coordination.MaxParallel
		if hint > 0 && (limit <= 0 || hint < limit) {
			limit = hint
		}
	}
	return limit
}

func chunk(names []string, size int) [][]string {
	if len(names) == 0 {
		return nil
	}
	if size <= 0 || size >= len(names) {
		return [][]string{append([]string(nil), names...)}
	}
	out := make([][]string, 0, (len(names)+size-1)/size)
	for start := 0; start < len(names); start += size {
		end := start + size
		if end > len(names) {
			end = len(names)
		}
		out = append(out, append([]string(nil), names[start:end]...))
	}
	return out
}

func ready(name string, deps map[string][]string, assigned map[string]bool) bool {
	for _, dep := range deps[name] {
		if dep != name && !assigned[dep] {
			return false
		}
	}
	return true
}
