package mapping

import (
	"sort"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

// ToolView is the serializable form of a ToolDescriptor.
type ToolView struct {
	Name         string           `json:"name" yaml:"name" toml:"name"`
	Version      string           `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	Description  string           `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Category     string           `json:"category,omitempty" yaml:"category,omitempty" toml:"category,omitempty"`
	Priority     string           `json:"priority" yaml:"priority" toml:"priority"`
	Capabilities []string         `json:"capabilities" yaml:"capabilities" toml:"capabilities"`
	Dependencies []DependencyView `json:"dependencies,omitempty" yaml:"dependencies,omitempty" toml:"dependencies,omitempty"`
	Parallel     bool             `json:"parallel" yaml:"parallel" toml:"parallel"`
}

type DependencyView struct {
	Target     string   `json:"target" yaml:"target" toml:"target"`
	Kind       string   `json:"kind" yaml:"kind" toml:"kind"`
	Constraint string   `json:"constraint,omitempty" yaml:"constraint,omitempty" toml:"constraint,omitempty"`
	Fallbacks  []string `json:"fallbacks,omitempty" yaml:"fallbacks,omitempty" toml:"fallbacks,omitempty"`
}

// PlanView is the serializable form of a CoordinationPlan.
type PlanView struct {
	RequestID           string              `json:"requestId" yaml:"requestId" toml:"requestId"`
	ToolSetHash         string              `json:"toolSetHash" yaml:"toolSetHash" toml:"toolSetHash"`
	Tools               []string            `json:"tools" yaml:"tools" toml:"tools"`
	Stages              []StageView         `json:"stages" yaml:"stages" toml:"stages"`
	Dependencies        map[string][]string `json:"dependencies,omitempty" yaml:"dependencies,omitempty" toml:"dependencies,omitempty"`
	EstimatedDurationMs int64               `json:"estimatedDurationMs" yaml:"estimatedDurationMs" toml:"estimatedDurationMs"`
	ParallelEfficiency  float64             `json:"parallelEfficiency" yaml:"parallelEfficiency" toml:"parallelEfficiency"`
	DependencyDepth     int                 `json:"dependencyDepth" yaml:"dependencyDepth" toml:"dependencyDepth"`
	Warnings            []string            `json:"warnings,omitempty" yaml:"warnings,omitempty" toml:"warnings,omitempty"`
}

type StageView struct {
	Index    int      `json:"index" yaml:"index" toml:"index"`
	Tools    []string `json:"tools" yaml:"tools" toml:"tools"`
	Parallel bool     `json:"parallel" yaml:"parallel" toml:"parallel"`
}

// ResultView is the serializable form of a CoordinationResult.
type ResultView struct {
	RequestID          string           `json:"requestId" yaml:"requestId" toml:"requestId"`
	Success            bool             `json:"success" yaml:"success" toml:"success"`
	Degraded           bool             `json:"degraded" yaml:"degraded" toml:"degraded"`
	ExecutionOrder     []string         `json:"executionOrder" yaml:"executionOrder" toml:"executionOrder"`
	Results            []ToolResultView `json:"results" yaml:"results" toml:"results"`
	Errors             []string         `json:"errors,omitempty" yaml:"errors,omitempty" toml:"errors,omitempty"`
	Warnings           []string         `json:"warnings,omitempty" yaml:"warnings,omitempty" toml:"warnings,omitempty"`
	DurationMs         int64            `json:"durationMs" yaml:"durationMs" toml:"durationMs"`
	ParallelEfficiency float64          `json:"parallelEfficiency" yaml:"parallelEfficiency" toml:"parallelEfficiency"`
}

type ToolResultView struct {
	Tool         string `json:"tool" yaml:"tool" toml:"tool"`
	Success      bool   `json:"success" yaml:"success" toml:"success"`
	Output       string `json:"output,omitempty" yaml:"output,omitempty" toml:"output,omitempty"`
	Error        string `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
	Kind         string `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty"`
	Attempts     int    `json:"attempts" yaml:"attempts" toml:"attempts"`
	DurationMs   int64  `json:"durationMs" yaml:"durationMs" toml:"durationMs"`
	FallbackFrom string `json:"fallbackFrom,omitempty" yaml:"fallbackFrom,omitempty" toml:"fallbackFrom,omitempty"`
	Degraded     bool   `json:"degraded,omitempty" yaml:"degraded,omitempty" toml:"degraded,omitempty"`
}

func MapTool(desc domain.ToolDescriptor) ToolView {
	return ToolView{
		Name:         desc.Name,
		Version:      desc.Version,
		Description:  desc.Description,
		Category:     desc.Category,
		Priority:     desc.Priority.String(),
		Capabilities: append([]string(nil), desc.Capabilities...),
		Dependencies: mapSlice(desc.Dependencies, func(dep domain.Dependency) DependencyView {
			return DependencyView{
				Target:     dep.Target,
				Kind:       string(dep.Kind),
				Constraint: dep.VersionConstraint,
				Fallbacks:  append([]string(nil), dep.FallbackNames...),
			}
		}),
		Parallel: desc.Coordination.ParallelEligible,
	}
}

func MapTools(descs []domain.ToolDescriptor) []ToolView {
	return mapSlice(descs, MapTool)
}

func MapPlan(plan domain.CoordinationPlan) PlanView {
	return PlanView{
		RequestID:   plan.RequestID,
		ToolSetHash: plan.ToolSetHash,
		Tools:       append([]string(nil), plan.Tools...),
		Stages: mapSlice(plan.Stages, func(stage domain.Stage) StageView {
			return StageView{Index: stage.Index, Tools: append([]string(nil), stage.Tools...), Parallel: stage.Parallel}
		}),
		Dependencies:        plan.Dependencies,
		EstimatedDurationMs: plan.EstimatedDuration.Milliseconds(),
		ParallelEfficiency:  plan.ParallelEfficiency(),
		DependencyDepth:     plan.DependencyDepth(),
		Warnings:            plan.Warnings,
	}
}

// MapResult flattens results in execution order. Results not in the order
// list are appended sorted by name.
func MapResult(res domain.CoordinationResult) ResultView {
	names := append([]string(nil), res.ExecutionOrder...)
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		seen[name] = true
	}
	var extra []string
	for name := range res.Results {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	names = append(names, extra...)

	results := make([]ToolResultView, 0, len(names))
	for _, name := range names {
		r, ok := res.Results[name]
		if !ok {
			continue
		}
		results = append(results, ToolResultView{
			Tool:         name,
			Success:      r.Success,
			Output:       r.Output,
			Error:        r.ErrorMessage(),
			Kind:         string(r.Kind),
			Attempts:     r.Attempts,
			DurationMs:   r.DurationMs(),
			FallbackFrom: r.FallbackFrom,
			Degraded:     r.Degraded,
		})
	}
	return ResultView{
		RequestID:          res.RequestID,
		Success:            res.Success,
		Degraded:           res.Degraded(),
		ExecutionOrder:     append([]string(nil), res.ExecutionOrder...),
		Results:            results,
		Errors:             res.Errors,
		Warnings:           res.Warnings,
		DurationMs:         res.Duration.Milliseconds(),
		ParallelEfficiency: res.ParallelEfficiency,
	}
}

// mapSlice converts src element-wise. A nil src stays nil so omitempty fields
// disappear from encoded output.
func mapSlice[S any, D any](src []S, fn func(S) D) []D {
	if src == nil {
		return nil
	}
	dst := make([]D, len(src))
	for i := range src {
		dst[i] = fn(src[i])
	}
	return dst
}
