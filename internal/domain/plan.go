package domain

import "time"

// CoordinationOptions are the per-request knobs of resolution, planning and execution.
type CoordinationOptions struct {
	FailOnMissingDependencies bool          `json:"failOnMissingDependencies" yaml:"failOnMissingDependencies"`
	PreferParallel            bool          `json:"preferParallel" yaml:"preferParallel"`
	ContinueOnOptionalFailure bool          `json:"continueOnOptionalFailure" yaml:"continueOnOptionalFailure"`
	MaxParallel               int           `json:"maxParallel" yaml:"maxParallel"`
	ToolTimeout               time.Duration `json:"toolTimeout" yaml:"toolTimeout"`
}

// DefaultCoordinationOptions returns the options used when nothing is configured.
func DefaultCoordinationOptions() CoordinationOptions {
	return CoordinationOptions{
		FailOnMissingDependencies: DefaultFailOnMissingDependencies,
		PreferParallel:            DefaultPreferParallel,
		ContinueOnOptionalFailure: DefaultContinueOnOptionalFailure,
		MaxParallel:               DefaultMaxParallel,
		ToolTimeout:               DefaultToolTimeout,
	}
}

// CoordinationRequest is one caller request. Options overrides the configured
// defaults when set.
type CoordinationRequest struct {
	RequestID   string
	UserRequest string
	SessionID   string
	Tools       []string
	Options     *CoordinationOptions
	Shared      *SharedContext
}

// Resolution is the output of dependency resolution.
type Resolution struct {
	Requested []string `json:"requested"`
	Tools     []string `json:"tools"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Stage is a set of tools that may run concurrently.
type Stage struct {
	Index    int      `json:"index"`
	Tools    []string `json:"tools"`
	Parallel bool     `json:"parallel"`
}

// CoordinationPlan is the immutable artifact produced for one request.
type CoordinationPlan struct {
	RequestID         string              `json:"requestId"`
	ToolSetHash       string              `json:"toolSetHash"`
	Tools             []string            `json:"tools"`
	Stages            []Stage             `json:"stages"`
	Dependencies      map[string][]string `json:"dependencies,omitempty"`
	EstimatedDuration time.Duration       `json:"estimatedDuration"`
	Options           CoordinationOptions `json:"options"`
	Warnings          []string            `json:"warnings,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
}

// TotalTools returns the number of planned tools.
func (p CoordinationPlan) TotalTools() int {
	return len(p.Tools)
}

// ParallelEfficiency is the share of tools placed in stages holding more than one tool.
func (p CoordinationPlan) ParallelEfficiency() float64 {
	total := 0
	parallel := 0
	for _, stage := range p.Stages {
		total += len(stage.Tools)
		if len(stage.Tools) > 1 {
			parallel += len(stage.Tools)
		}
	}
	if total == 0 {
		return 0
	}
	return float64(parallel) / float64(total)
}

// DependencyDepth is the number of sequential stage boundaries in the plan.
func (p CoordinationPlan) DependencyDepth() int {
	return len(p.Stages)
}

// StageOf returns the index of the stage holding tool, or -1.
func (p CoordinationPlan) StageOf(tool string) int {
	for _, stage := range p.Stages {
		for _, name := range stage.Tools {
			if name == tool {
				return stage.Index
			}
		}
	}
	return -1
}
