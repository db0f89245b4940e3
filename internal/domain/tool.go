package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DependencyKind describes how a tool relates to a dependency target.
type DependencyKind string

const (
	// DependencyRequired must be satisfied for the owning tool to be plannable.
	DependencyRequired DependencyKind = "required"
	// DependencyOptional is pulled in when available and ignored otherwise.
	DependencyOptional DependencyKind = "optional"
	// DependencyConflict forbids the target from appearing in the same request.
	DependencyConflict DependencyKind = "conflict"
)

// Priority orders tools for registration conflicts and planning tie-breaks.
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityNormal   Priority = 2
	PriorityHigh     Priority = 3
	PriorityCritical Priority = 4
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Dependency is a requirement declared by a tool. Target is either a tool name
// or a capability string.
type Dependency struct {
	Target            string         `json:"target" yaml:"target"`
	Kind              DependencyKind `json:"kind" yaml:"kind"`
	VersionConstraint string         `json:"versionConstraint,omitempty" yaml:"versionConstraint,omitempty"`
	FallbackNames     []string       `json:"fallbackNames,omitempty" yaml:"fallbackNames,omitempty"`
}

// CoordinationPreferences are per-tool scheduling hints.
type CoordinationPreferences struct {
	ParallelEligible          bool `json:"parallelEligible" yaml:"parallelEligible"`
	MaxParallel               int  `json:"maxParallel,omitempty" yaml:"maxParallel,omitempty"`
	ContinueOnOptionalFailure bool `json:"continueOnOptionalFailure" yaml:"continueOnOptionalFailure"`
}

// ToolDescriptor is the immutable metadata of one tool.
type ToolDescriptor struct {
	Name              string                  `json:"name" yaml:"name"`
	Version           string                  `json:"version,omitempty" yaml:"version,omitempty"`
	Description       string                  `json:"description,omitempty" yaml:"description,omitempty"`
	Category          string                  `json:"category,omitempty" yaml:"category,omitempty"`
	Capabilities      []string                `json:"capabilities" yaml:"capabilities"`
	Dependencies      []Dependency            `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Coordination      CoordinationPreferences `json:"coordination" yaml:"coordination"`
	Priority          Priority                `json:"priority" yaml:"priority"`
	Timeout           time.Duration           `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	EstimatedDuration time.Duration           `json:"estimatedDuration,omitempty" yaml:"estimatedDuration,omitempty"`
}

// HasCapability reports whether the descriptor satisfies capability.
func (d ToolDescriptor) HasCapability(capability string) bool {
	if capability == d.Name {
		return true
	}
	for _, c := range d.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot mutate catalog state.
func (d ToolDescriptor) Clone() ToolDescriptor {
	out := d
	out.Capabilities = append([]string(nil), d.Capabilities...)
	if d.Dependencies != nil {
		out.Dependencies = make([]Dependency, len(d.Dependencies))
		for i, dep := range d.Dependencies {
			dep.FallbackNames = append([]string(nil), dep.FallbackNames...)
			out.Dependencies[i] = dep
		}
	}
	return out
}

// Normalize trims names, defaults the priority and guarantees the name is a capability.
func (d ToolDescriptor) Normalize() ToolDescriptor {
	out := d.Clone()
	out.Name = strings.TrimSpace(out.Name)
	if out.Priority == 0 {
		out.Priority = PriorityNormal
	}
	seen := make(map[string]struct{}, len(out.Capabilities)+1)
	caps := make([]string, 0, len(out.Capabilities)+1)
	caps = append(caps, out.Name)
	seen[out.Name] = struct{}{}
	for _, c := range out.Capabilities {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		caps = append(caps, c)
	}
	out.Capabilities = caps
	for i := range out.Dependencies {
		out.Dependencies[i].Target = strings.TrimSpace(out.Dependencies[i].Target)
		if out.Dependencies[i].Kind == "" {
			out.Dependencies[i].Kind = DependencyRequired
		}
	}
	return out
}

// Validate checks the registration invariants of a descriptor.
func (d ToolDescriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDescriptor)
	}
	for i, dep := range d.Dependencies {
		if strings.TrimSpace(dep.Target) == "" {
			return fmt.Errorf("%w: %s dependency %d has empty target", ErrInvalidDescriptor, d.Name, i)
		}
		switch dep.Kind {
		case "", DependencyRequired, DependencyOptional, DependencyConflict:
		default:
			return fmt.Errorf("%w: %s dependency %q has unknown kind %q", ErrInvalidDescriptor, d.Name, dep.Target, dep.Kind)
		}
	}
	return nil
}

// Tool is the execution contract consumed by the coordinator.
// Execute must report failures through ExecutionResult rather than panicking.
type Tool interface {
	Descriptor() ToolDescriptor
	Execute(ctx context.Context, shared *SharedContext) ExecutionResult
}

// Preparer is implemented by tools that want a pre-execution hook.
type Preparer interface {
	Prepare(ctx context.Context, shared *SharedContext) error
}

// DependencyConsumer is implemented by tools that consume results of the tools
// they depend on or share a stage with.
type DependencyConsumer interface {
	OnDependencyResult(ctx context.Context, result ExecutionResult, shared *SharedContext) error
}

// CatalogReader is the read side of the tool catalog.
type CatalogReader interface {
	Descriptor(name string) (ToolDescriptor, bool)
	Providers(capability string) []ToolDescriptor
	Revision() uint64
}

// ToolLookup resolves executable tools by name.
type ToolLookup interface {
	Tool(name string) (Tool, bool)
}
