package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
	"github.com/mikeoller82/codexa-sub000/internal/infra/mapping"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
	formatTOML = "toml"
)

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML, formatTOML:
		return nil
	default:
		return fmt.Errorf("invalid --format %q (want text, json, yaml or toml)", format)
	}
}

// encode writes value in a structured format. TOML needs a table at the top
// level, so callers wrap lists in a struct.
func encode(w io.Writer, value any, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return err
		}
		return enc.Close()
	case formatTOML:
		return toml.NewEncoder(w).Encode(value)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

type toolsDocument struct {
	Tools []mapping.ToolView `json:"tools" yaml:"tools" toml:"tools"`
}

func printTools(w io.Writer, tools []mapping.ToolView, format string) error {
	if format != formatText {
		return encode(w, toolsDocument{Tools: tools}, format)
	}
	for _, tool := range tools {
		fmt.Fprintf(w, "%s %s [%s] %s\n", tool.Name, tool.Version, tool.Priority, strings.Join(tool.Capabilities, ","))
		for _, dep := range tool.Dependencies {
			line := fmt.Sprintf("  %s %s", dep.Kind, dep.Target)
			if dep.Constraint != "" {
				line += " " + dep.Constraint
			}
			if len(dep.Fallbacks) > 0 {
				line += " fallback=" + strings.Join(dep.Fallbacks, ",")
			}
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

func printPlan(w io.Writer, plan mapping.PlanView, format string) error {
	if format != formatText {
		return encode(w, plan, format)
	}
	fmt.Fprintf(w, "request=%s tools=%d depth=%d parallel_efficiency=%.2f estimated=%dms\n",
		plan.RequestID, len(plan.Tools), plan.DependencyDepth, plan.ParallelEfficiency, plan.EstimatedDurationMs)
	for _, stage := range plan.Stages {
		mode := "sequential"
		if stage.Parallel {
			mode = "parallel"
		}
		fmt.Fprintf(w, "stage %d (%s): %s\n", stage.Index, mode, strings.Join(stage.Tools, ", "))
	}
	for _, warning := range plan.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}

func printResult(w io.Writer, result mapping.ResultView, format string) error {
	if format != formatText {
		return encode(w, result, format)
	}
	status := "success"
	switch {
	case !result.Success:
		status = "failure"
	case result.Degraded:
		status = "degraded"
	}
	fmt.Fprintf(w, "request=%s status=%s duration=%dms\n", result.RequestID, status, result.DurationMs)
	for _, res := range result.Results {
		switch {
		case res.Success && res.FallbackFrom != "":
			fmt.Fprintf(w, "  ok   %s (via %s): %s\n", res.Tool, res.FallbackFrom, res.Output)
		case res.Success:
			fmt.Fprintf(w, "  ok   %s: %s\n", res.Tool, res.Output)
		default:
			fmt.Fprintf(w, "  fail %s [%s]: %s\n", res.Tool, res.Kind, res.Error)
		}
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	for _, msg := range result.Errors {
		fmt.Fprintf(w, "error: %s\n", msg)
	}
	return nil
}

type configDocument struct {
	Coordination  coordinationView  `json:"coordination" yaml:"coordination" toml:"coordination"`
	Recovery      recoveryView      `json:"recovery" yaml:"recovery" toml:"recovery"`
	Observability observabilityView `json:"observability" yaml:"observability" toml:"observability"`
}

type coordinationView struct {
	FailOnMissingDependencies bool   `json:"failOnMissingDependencies" yaml:"failOnMissingDependencies" toml:"failOnMissingDependencies"`
	PreferParallel            bool   `json:"preferParallel" yaml:"preferParallel" toml:"preferParallel"`
	ContinueOnOptionalFailure bool   `json:"continueOnOptionalFailure" yaml:"continueOnOptionalFailure" toml:"continueOnOptionalFailure"`
	MaxParallel               int    `json:"maxParallel" yaml:"maxParallel" toml:"maxParallel"`
	ToolTimeout               string `json:"toolTimeout" yaml:"toolTimeout" toml:"toolTimeout"`
	PlanCacheSize             int    `json:"planCacheSize" yaml:"planCacheSize" toml:"planCacheSize"`
}

type recoveryView struct {
	Enabled            bool                `json:"enabled" yaml:"enabled" toml:"enabled"`
	MaxRetries         int                 `json:"maxRetries" yaml:"maxRetries" toml:"maxRetries"`
	Backoff            []string            `json:"backoff" yaml:"backoff" toml:"backoff"`
	HistorySize        int                 `json:"historySize" yaml:"historySize" toml:"historySize"`
	Cooldown           string              `json:"cooldown" yaml:"cooldown" toml:"cooldown"`
	UnhealthyThreshold int                 `json:"unhealthyThreshold" yaml:"unhealthyThreshold" toml:"unhealthyThreshold"`
	Fallbacks          map[string][]string `json:"fallbacks,omitempty" yaml:"fallbacks,omitempty" toml:"fallbacks,omitempty"`
}

type observabilityView struct {
	ListenAddress  string `json:"listenAddress" yaml:"listenAddress" toml:"listenAddress"`
	MetricsEnabled bool   `json:"metricsEnabled" yaml:"metricsEnabled" toml:"metricsEnabled"`
}

func mapConfig(cfg domain.RuntimeConfig) configDocument {
	backoff := make([]string, 0, len(cfg.Recovery.Backoff))
	for _, d := range cfg.Recovery.Backoff {
		backoff = append(backoff, d.String())
	}
	return configDocument{
		Coordination: coordinationView{
			FailOnMissingDependencies: cfg.Coordination.FailOnMissingDependencies,
			PreferParallel:            cfg.Coordination.PreferParallel,
			ContinueOnOptionalFailure: cfg.Coordination.ContinueOnOptionalFailure,
			MaxParallel:               cfg.Coordination.MaxParallel,
			ToolTimeout:               cfg.Coordination.ToolTimeout.String(),
			PlanCacheSize:             cfg.PlanCacheSize,
		},
		Recovery: recoveryView{
			Enabled:            cfg.Recovery.Enabled,
			MaxRetries:         cfg.Recovery.MaxRetries,
			Backoff:            backoff,
			HistorySize:        cfg.Recovery.HistorySize,
			Cooldown:           cfg.Recovery.Cooldown.String(),
			UnhealthyThreshold: cfg.Recovery.UnhealthyThreshold,
			Fallbacks:          cfg.Recovery.Fallbacks,
		},
		Observability: observabilityView{
			ListenAddress:  cfg.Observability.ListenAddress,
			MetricsEnabled: cfg.Observability.MetricsEnabled,
		},
	}
}

func printConfig(w io.Writer, cfg domain.RuntimeConfig, format string) error {
	doc := mapConfig(cfg)
	if format != formatText {
		return encode(w, doc, format)
	}
	fmt.Fprintln(w, "configuration ok")
	fmt.Fprintf(w, "  maxParallel=%d toolTimeout=%s planCacheSize=%d\n",
		doc.Coordination.MaxParallel, doc.Coordination.ToolTimeout, doc.Coordination.PlanCacheSize)
	fmt.Fprintf(w, "  recovery enabled=%t maxRetries=%d backoff=%s\n",
		doc.Recovery.Enabled, doc.Recovery.MaxRetries, strings.Join(doc.Recovery.Backoff, ","))
	return nil
}
