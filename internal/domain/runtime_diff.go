package domain

import (
	"reflect"
	"sort"
)

// RuntimeDiff captures runtime-level changes that can be applied dynamically or require restart.
type RuntimeDiff struct {
	DynamicFields         []string
	RestartRequiredFields []string
}

// IsEmpty reports whether the runtime diff contains any changes.
func (d RuntimeDiff) IsEmpty() bool {
	return len(d.DynamicFields) == 0 && len(d.RestartRequiredFields) == 0
}

// RequiresRestart reports whether any runtime changes require a restart.
func (d RuntimeDiff) RequiresRestart() bool {
	return len(d.RestartRequiredFields) > 0
}

// DiffRuntimeConfig compares runtime configs and classifies the changed fields.
// Coordination and recovery settings are swapped in place; the metrics listener is bound once.
func DiffRuntimeConfig(prev, next RuntimeConfig) RuntimeDiff {
	diff := RuntimeDiff{}

	if prev.Coordination != next.Coordination {
		diff.DynamicFields = append(diff.DynamicFields, "coordination")
	}
	if prev.PlanCacheSize != next.PlanCacheSize {
		diff.DynamicFields = append(diff.DynamicFields, "coordination.planCacheSize")
	}
	if !reflect.DeepEqual(prev.Recovery, next.Recovery) {
		diff.DynamicFields = append(diff.DynamicFields, "recovery")
	}
	if prev.Observability != next.Observability {
		diff.RestartRequiredFields = append(diff.RestartRequiredFields, "observability")
	}

	sort.Strings(diff.DynamicFields)
	sort.Strings(diff.RestartRequiredFields)
	return diff
}
