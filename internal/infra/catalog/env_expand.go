package catalog

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// expandConfigEnv substitutes ${VAR} and ${VAR:-default} in YAML string
// scalars and reports variables that were unset without a default.
func expandConfigEnv(raw []byte) (string, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return "", nil, fmt.Errorf("parse config: %w", err)
	}
	if root.Kind == 0 {
		return "", nil, nil
	}

	missing := make(map[string]struct{})
	walkScalars(&root, func(node *yaml.Node) {
		expandScalar(node, missing)
	})

	expanded, err := yaml.Marshal(&root)
	if err != nil {
		return "", nil, fmt.Errorf("encode expanded config: %w", err)
	}

	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return string(expanded), names, nil
}

func walkScalars(node *yaml.Node, fn func(*yaml.Node)) {
	switch node.Kind {
	case yaml.ScalarNode:
		fn(node)
	case yaml.MappingNode:
		for i := 1; i < len(node.Content); i += 2 {
			walkScalars(node.Content[i], fn)
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			walkScalars(node.Alias, fn)
		}
	default:
		for _, child := range node.Content {
			walkScalars(child, fn)
		}
	}
}

func expandScalar(node *yaml.Node, missing map[string]struct{}) {
	if node.Tag != "" && node.Tag != "!!str" {
		return
	}
	if !strings.Contains(node.Value, "$") {
		return
	}

	expanded := os.Expand(node.Value, func(key string) string {
		name, fallback, hasDefault := strings.Cut(key, ":-")
		if val, ok := os.LookupEnv(name); ok && val != "" {
			return val
		}
		if hasDefault {
			return fallback
		}
		missing[name] = struct{}{}
		return ""
	})
	if expanded == node.Value {
		return
	}

	node.Value = expanded
	if node.Style != 0 {
		node.Tag = "!!str"
		return
	}
	node.Tag = scalarTag(expanded)
}

// scalarTag re-types a plain scalar so expanded numbers and booleans decode
// as such.
func scalarTag(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "!!str"
	}
	if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return "!!int"
	}
	switch strings.ToLower(trimmed) {
	case "true", "false":
		return "!!bool"
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return "!!float"
	}
	return "!!str"
}
