package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// ToolSetHash returns a stable hash of a tool name set. Order and duplicates
// are ignored.
func ToolSetHash(logger *zap.Logger, tools []string) string {
	return hashWithLogger(logger, "tool_set", func() (string, error) {
		seen := make(map[string]struct{}, len(tools))
		names := make([]string, 0, len(tools))
		for _, name := range tools {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
		sort.Strings(names)
		return hashJSON(names)
	})
}

// PlanKey combines a request ID, tool set hash and catalog revision into a cache key.
func PlanKey(requestID, toolSetHash string, revision uint64) string {
	return fmt.Sprintf("%s|%s|%d", requestID, toolSetHash, revision)
}

func hashJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func hashWithLogger(logger *zap.Logger, label string, fn func() (string, error)) string {
	etag, err := fn()
	if err != nil {
		if logger != nil {
			logger.Warn(fmt.Sprintf("%s hash failed", label), zap.Error(err))
		}
		return ""
	}
	return etag
}
