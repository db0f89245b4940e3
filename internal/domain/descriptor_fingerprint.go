package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

type descriptorFingerprintInput struct {
	Name         string                  `json:"name"`
	Version      string                  `json:"version"`
	Capabilities []string                `json:"capabilities"`
	Dependencies []Dependency            `json:"dependencies"`
	Coordination CoordinationPreferences `json:"coordination"`
	Priority     Priority                `json:"priority"`
	Timeout      int64                   `json:"timeoutMs"`
	Estimate     int64                   `json:"estimateMs"`
}

// DescriptorFingerprint hashes the planning-relevant fields of a descriptor.
// Capability order is ignored; dependency order is significant.
func DescriptorFingerprint(desc ToolDescriptor) (string, error) {
	caps := append([]string(nil), desc.Capabilities...)
	sort.Strings(caps)
	deps := desc.Dependencies
	if len(deps) == 0 {
		deps = []Dependency{}
	}
	if len(caps) == 0 {
		caps = []string{}
	}

	input := descriptorFingerprintInput{
		Name:         desc.Name,
		Version:      desc.Version,
		Capabilities: caps,
		Dependencies: deps,
		Coordination: desc.Coordination,
		Priority:     desc.Priority,
		Timeout:      desc.Timeout.Milliseconds(),
		Estimate:     desc.EstimatedDuration.Milliseconds(),
	}

	raw, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("marshal descriptor fingerprint: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
