package gateway

import (
	"github.com/google/jsonschema-go/jsonschema"
)

type optionsArgs struct {
	FailOnMissingDependencies *bool `json:"failOnMissingDependencies,omitempty"`
	PreferParallel            *bool `json:"preferParallel,omitempty"`
	ContinueOnOptionalFailure *bool `json:"continueOnOptionalFailure,omitempty"`
	MaxParallel               *int  `json:"maxParallel,omitempty"`
	ToolTimeoutMs             *int  `json:"toolTimeoutMs,omitempty"`
}

type coordinateArgs struct {
	Tools     []string     `json:"tools"`
	Request   string       `json:"request,omitempty"`
	SessionID string       `json:"sessionId,omitempty"`
	Options   *optionsArgs `json:"options,omitempty"`
}

type runToolArgs struct {
	Request   string `json:"request,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

func optionsSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "object",
		Description: "Overrides of the configured coordination options",
		Properties: map[string]*jsonschema.Schema{
			"failOnMissingDependencies": {Type: "boolean"},
			"preferParallel":            {Type: "boolean"},
			"continueOnOptionalFailure": {Type: "boolean"},
			"maxParallel":               {Type: "integer", Minimum: ptr(1.0)},
			"toolTimeoutMs":             {Type: "integer", Minimum: ptr(1.0)},
		},
	}
}

func coordinateSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"tools": {
				Type:        "array",
				Description: "Names of the tools to run",
				Items:       &jsonschema.Schema{Type: "string"},
				MinItems:    ptr(1),
			},
			"request":   {Type: "string", Description: "Original user request shared with every tool"},
			"sessionId": {Type: "string"},
			"options":   optionsSchema(),
		},
		Required: []string{"tools"},
	}
}

func runToolSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"request":   {Type: "string", Description: "Original user request shared with every tool"},
			"sessionId": {Type: "string"},
		},
	}
}

func emptySchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object"}
}

func ptr[T any](v T) *T {
	return &v
}
