package domain

import "time"

// ExecutionResult is the outcome of one tool invocation.
type ExecutionResult struct {
	ToolName     string
	Success      bool
	Payload      any
	Output       string
	Err          error
	Kind         ErrorKind
	Duration     time.Duration
	Attempts     int
	FallbackFrom string
	Degraded     bool
}

// DurationMs returns the duration in milliseconds.
func (r ExecutionResult) DurationMs() int64 {
	return r.Duration.Milliseconds()
}

// ErrorMessage returns the error text or an empty string.
func (r ExecutionResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Succeeded builds a successful result.
func Succeeded(tool string, payload any, output string) ExecutionResult {
	return ExecutionResult{ToolName: tool, Success: true, Payload: payload, Output: output}
}

// Failed builds a failed result classified from err.
func Failed(tool string, err error) ExecutionResult {
	return ExecutionResult{ToolName: tool, Err: err, Kind: ClassifyError(err)}
}

// CoordinationResult aggregates the execution of a plan. Success is true iff no
// errors were recorded; a degraded outcome still reports success and leaves a
// warning.
type CoordinationResult struct {
	RequestID          string
	Success            bool
	Results            map[string]ExecutionResult
	ExecutionOrder     []string
	Errors             []string
	Warnings           []string
	Duration           time.Duration
	ParallelEfficiency float64
}

// SuccessfulTools lists tools that succeeded, in execution order.
func (r CoordinationResult) SuccessfulTools() []string {
	out := make([]string, 0, len(r.ExecutionOrder))
	for _, name := range r.ExecutionOrder {
		if res, ok := r.Results[name]; ok && res.Success {
			out = append(out, name)
		}
	}
	return out
}

// FailedTools lists tools that failed, in execution order.
func (r CoordinationResult) FailedTools() []string {
	out := make([]string, 0)
	for _, name := range r.ExecutionOrder {
		if res, ok := r.Results[name]; ok && !res.Success {
			out = append(out, name)
		}
	}
	return out
}

// Degraded reports whether any result was synthesized by degradation.
func (r CoordinationResult) Degraded() bool {
	for _, res := range r.Results {
		if res.Degraded {
			return true
		}
	}
	return false
}
