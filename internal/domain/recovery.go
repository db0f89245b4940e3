package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrorKind classifies a runtime tool failure.
type ErrorKind string

const (
	ErrorKindTimeout        ErrorKind = "timeout"
	ErrorKindConnection     ErrorKind = "connection"
	ErrorKindRateLimit      ErrorKind = "rate-limit"
	ErrorKindAuthentication ErrorKind = "authentication"
	ErrorKindValidation     ErrorKind = "validation"
	ErrorKindConfiguration  ErrorKind = "configuration"
	ErrorKindTool           ErrorKind = "tool"
	ErrorKindInternal       ErrorKind = "internal"
)

// Severity ranks a failure for recovery decisions.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RecoveryState is a node of the per-failure recovery state machine.
type RecoveryState string

const (
	RecoveryClassified RecoveryState = "classified"
	RecoveryRetrying   RecoveryState = "retrying"
	RecoveryFallback   RecoveryState = "fallback"
	RecoveryDegraded   RecoveryState = "degraded"
	RecoveryAborted    RecoveryState = "aborted"
)

// Terminal reports whether no further transitions follow.
func (s RecoveryState) Terminal() bool {
	switch s {
	case RecoveryDegraded, RecoveryAborted:
		return true
	default:
		return false
	}
}

// ErrorContext describes one tool failure. RetryCount is the only field
// mutated during a retry cycle.
type ErrorContext struct {
	ToolName   string    `json:"toolName"`
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	Severity   Severity  `json:"severity"`
	RetryCount int       `json:"retryCount"`
	Timestamp  time.Time `json:"timestamp"`
}

// RecoveryDecision is the outcome of evaluating an ErrorContext.
type RecoveryDecision struct {
	State      RecoveryState `json:"state"`
	Delay      time.Duration `json:"delay,omitempty"`
	Candidates []string      `json:"candidates,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

// ClassifyError maps an error to an ErrorKind. Tool-declared kinds win, then
// well-known sentinels, then message patterns.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) && toolErr.Kind != "" {
		return toolErr.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorKindTimeout
	case errors.Is(err, ErrConnection):
		return ErrorKindConnection
	case errors.Is(err, ErrRateLimited):
		return ErrorKindRateLimit
	case errors.Is(err, ErrUnauthenticated):
		return ErrorKindAuthentication
	case errors.Is(err, ErrInvalidDescriptor):
		return ErrorKindConfiguration
	}
	if code, ok := CodeFrom(err); ok {
		switch code {
		case CodeDeadlineExceeded:
			return ErrorKindTimeout
		case CodeUnavailable:
			return ErrorKindConnection
		case CodeResourceLimit:
			return ErrorKindRateLimit
		case CodeUnauthenticated:
			return ErrorKindAuthentication
		case CodeInvalidArgument:
			return ErrorKindValidation
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return ErrorKindTimeout
	case strings.Contains(msg, "connection"):
		return ErrorKindConnection
	case strings.Contains(msg, "rate limit"):
		return ErrorKindRateLimit
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "authentication"):
		return ErrorKindAuthentication
	default:
		return ErrorKindTool
	}
}
