package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidArgument  ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeUnavailable      ErrorCode = "UNAVAILABLE"
	CodeFailedPrecond    ErrorCode = "FAILED_PRECONDITION"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeUnauthenticated  ErrorCode = "UNAUTHENTICATED"
	CodeResourceLimit    ErrorCode = "RESOURCE_EXHAUSTED"
	CodeInternal         ErrorCode = "INTERNAL"
	CodeCanceled         ErrorCode = "CANCELED"
	CodeDeadlineExceeded ErrorCode = "DEADLINE_EXCEEDED"
)

var (
	ErrToolNotFound              = errors.New("tool not found")
	ErrInvalidDescriptor         = errors.New("invalid tool descriptor")
	ErrRegistrationConflict      = errors.New("tool registration conflict")
	ErrCircularDependency        = errors.New("circular dependency")
	ErrMissingRequiredDependency = errors.New("missing required dependency")
	ErrDependencyConflict        = errors.New("dependency conflict")
	ErrEmptyRequest              = errors.New("no tools requested")

	ErrConnection      = errors.New("connection error")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthenticated = errors.New("authentication failed")
)

type Error struct {
	Code      ErrorCode
	Op        string
	Message   string
	Cause     error
	Retryable bool
	Meta      map[string]string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
		Cause:   cause,
	}
}

func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op != "" || op == "" {
			return existing
		}
		return &Error{
			Code:      existing.Code,
			Op:        op,
			Message:   existing.Message,
			Cause:     existing.Cause,
			Retryable: existing.Retryable,
			Meta:      existing.Meta,
		}
	}
	return E(code, op, "", err)
}

func CodeFrom(err error) (ErrorCode, bool) {
	if err == nil {
		return "", false
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code, true
	}
	switch {
	case errors.Is(err, ErrInvalidDescriptor), errors.Is(err, ErrEmptyRequest):
		return CodeInvalidArgument, true
	case errors.Is(err, ErrToolNotFound):
		return CodeNotFound, true
	case errors.Is(err, ErrRegistrationConflict):
		return CodeAlreadyExists, true
	case errors.Is(err, ErrCircularDependency),
		errors.Is(err, ErrMissingRequiredDependency),
		errors.Is(err, ErrDependencyConflict):
		return CodeFailedPrecond, true
	case errors.Is(err, ErrConnection):
		return CodeUnavailable, true
	case errors.Is(err, ErrRateLimited):
		return CodeResourceLimit, true
	case errors.Is(err, ErrUnauthenticated):
		return CodeUnauthenticated, true
	default:
		return "", false
	}
}

// ResolutionErrorKind names a resolution-time failure.
type ResolutionErrorKind string

const (
	ResolutionCircularDependency        ResolutionErrorKind = "CircularDependency"
	ResolutionMissingRequiredDependency ResolutionErrorKind = "MissingRequiredDependency"
	ResolutionDependencyConflict        ResolutionErrorKind = "DependencyConflict"
)

// ResolutionError is the structured failure returned when no plan can be produced.
// Tool is the owning tool (empty for a top-level request), Dependency the offending
// target, Cycle the visiting path that closed a loop.
type ResolutionError struct {
	Kind       ResolutionErrorKind
	Tool       string
	Dependency string
	Cycle      []string
}

func (e *ResolutionError) Error() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case ResolutionCircularDependency:
		return fmt.Sprintf("%s: %s (cycle %v)", e.Kind, e.Dependency, e.Cycle)
	case ResolutionDependencyConflict:
		return fmt.Sprintf("%s: %s conflicts with %s", e.Kind, e.Tool, e.Dependency)
	default:
		if e.Tool == "" {
			return fmt.Sprintf("%s(%q)", e.Kind, e.Dependency)
		}
		return fmt.Sprintf("%s(%q) required by %s", e.Kind, e.Dependency, e.Tool)
	}
}

func (e *ResolutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case ResolutionCircularDependency:
		return ErrCircularDependency
	case ResolutionMissingRequiredDependency:
		return ErrMissingRequiredDependency
	case ResolutionDependencyConflict:
		return ErrDependencyConflict
	default:
		return nil
	}
}

// ToolError lets a tool classify its own failure for the recovery manager.
type ToolError struct {
	Kind     ErrorKind
	Severity Severity
	Message  string
	Cause    error
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if msg == "" {
		return string(e.Kind)
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewToolError builds a classified tool failure.
func NewToolError(kind ErrorKind, msg string, cause error) *ToolError {
	return &ToolError{Kind: kind, Message: msg, Cause: cause}
}
