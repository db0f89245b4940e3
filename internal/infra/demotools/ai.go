package demotools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

// TextGenerator stands in for a provider-backed generation tool. When Failure
// is set every call fails with that kind, which exercises recovery.
type TextGenerator struct {
	Failure domain.ErrorKind
	logger  *zap.Logger
}

func NewTextGenerator(failure domain.ErrorKind, logger *zap.Logger) *TextGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextGenerator{Failure: failure, logger: logger.Named("ai_text_generation")}
}

func (t *TextGenerator) Descriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:              "ai_text_generation",
		Version:           "1.0.0",
		Description:       "Generates text with the configured AI provider",
		Category:          "ai",
		Capabilities:      []string{"text_generation"},
		Coordination:      domain.CoordinationPreferences{ParallelEligible: true},
		Priority:          domain.PriorityHigh,
		Timeout:           10 * time.Second,
		EstimatedDuration: 2 * time.Second,
	}
}

func (t *TextGenerator) Execute(ctx context.Context, shared *domain.SharedContext) domain.ExecutionResult {
	if err := ctx.Err(); err != nil {
		return domain.Failed("ai_text_generation", err)
	}
	if t.Failure != "" {
		t.logger.Debug("simulating provider failure", zap.String("kind", string(t.Failure)))
		return domain.Failed("ai_text_generation", simulatedFailure(t.Failure))
	}
	return domain.Succeeded("ai_text_generation", nil, "Generated: "+prompt(shared))
}

func simulatedFailure(kind domain.ErrorKind) error {
	switch kind {
	case domain.ErrorKindRateLimit:
		return &domain.ToolError{Kind: kind, Message: "provider rate limit exceeded", Cause: domain.ErrRateLimited}
	case domain.ErrorKindAuthentication:
		return &domain.ToolError{Kind: kind, Message: "provider rejected the API key", Cause: domain.ErrUnauthenticated}
	case domain.ErrorKindConnection:
		return &domain.ToolError{Kind: kind, Message: "provider connection refused", Cause: domain.ErrConnection}
	case domain.ErrorKindTimeout:
		return &domain.ToolError{Kind: kind, Message: "provider request timed out", Cause: context.DeadlineExceeded}
	default:
		return &domain.ToolError{Kind: kind, Message: fmt.Sprintf("provider failed (%s)", kind)}
	}
}

// Provider is the generic provider tool used as a fallback.
type Provider struct{}

func (Provider) Descriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:         "ai_provider",
		Version:      "1.0.0",
		Description:  "Generic AI provider access",
		Category:     "ai",
		Capabilities: []string{"text_generation", "code_generation"},
		Coordination: domain.CoordinationPreferences{ParallelEligible: true},
	}
}

func (Provider) Execute(ctx context.Context, shared *domain.SharedContext) domain.ExecutionResult {
	if err := ctx.Err(); err != nil {
		return domain.Failed("ai_provider", err)
	}
	return domain.Succeeded("ai_provider", nil, "Provider response: "+prompt(shared))
}

// Conversational answers without any provider and is the last fallback.
type Conversational struct{}

func (Conversational) Descriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:         "conversational_tool",
		Version:      "1.0.0",
		Description:  "Answers conversationally without a provider",
		Category:     "ai",
		Capabilities: []string{"conversation"},
		Coordination: domain.CoordinationPreferences{ParallelEligible: true},
		Priority:     domain.PriorityLow,
	}
}

func (Conversational) Execute(_ context.Context, shared *domain.SharedContext) domain.ExecutionResult {
	return domain.Succeeded("conversational_tool", nil, "I can help with that: "+prompt(shared))
}

func prompt(shared *domain.SharedContext) string {
	if shared == nil || strings.TrimSpace(shared.UserRequest) == "" {
		return "(empty request)"
	}
	return strings.TrimSpace(shared.UserRequest)
}
