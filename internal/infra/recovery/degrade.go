package recovery

import (
	"fmt"
	"strings"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

// DegradedResponse is the payload of a synthesized best-effort result.
type DegradedResponse struct {
	Message  string           `json:"message"`
	Guidance string           `json:"guidance"`
	Kind     domain.ErrorKind `json:"kind"`
	Tool     string           `json:"tool"`
}

var guidance = map[domain.ErrorKind]string{
	domain.ErrorKindConnection:     "Check your internet connection and try again.",
	domain.ErrorKindTimeout:        "The operation timed out. Try again or simplify your request.",
	domain.ErrorKindAuthentication: "Check your API keys and authentication settings.",
	domain.ErrorKindRateLimit:      "You've hit rate limits. Please wait and try again later.",
	domain.ErrorKindConfiguration:  "Check your configuration settings.",
	domain.ErrorKindValidation:     "Please check your input and try again.",
}

const defaultGuidance = "Please try again or contact support if the issue persists."

// Guidance returns the user-facing hint for an error kind.
func Guidance(kind domain.ErrorKind) string {
	if text, ok := guidance[kind]; ok {
		return text
	}
	return defaultGuidance
}

func degradedMessage(ec domain.ErrorContext) string {
	if strings.HasPrefix(ec.ToolName, "ai_") {
		return fmt.Sprintf("I apologize, but I'm currently unable to process your AI request due to a %s error. "+
			"This might be due to provider issues or connectivity problems. "+
			"Please try again later or rephrase your request.", ec.Kind)
	}
	return fmt.Sprintf("I encountered an issue with the %s tool. The error was: %s. "+
		"Please try a different approach or contact support if the issue persists.", ec.ToolName, ec.Message)
}

// Degrade synthesizes a successful, clearly marked best-effort result.
func Degrade(ec domain.ErrorContext) domain.ExecutionResult {
	resp := DegradedResponse{
		Message:  degradedMessage(ec),
		Guidance: Guidance(ec.Kind),
		Kind:     ec.Kind,
		Tool:     ec.ToolName,
	}
	return domain.ExecutionResult{
		ToolName: ec.ToolName,
		Success:  true,
		Payload:  resp,
		Output:   resp.Message + "\n\n" + resp.Guidance,
		Kind:     ec.Kind,
		Attempts: ec.RetryCount + 1,
		Degraded: true,
	}
}
