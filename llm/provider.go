// LLM Provider interface - the abstract interface for language model endpoints.
//
// Information Hiding:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific stop reasons, normalized to StopReason

package llm

import (
	"context"
)

// Provider defines the abstract interface for LLM providers.
// Implementations hide provider-specific details while exposing
// a consistent request/response contract with tool calling.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Complete sends one request and returns the model's response.
	// Errors are transport, auth or quota failures; they are not retried.
	Complete(ctx context.Context, req Request) (*Response, error)
}
