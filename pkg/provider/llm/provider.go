// Package llm defines the Provider interface for language-model backends.
//
// An LLM provider wraps a remote model API (e.g. OpenAI, or any backend
// reachable through any-llm-go) and exposes a single blocking Complete
// call. The audit pipeline uses it as an evidence-extraction oracle: one
// large prompt in, one JSON document out. Streaming, tool calling and
// conversation state are deliberately absent; a scoring run is a single
// request/response pair.
//
// Implementations must be safe for concurrent use and must propagate
// context cancellation promptly.
package llm

import "context"

// Usage holds token accounting information returned by the backend.
// Counts are in the model's native token unit and may differ between
// providers for the same textual content.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the system prompt
	// and user prompt together.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens. Some providers
	// return it directly rather than computing it from the parts.
	TotalTokens int
}

// CompletionRequest carries everything the model needs for one oracle call.
type CompletionRequest struct {
	// SystemPrompt is a high-priority instruction injected before Prompt.
	// Providers without a dedicated system channel prepend it as a
	// system-role message.
	SystemPrompt string

	// Prompt is the user-role content driving the response.
	Prompt string

	// Temperature controls output randomness. Scoring runs use a low
	// value for reproducible judgments; zero means provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int

	// JSONResponse requests that the model emit a single valid JSON
	// object. Providers with native JSON mode use it; others enforce the
	// constraint through the system prompt.
	JSONResponse bool
}

// CompletionResponse is the model's full reply.
type CompletionResponse struct {
	// Content is the complete text of the response.
	Content string

	// Model is the backend model that produced the response, when known.
	Model string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Name identifies the provider for logging, metrics and fallback
	// reporting (e.g. "openai", "anyllm/anthropic", "mock").
	Name() string

	// Complete sends req to the model and waits for the full response.
	// Returns an error if the request fails or ctx is cancelled first.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
