package llm

import (
	"context"

	"github.com/ppetrov/opinia/internal/model"
)

// Provider defines the interface for annotation model providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Annotate asks the model to label a batch of feedback records and
	// returns the raw response text for the extractor to parse
	Annotate(ctx context.Context, req AnnotateRequest) (*AnnotateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// AnnotateRequest contains the input for one annotation call
type AnnotateRequest struct {
	// Records is the feedback batch to annotate. Providers build the
	// standard prompt from it unless Prompt is set.
	Records []model.FeedbackRecord

	// Prompt is an optional custom prompt (if empty, use the default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// AnnotateResponse contains the model's raw output
type AnnotateResponse struct {
	// Text is the model's response text, unparsed. Tolerant parsing is the
	// extractor's job, not the provider's.
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds annotation provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Model:     "",
		Timeout:   60,
		MaxTokens: 1500,
	}
}

// annotatorSystemPrompt is the shared system message for all providers
const annotatorSystemPrompt = "You are a feedback triage assistant. You label user feedback records and respond with machine-readable JSON only."
