package llm

import (
	"context"
	"fmt"

	"github.com/ppetrov/opinia/internal/model"
)

// Annotator coordinates annotation requests against the configured LLM provider
type Annotator struct {
	provider Provider
	config   Config
}

// NewAnnotator creates an annotator from configuration.
// An empty provider name yields a disabled annotator, not an error.
func NewAnnotator(config Config) (*Annotator, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}

	return &Annotator{
		provider: provider,
		config:   config,
	}, nil
}

// IsEnabled returns true when a provider is configured
func (a *Annotator) IsEnabled() bool {
	return a.provider != nil
}

// ProviderName returns the configured provider name, or "" when disabled
func (a *Annotator) ProviderName() string {
	if a.provider == nil {
		return ""
	}
	return a.provider.Name()
}

// Annotate sends one batch of records to the provider.
// Disabled annotators return (nil, nil) so callers can skip labeling entirely.
func (a *Annotator) Annotate(ctx context.Context, records []model.FeedbackRecord) (*AnnotateResponse, error) {
	if a.provider == nil {
		return nil, nil
	}

	if !a.provider.IsAvailable(ctx) {
		return nil, fmt.Errorf("LLM provider %s is not available - check API key and configuration", a.provider.Name())
	}

	req := AnnotateRequest{
		Records:   records,
		Model:     a.config.Model,
		MaxTokens: a.config.MaxTokens,
	}

	return a.provider.Annotate(ctx, req)
}
