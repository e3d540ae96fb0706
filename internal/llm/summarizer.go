package llm

import (
	"context"
	"fmt"

	"github.com/ppiankov/latool/internal/model"
)

// Summarizer produces the optional description of an analysis
type Summarizer struct {
	provider Provider
	config   Config
}

// NewSummarizer creates a summarizer; an empty provider disables it
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the configured provider name, or ""
func (s *Summarizer) ProviderName() string {
	if !s.IsEnabled() {
		return ""
	}
	return s.provider.Name()
}

// Describe generates a description of a successful analysis. Provider
// failures are reported as warnings on the description, never as errors,
// so a failed description does not fail the analysis.
func (s *Summarizer) Describe(ctx context.Context, result *model.Result) (*model.Description, error) {
	if !s.IsEnabled() || result == nil || !result.Success {
		return nil, nil
	}

	desc := &model.Description{
		Provider:        s.provider.Name(),
		Model:           s.config.Model,
		StrictCitations: s.config.StrictCitations,
	}

	if !s.provider.IsAvailable(ctx) {
		desc.Warnings = append(desc.Warnings, fmt.Sprintf("LLM provider %s is not available", s.provider.Name()))
		return desc, nil
	}
	desc.Enabled = true

	allowed := AllowedURLs(result.Results)
	resp, err := s.provider.Describe(ctx, DescribeRequest{
		Result:      result,
		AllowedURLs: allowed,
		Model:       s.config.Model,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		desc.Warnings = append(desc.Warnings, fmt.Sprintf("Description generation failed: %v", err))
		return desc, nil
	}

	desc.Text = resp.Text
	desc.CitedURLs = resp.CitedURLs
	if resp.Model != "" {
		desc.Model = resp.Model
	}
	desc.Warnings = append(desc.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	if s.config.StrictCitations {
		desc.Warnings = append(desc.Warnings, fmt.Sprintf("Verified %d citations", len(resp.CitedURLs)))
	}
	return desc, nil
}
