// Package llm generates optional catalogue descriptions from extracted
// Linked Art fields. Descriptions never alter the extracted results.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/latool/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Describe writes a catalogue description of the extracted fields
	Describe(ctx context.Context, req DescribeRequest) (*DescribeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// DescribeRequest contains the input for a description
type DescribeRequest struct {
	// Result is the analysis to describe
	Result *model.Result

	// AllowedURLs is the STRICT allowlist of URLs the description can cite
	AllowedURLs []string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// DescribeResponse contains the generated description
type DescribeResponse struct {
	Text       string
	CitedURLs  []string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for OpenAI-compatible endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// StrictCitations rejects descriptions citing URLs outside the results
	StrictCitations bool

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
		Timeout:         30,
		StrictCitations: true,
		MaxTokens:       400,
	}
}

// descriptionFields are the result fields handed to the model, in prompt order
var descriptionFields = []string{
	"Entity Type", "Title", "Exhibited Title", "Former Title", "Accession Number",
	"Work Type (Classification)", "Creators", "Timespan (Name)", "Timespan (Structured)",
	"Materials (Structured)", "Dimensions (Structured)", "Credit Line", "Description",
	"Provenance Description", "Location", "Owner", "Set", "Birth Place", "Birth Date",
	"Death Place", "Death Date", "Founded By", "Part Of", "Participants", "Web Pages",
}

// AllowedURLs lists every URL value in the results, the only URLs a
// description may cite
func AllowedURLs(results *model.Results) []string {
	if results == nil {
		return nil
	}
	var urls []string
	seen := make(map[string]bool)
	for _, field := range results.Fields() {
		values, _ := results.Get(field)
		for _, v := range values {
			if (strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")) && !seen[v] {
				seen[v] = true
				urls = append(urls, v)
			}
		}
	}
	return urls
}

// BuildPrompt constructs the default prompt with strict citation rules
func BuildPrompt(result *model.Result, allowedURLs []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `You are writing a short museum catalogue description from Linked Art data.

CRITICAL RULES:
1. You MUST ONLY cite URLs from this allowed list:
%s

2. Use ONLY the facts listed below. DO NOT infer, speculate, or add outside knowledge.
3. Omit any field marked "%s".
4. If the facts are too sparse for a description, say so in one sentence.

Record: %s

Facts:
`, joinURLs(allowedURLs), model.NotFound, result.SourceURL)

	if result.Results != nil {
		for _, field := range descriptionFields {
			if !result.Results.Found(field) {
				continue
			}
			values, _ := result.Results.Get(field)
			fmt.Fprintf(&sb, "- %s: %s\n", field, strings.Join(values, "; "))
		}
	}

	sb.WriteString("\nWrite a 2-4 sentence description in plain prose.")
	return sb.String()
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return "(No URLs available)"
	}
	var sb strings.Builder
	for i, url := range urls {
		if i >= 20 { // Limit to first 20 to avoid token bloat
			fmt.Fprintf(&sb, "\n... and %d more URLs", len(urls)-20)
			break
		}
		fmt.Fprintf(&sb, "\n- %s", url)
	}
	return sb.String()
}
