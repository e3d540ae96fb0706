package model

import "time"

// Result is the outcome of one analysis run
type Result struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	SourceURL  string    `json:"source_url" yaml:"source_url"`
	AnalyzedAt time.Time `json:"analyzed_at" yaml:"analyzed_at"`

	Success    bool   `json:"success" yaml:"success"`
	Cancelled  bool   `json:"cancelled,omitempty" yaml:"cancelled,omitempty"` // Run aborted by the caller, distinct from a failure
	EntityType string `json:"entity_type,omitempty" yaml:"entity_type,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`

	Results     *Results `json:"results,omitempty" yaml:"results,omitempty"`
	LogMessages []string `json:"log_messages" yaml:"log_messages"`

	// Optional steps; they never alter Results
	Links       []LinkStatus `json:"links,omitempty" yaml:"links,omitempty"`
	Description *Description `json:"description,omitempty" yaml:"description,omitempty"`
}

// LinkStatus is the accessibility of one URL found in the results
type LinkStatus struct {
	URL         string `json:"url" yaml:"url"`
	Field       string `json:"field" yaml:"field"`
	Accessible  bool   `json:"accessible" yaml:"accessible"`
	StatusCode  int    `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty" yaml:"redirect_url,omitempty"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Description is an optional generated catalogue description
type Description struct {
	Enabled         bool     `json:"enabled" yaml:"enabled"`
	Provider        string   `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model           string   `json:"model,omitempty" yaml:"model,omitempty"`
	StrictCitations bool     `json:"strict_citations" yaml:"strict_citations"`
	Text            string   `json:"text,omitempty" yaml:"text,omitempty"`
	CitedURLs       []string `json:"cited_urls,omitempty" yaml:"cited_urls,omitempty"`
	Warnings        []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Failure builds an unsuccessful result
func Failure(runID, sourceURL string, err error) *Result {
	return &Result{
		RunID:       runID,
		SourceURL:   sourceURL,
		AnalyzedAt:  time.Now().UTC(),
		Success:     false,
		Error:       err.Error(),
		LogMessages: []string{},
	}
}
