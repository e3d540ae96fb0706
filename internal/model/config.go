package model

import "time"

// Config is the complete latool configuration
type Config struct {
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Parse       ParseConfig       `yaml:"parse" mapstructure:"parse"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
}

// HTTPConfig controls every outbound fetch
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"` // Per request
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitConfig is the per-host request budget
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// CacheConfig controls the response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	Dir       string        `yaml:"dir" mapstructure:"dir"` // Empty (the default) keeps the cache in memory
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ParseConfig controls the recursive entity parser
type ParseConfig struct {
	MaxDepth          int  `yaml:"max_depth" mapstructure:"max_depth"`
	ResolveReferences bool `yaml:"resolve_references" mapstructure:"resolve_references"`
	MaxConcurrency    int  `yaml:"max_concurrency" mapstructure:"max_concurrency"` // Concurrent reference fetches
}

// ConcurrencyConfig controls batch and link-check fan-out
type ConcurrencyConfig struct {
	Workers     int `yaml:"workers" mapstructure:"workers"`
	LinkWorkers int `yaml:"link_workers" mapstructure:"link_workers"`
}

// OutputConfig controls what the CLI prints
type OutputConfig struct {
	Verbose            bool `yaml:"verbose" mapstructure:"verbose"`
	ShowLog            bool `yaml:"show_log" mapstructure:"show_log"`
	ShowTree           bool `yaml:"show_tree" mapstructure:"show_tree"`
	MarkdownStatements bool `yaml:"markdown_statements" mapstructure:"markdown_statements"`
}

// LLMConfig controls the optional description generator
type LLMConfig struct {
	Provider        string `yaml:"provider" mapstructure:"provider"` // "" disables, "openai" or "ollama"
	Model           string `yaml:"model" mapstructure:"model"`
	APIKey          string `yaml:"-" mapstructure:"api_key"`
	BaseURL         string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout         int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens       int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	StrictCitations bool   `yaml:"strict_citations" mapstructure:"strict_citations"`
}

// DefaultUserAgent identifies latool to vocabulary and collection servers
const DefaultUserAgent = "latool/0.2 (+https://github.com/ppiankov/latool)"

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    DefaultUserAgent,
			MaxBodyBytes: 10_000_000,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 4,
			BurstSize:         8,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 10 * time.Minute,
			Dir:       "",
			DiskTTL:   24 * time.Hour,
		},
		Parse: ParseConfig{
			MaxDepth:          3,
			ResolveReferences: true,
			MaxConcurrency:    8,
		},
		Concurrency: ConcurrencyConfig{
			Workers:     4,
			LinkWorkers: 10,
		},
		LLM: LLMConfig{
			Model:           "gpt-4o-mini",
			Timeout:         30,
			MaxTokens:       400,
			StrictCitations: true,
		},
	}
}
