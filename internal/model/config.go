package model

import "time"

// Config holds the complete runtime configuration
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	LLM    LLMConfig    `yaml:"llm"`
	Cache  CacheConfig  `yaml:"cache"`
	Batch  BatchConfig  `yaml:"batch"`
	Serve  ServeConfig  `yaml:"serve"`
	Output OutputConfig `yaml:"output"`
}

// StoreConfig configures where feedback records are read from
type StoreConfig struct {
	Kind         string        `yaml:"kind"`           // sqlite, file, html, or url
	Path         string        `yaml:"path"`           // File path, database path, or URL
	Table        string        `yaml:"table"`          // Table name for sqlite stores
	Timeout      time.Duration `yaml:"timeout"`        // HTTP timeout for url stores
	UserAgent    string        `yaml:"user_agent"`     // HTTP User-Agent for url stores
	MaxBodyBytes int64         `yaml:"max_body_bytes"` // Response size cap for url stores
	IgnoreRobots bool          `yaml:"ignore_robots"`  // Skip the robots.txt check for url stores
	HTTPProxy    string        `yaml:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy"`
}

// LLMConfig configures the annotation model provider
type LLMConfig struct {
	Provider   string `yaml:"provider"`    // openai, anthropic, ollama; empty disables annotation
	Model      string `yaml:"model"`       // Model name (provider default if empty)
	APIKey     string `yaml:"api_key"`     // Usually set via environment instead
	BaseURL    string `yaml:"base_url"`    // Override for self-hosted or proxied endpoints
	Timeout    int    `yaml:"timeout"`     // Seconds per model call
	MaxTokens  int    `yaml:"max_tokens"`  // Response token cap
	HTTPProxy  string `yaml:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy"`
	NoProxy    string `yaml:"no_proxy"`
}

// CacheConfig configures the annotation cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"` // Disk cache directory; empty keeps the cache memory-only
	TTL     time.Duration `yaml:"ttl"`
}

// BatchConfig configures concurrent multi-source processing
type BatchConfig struct {
	Concurrency int     `yaml:"concurrency"` // Worker count
	RPS         float64 `yaml:"rps"`         // Model calls per second per provider
	Burst       int     `yaml:"burst"`       // Token bucket burst
}

// ServeConfig configures the HTTP API
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// OutputConfig configures report rendering
type OutputConfig struct {
	Verbose bool   `yaml:"verbose"`
	Format  string `yaml:"format"` // json or markdown
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Kind:         "file",
			Table:        "feedback",
			Timeout:      30 * time.Second,
			UserAgent:    "Opinia/0.1 (+https://github.com/ppetrov/opinia)",
			MaxBodyBytes: 2_000_000,
		},
		LLM: LLMConfig{
			Provider:  "", // Disabled until a provider is chosen
			Timeout:   60,
			MaxTokens: 1500,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		Batch: BatchConfig{
			Concurrency: 3,
			RPS:         1,
			Burst:       2,
		},
		Serve: ServeConfig{
			Addr: ":8080",
		},
		Output: OutputConfig{
			Format: "markdown",
		},
	}
}
