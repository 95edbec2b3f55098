package model

import "time"

// Config is the explicit configuration value object passed into
// constructors. Loaded by the CLI from flags, TAHQIQ_* environment
// variables and ~/.tahqiq/config.yaml; no package reads ambient state.
type Config struct {
	Store      StoreConfig      `yaml:"store" json:"store"`
	LLM        LLMConfig        `yaml:"llm" json:"llm"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	Processing ProcessingConfig `yaml:"processing" json:"processing"`
	Budget     BudgetConfig     `yaml:"budget" json:"budget"`
}

// StoreConfig locates the SQLite corpus store.
type StoreConfig struct {
	Path string `yaml:"path" json:"path"`
}

// LLMConfig configures the model backend and the rate/retry envelope
// around it.
type LLMConfig struct {
	Provider string `yaml:"provider" json:"provider"` // "openai" or "stub"
	Model    string `yaml:"model" json:"model"`
	APIKey   string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	Timeout time.Duration `yaml:"timeout" json:"timeout"` // Per-call timeout

	RequestsPerMinute float64 `yaml:"requests_per_minute" json:"requests_per_minute"`
	TokensPerMinute   float64 `yaml:"tokens_per_minute" json:"tokens_per_minute"`

	MaxRetries     int           `yaml:"max_retries" json:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" json:"max_backoff"`
	MaxReprompts   int           `yaml:"max_reprompts" json:"max_reprompts"` // Retries for malformed structured output

	// Cost model: USD per 1K tokens, prompt and completion.
	PromptCostPer1K     float64 `yaml:"prompt_cost_per_1k" json:"prompt_cost_per_1k"`
	CompletionCostPer1K float64 `yaml:"completion_cost_per_1k" json:"completion_cost_per_1k"`

	MaxPromptTokens int `yaml:"max_prompt_tokens" json:"max_prompt_tokens"`
	MaxTokens       int `yaml:"max_tokens" json:"max_tokens"` // Completion cap
}

// CacheConfig configures the layered prompt-response cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Dir       string        `yaml:"dir" json:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" json:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" json:"disk_ttl"`
}

// ProcessingConfig drives the stage processors.
type ProcessingConfig struct {
	BatchSize          int `yaml:"batch_size" json:"batch_size"`
	Concurrency        int `yaml:"concurrency" json:"concurrency"`
	CheckpointInterval int `yaml:"checkpoint_interval" json:"checkpoint_interval"`
	MaxReprocess       int `yaml:"max_reprocess" json:"max_reprocess"` // Attempts for domain-invariant failures
}

// BudgetConfig caps total spend for a run.
type BudgetConfig struct {
	HardLimitUSD     float64       `yaml:"hard_limit_usd" json:"hard_limit_usd"` // 0 = unlimited
	ProgressInterval time.Duration `yaml:"progress_interval" json:"progress_interval"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "tahqiq.db",
		},
		LLM: LLMConfig{
			Provider:            "openai",
			Model:               "gpt-4o-mini",
			Timeout:             60 * time.Second,
			RequestsPerMinute:   60,
			TokensPerMinute:     200000,
			MaxRetries:          3,
			InitialBackoff:      time.Second,
			MaxBackoff:          30 * time.Second,
			MaxReprompts:        2,
			PromptCostPer1K:     0.00015,
			CompletionCostPer1K: 0.0006,
			MaxPromptTokens:     6000,
			MaxTokens:           1500,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".tahqiq-cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   30 * 24 * time.Hour,
		},
		Processing: ProcessingConfig{
			BatchSize:          100,
			Concurrency:        5,
			CheckpointInterval: 25,
			MaxReprocess:       2,
		},
		Budget: BudgetConfig{
			HardLimitUSD:     0,
			ProgressInterval: 15 * time.Second,
		},
	}
}
