// Package llm wraps the generative backend behind a rate-limited,
// cached, retrying client. Callers hand it a fully rendered request and
// get back structured data or a classified failure; the wire protocol is
// the provider's concern.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Request is one fully rendered model request. All three blocks are
// deterministic renderings: the same inputs always produce byte-identical
// requests, which is what makes response caching reproducible.
type Request struct {
	System    string   // System-instruction block
	Exemplars []string // Few-shot exemplar blocks, in order
	Payload   string   // Per-item payload block

	MaxTokens int  // Completion cap
	EstTokens int  // Estimated prompt tokens, for the token budget
	Truncated bool // Set by the prompt builder when item text was cut
}

// Response is the backend's structured reply plus accounting.
type Response struct {
	Content          string // Validated JSON document
	Model            string
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
	Cached           bool
}

// Provider is the raw backend boundary: one request in, text plus token
// counts out, or an error. Retry, caching and rate limiting live in
// Client, not here.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*RawResult, error)
}

// RawResult is an unvalidated provider reply.
type RawResult struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// NewProvider selects a provider from configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(cfg)
	case "stub":
		return NewStubProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, stub)", cfg.Provider)
	}
}

// ProviderConfig carries the backend-facing subset of the LLM config.
type ProviderConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}
