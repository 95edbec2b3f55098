package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/mawsuah/tahqiq/internal/model"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider drives the OpenAI Chat Completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAI-backed provider.
func NewOpenAIProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	m := cfg.Model
	if m == "" {
		m = openai.GPT4oMini
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  m,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Complete sends one chat request. Exemplar blocks become alternating
// user/assistant turns so the backend sees them as worked examples.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*RawResult, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: req.System},
	}
	for i, ex := range req.Exemplars {
		role := openai.ChatMessageRoleUser
		if i%2 == 1 {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: ex})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Payload})

	chatReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: 0, // Deterministic output keeps cache hits meaningful
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &model.PermanentCallFailure{Reason: "empty response"}
	}

	return &RawResult{
		Text:             strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// classifyOpenAIError splits backend failures into the retryable and
// non-retryable halves of the taxonomy. Unknown errors are treated as
// transient so a flaky network never poisons an item permanently.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500:
			return fmt.Errorf("backend %d: %w", apiErr.HTTPStatusCode, errTransient)
		case apiErr.HTTPStatusCode == 400 || apiErr.HTTPStatusCode == 401 ||
			apiErr.HTTPStatusCode == 403 || apiErr.HTTPStatusCode == 404:
			return &model.PermanentCallFailure{Reason: fmt.Sprintf("backend %d", apiErr.HTTPStatusCode), Err: err}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("timeout: %w", errTransient)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("deadline: %w", errTransient)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	return fmt.Errorf("%v: %w", err, errTransient)
}

// errTransient tags a single failed dispatch as retryable inside the
// client's retry loop. Callers outside the package only ever see the
// aggregated TransientCallFailure.
var errTransient = errors.New("transient")
