package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/mawsuah/tahqiq/internal/cache"
	"github.com/mawsuah/tahqiq/internal/model"
	"golang.org/x/time/rate"
)

// sleepFunc is injectable for backoff tests.
var sleepFunc = func(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// repromptSuffix is appended to the system block when the previous reply
// was not valid JSON. The suffix changes the cache fingerprint, so a
// reprompt never re-reads the bad cached reply.
const repromptSuffix = "\n\nSTRICT: your previous reply was not a single valid JSON object. Reply with exactly one JSON object and nothing else."

// Client wraps a Provider with the shared request/token budget, the
// response cache, retry with backoff, and cost metering. Workers block on
// the limiters in FIFO order, not on each other.
type Client struct {
	provider Provider
	cache    cache.Cache
	meter    *Meter

	requests *rate.Limiter // Requests-per-minute budget
	tokens   *rate.Limiter // Tokens-per-minute budget

	timeout        time.Duration
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	maxReprompts   int
}

// Options configures a Client.
type Options struct {
	Cache cache.Cache // nil disables caching
	Meter *Meter

	RequestsPerMinute float64
	TokensPerMinute   float64

	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReprompts   int
}

// NewClient builds the rate-limited client around a provider.
func NewClient(provider Provider, opts Options) *Client {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 30 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Meter == nil {
		opts.Meter = NewMeter(0, 0)
	}

	// Per-minute budgets expressed as token buckets: refill at the
	// per-second equivalent, burst sized to one minute's allowance.
	reqLimiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerMinute > 0 {
		reqLimiter = rate.NewLimiter(rate.Limit(opts.RequestsPerMinute/60), int(opts.RequestsPerMinute))
	}
	tokLimiter := rate.NewLimiter(rate.Inf, 0)
	if opts.TokensPerMinute > 0 {
		tokLimiter = rate.NewLimiter(rate.Limit(opts.TokensPerMinute/60), int(opts.TokensPerMinute))
	}

	return &Client{
		provider:       provider,
		cache:          opts.Cache,
		meter:          opts.Meter,
		requests:       reqLimiter,
		tokens:         tokLimiter,
		timeout:        opts.Timeout,
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
		maxBackoff:     opts.MaxBackoff,
		maxReprompts:   opts.MaxReprompts,
	}
}

// Meter exposes the shared cost meter.
func (c *Client) Meter() *Meter { return c.meter }

// cachedResponse is the wire shape stored in the cache.
type cachedResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// Invoke executes one request: cache check, budget wait, dispatch with
// retries, structured-output validation with bounded reprompts, cache
// write. Returns the validated response or a classified failure.
func (c *Client) Invoke(ctx context.Context, req Request) (*Response, error) {
	key := cache.Fingerprint(req.System, req.Exemplars, req.Payload)

	if c.cache != nil {
		if data, ok := c.cache.Get(key); ok {
			var cr cachedResponse
			if err := json.Unmarshal(data, &cr); err == nil {
				c.meter.RecordCacheHit()
				return &Response{
					Content:          cr.Content,
					Model:            cr.Model,
					PromptTokens:     cr.PromptTokens,
					CompletionTokens: cr.CompletionTokens,
					Cached:           true,
				}, nil
			}
		}
	}

	attempt := req
	for reprompt := 0; ; reprompt++ {
		raw, err := c.dispatch(ctx, attempt)
		if err != nil {
			return nil, err
		}

		content, jsonErr := ExtractJSON(raw.Text)
		if jsonErr != nil {
			// Malformed structured output. Reprompt with a stricter
			// instruction a bounded number of times, then give up
			// permanently for this call.
			if reprompt < c.maxReprompts {
				attempt = req
				attempt.System = req.System + repromptSuffix
				continue
			}
			return nil, &model.PermanentCallFailure{Reason: "malformed structured output", Err: jsonErr}
		}

		cost := c.meter.RecordCall(raw.PromptTokens, raw.CompletionTokens)
		resp := &Response{
			Content:          content,
			Model:            raw.Model,
			PromptTokens:     raw.PromptTokens,
			CompletionTokens: raw.CompletionTokens,
			CostUSD:          cost,
		}

		if c.cache != nil {
			if data, err := json.Marshal(cachedResponse{
				Content:          content,
				Model:            raw.Model,
				PromptTokens:     raw.PromptTokens,
				CompletionTokens: raw.CompletionTokens,
			}); err == nil {
				_ = c.cache.Set(key, data, 0)
			}
		}
		return resp, nil
	}
}

// dispatch waits on the shared budget then calls the provider, retrying
// transient failures with exponential backoff and jitter.
func (c *Client) dispatch(ctx context.Context, req Request) (*RawResult, error) {
	if err := c.requests.Wait(ctx); err != nil {
		return nil, fmt.Errorf("request budget wait: %w", err)
	}
	if req.EstTokens > 0 && c.tokens.Limit() != rate.Inf {
		n := req.EstTokens
		if n > c.tokens.Burst() {
			n = c.tokens.Burst()
		}
		if err := c.tokens.WaitN(ctx, n); err != nil {
			return nil, fmt.Errorf("token budget wait: %w", err)
		}
	}

	var attempts []model.Attempt
	backoff := c.initialBackoff
	for i := 0; i < c.maxRetries; i++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		raw, err := c.provider.Complete(callCtx, req)
		cancel()
		if err == nil {
			return raw, nil
		}

		if model.IsPermanent(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, errTransient) && !model.IsTransient(err) {
			// Unclassified provider error: treat as transient, same as
			// the backend classifier does.
			err = fmt.Errorf("%v: %w", err, errTransient)
		}

		attempts = append(attempts, model.Attempt{Number: i + 1, Err: err.Error(), At: time.Now().UTC()})
		if i == c.maxRetries-1 {
			break
		}

		jitter := time.Duration(rand.Int63n(int64(backoff)/2 + 1))
		if err := sleepFunc(ctx, backoff+jitter); err != nil {
			return nil, err
		}
		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}

	return nil, &model.TransientCallFailure{Attempts: attempts}
}
