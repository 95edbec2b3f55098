package llm

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// StubProvider is a deterministic in-process backend used by tests and
// dry runs. Given identical requests it returns identical responses,
// which makes cache and resume behavior reproducible.
type StubProvider struct {
	// Respond, when set, computes the reply for a request. The default
	// echoes a minimal JSON document derived from the payload.
	Respond func(req Request) (string, error)

	// FixedPromptTokens/FixedCompletionTokens override token accounting
	// when non-zero, for budget tests that charge a fixed cost per call.
	FixedPromptTokens     int
	FixedCompletionTokens int

	calls atomic.Int64
}

// NewStubProvider returns a stub with the default echo behavior.
func NewStubProvider() *StubProvider {
	return &StubProvider{}
}

func (p *StubProvider) Name() string { return "stub" }

// Calls reports how many requests actually reached the stub, i.e. were
// not served from cache.
func (p *StubProvider) Calls() int64 { return p.calls.Load() }

func (p *StubProvider) Complete(ctx context.Context, req Request) (*RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.calls.Add(1)

	var text string
	if p.Respond != nil {
		t, err := p.Respond(req)
		if err != nil {
			return nil, err
		}
		text = t
	} else {
		text = fmt.Sprintf(`{"echo": %q}`, firstLine(req.Payload))
	}

	prompt := p.FixedPromptTokens
	if prompt == 0 {
		prompt = req.EstTokens
	}
	completion := p.FixedCompletionTokens
	if completion == 0 {
		completion = len(text) / 4
	}

	return &RawResult{
		Text:             text,
		Model:            "stub",
		PromptTokens:     prompt,
		CompletionTokens: completion,
	}, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
