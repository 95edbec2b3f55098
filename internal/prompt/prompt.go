// Package prompt assembles bounded-size model requests for the
// enrichment stages. Building is pure: identical inputs always render
// byte-identical requests, so the client's response cache is
// reproducible across runs.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mawsuah/tahqiq/internal/anchor"
	"github.com/mawsuah/tahqiq/internal/llm"
	"github.com/mawsuah/tahqiq/internal/model"
)

// EstimateTokens approximates token count as chars/4. Good enough for
// budget enforcement; the backend reports exact counts after the fact.
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// Builder renders stage requests. The anchor context is rendered once at
// construction and shared across items.
type Builder struct {
	anchorBlock     string
	maxPromptTokens int
	maxCompletion   int
}

// NewBuilder creates a builder over a validated anchor set.
func NewBuilder(anchors *anchor.Set, maxPromptTokens, maxCompletionTokens int) *Builder {
	if maxPromptTokens <= 0 {
		maxPromptTokens = 6000
	}
	return &Builder{
		anchorBlock:     anchors.Render(),
		maxPromptTokens: maxPromptTokens,
		maxCompletion:   maxCompletionTokens,
	}
}

// BuildTemporal renders the temporal-stage request for one item.
func (b *Builder) BuildTemporal(item model.CorpusItem) llm.Request {
	system := temporalSystem + "\n\n" + b.anchorBlock
	payload, truncated := b.payload(item, "")
	return b.finish(system, temporalExemplars, payload, truncated)
}

// BuildSemantic renders the semantic-stage request. The committed
// temporal assignment for the same version is a hard dependency: without
// it the request cannot be built.
func (b *Builder) BuildSemantic(item model.CorpusItem, temporal *model.TemporalAssignment) (llm.Request, error) {
	if temporal == nil {
		return llm.Request{}, fmt.Errorf("item %d: semantic stage requires committed temporal assignment: %w",
			item.ID, model.ErrMissingDependency)
	}

	summary := fmt.Sprintf("Temporal context: era %s", temporal.EraID)
	if temporal.SubEraID != "" {
		summary += ", sub-era " + temporal.SubEraID
	}
	if temporal.EarliestAH != nil && temporal.LatestAH != nil {
		summary += fmt.Sprintf(", AH %g to %g", *temporal.EarliestAH, *temporal.LatestAH)
	}

	payload, truncated := b.payload(item, summary)
	return b.finish(semanticSystem, semanticExemplars, payload, truncated), nil
}

// payload renders the per-item block, applying the documented truncation
// policy when the request would blow the token budget: primary text is
// kept whole, secondary text is cut first, then the narrator chain.
func (b *Builder) payload(item model.CorpusItem, extra string) (string, bool) {
	fixed := EstimateTokens(b.anchorBlock) + EstimateTokens(temporalSystem) + 200
	budget := (b.maxPromptTokens - fixed) * 4 // Back to characters
	if budget < len(item.PrimaryText) {
		budget = len(item.PrimaryText) // Primary text is never cut
	}

	secondary := item.SecondaryText
	chain := item.NarratorChain
	remaining := budget - len(item.PrimaryText)
	truncated := false

	if len(secondary)+len(chain) > remaining {
		truncated = true
		// Secondary text gives way first.
		if len(chain) > remaining {
			secondary = ""
			chain = cutAtRune(chain, remaining)
		} else {
			secondary = cutAtRune(secondary, remaining-len(chain))
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Item %d (group %d, item-in-group %d)\n", item.ID, item.GroupID, item.ItemInGroupID)
	if extra != "" {
		sb.WriteString(extra)
		sb.WriteString("\n")
	}
	sb.WriteString("Primary text:\n")
	sb.WriteString(item.PrimaryText)
	sb.WriteString("\n")
	if secondary != "" {
		sb.WriteString("Translation:\n")
		sb.WriteString(secondary)
		sb.WriteString("\n")
	}
	if chain != "" {
		sb.WriteString("Narrator chain: ")
		sb.WriteString(chain)
		sb.WriteString("\n")
	}
	if len(item.Markers) > 0 {
		sb.WriteString("Pre-extracted temporal markers: ")
		sb.WriteString(strings.Join(item.Markers, "; "))
		sb.WriteString("\n")
	}
	return sb.String(), truncated
}

// cutAtRune truncates s to at most n bytes without splitting a rune.
func cutAtRune(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// finish assembles the request and records whether the payload was cut,
// for audit.
func (b *Builder) finish(system string, exemplars []string, payload string, truncated bool) llm.Request {
	est := EstimateTokens(system) + EstimateTokens(payload)
	for _, ex := range exemplars {
		est += EstimateTokens(ex)
	}
	return llm.Request{
		System:    system,
		Exemplars: exemplars,
		Payload:   payload,
		MaxTokens: b.maxCompletion,
		EstTokens: est,
		Truncated: truncated,
	}
}
