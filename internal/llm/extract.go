package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Models wrap JSON in code fences or prose despite instructions.
// Pre-compiled patterns strip the common wrappers before parsing.
var (
	codeFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?([\\s\\S]*?)\\n?```")
	objectRegex    = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
)

// ExtractJSON pulls the first well-formed JSON object out of model
// output. Strategy: direct parse, then fence-stripped, then the widest
// brace-delimited span. Returns an error when nothing parses; no
// coercion of malformed documents.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if json.Valid([]byte(text)) {
		return text, nil
	}

	if m := codeFenceRegex.FindStringSubmatch(text); m != nil {
		candidate := strings.TrimSpace(m[1])
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	if m := objectRegex.FindString(text); m != "" {
		if json.Valid([]byte(m)) {
			return m, nil
		}
	}

	return "", fmt.Errorf("no valid JSON object in model output")
}
