package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Model responses are asked to be a single JSON object, but in practice they
// arrive wrapped in code fences, prefixed with prose, or carrying trailing
// commas and // comments. RepairJSON runs an ordered chain of text-transform
// + parse-attempt steps and short-circuits on the first attempt that yields
// valid JSON. Any remaining failure propagates; it is never swallowed.

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	lineCommentRe   = regexp.MustCompile(`//[^\n]*`)
)

// repairAttempt is one parse attempt: a named transform applied on top of
// the base cleanup.
type repairAttempt struct {
	name      string
	transform func(string) string
}

// repairChain is evaluated in order; the first attempt whose output parses
// as JSON wins. Reordering changes behavior.
var repairChain = []repairAttempt{
	{name: "strict", transform: func(s string) string { return s }},
	{name: "aggressive", transform: func(s string) string {
		s = strings.ReplaceAll(s, `\n`, " ")
		return lineCommentRe.ReplaceAllString(s, "")
	}},
}

// RepairJSON extracts and repairs the JSON object embedded in a raw model
// response. The returned bytes are valid JSON ready for unmarshalling.
func RepairJSON(raw string) ([]byte, error) {
	cleaned := stripCodeFence(strings.TrimSpace(raw))
	cleaned = extractObject(cleaned)
	cleaned = trailingCommaRe.ReplaceAllString(cleaned, "$1")

	var lastErr error
	for _, attempt := range repairChain {
		candidate := attempt.transform(cleaned)
		var probe any
		if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
			lastErr = fmt.Errorf("%s attempt: %w", attempt.name, err)
			continue
		}
		return []byte(candidate), nil
	}

	return nil, fmt.Errorf("model response is not valid JSON: %w", lastErr)
}

// stripCodeFence removes a leading ```json / ``` fence and everything after
// the closing fence.
func stripCodeFence(s string) string {
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	default:
		return s
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// extractObject locates the first {...} span via greedy brace matching:
// from the first opening brace to the last closing brace in the response.
// This tolerates leading/trailing prose the model was told not to emit.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
