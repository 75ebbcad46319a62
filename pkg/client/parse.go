package client

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/pond-analyzer/pkg/types"
)

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInlineComment = regexp.MustCompile(`(?m)//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// Unclear is the activity label used when a model reply cannot be used
const Unclear = "unclear"

// ParseActivityOpinion extracts an opinion from a model reply. Replies that
// are not JSON yield an "unclear" opinion with zero confidence rather than an error.
func ParseActivityOpinion(raw string) *types.ActivityOpinion {
	raw = SanitizeModelJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		return &types.ActivityOpinion{ActivityLevel: Unclear, Reasoning: "model returned non-JSON response"}
	}

	var opinion types.ActivityOpinion
	if err := json.Unmarshal([]byte(raw), &opinion); err != nil {
		return &types.ActivityOpinion{ActivityLevel: Unclear, Reasoning: "failed to parse model response"}
	}
	if opinion.ActivityLevel == "" {
		opinion.ActivityLevel = Unclear
		opinion.Confidence = 0
	}
	return &opinion
}

// SanitizeModelJSON strips code fences, comments and trailing commas and
// keeps the outermost {...}
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reInlineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
