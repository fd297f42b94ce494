package synth

import (
	"strings"

	"github.com/daybrief/daybrief/internal/model"
)

// CountTokens approximates token count as characters over four. The estimate
// only has to be consistent between input and output, since the compression
// ratio is computed from these two numbers alone.
func CountTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}

// outputText is the retained text a briefing carries onward. Output tokens are
// counted over exactly this projection.
func outputText(b *model.Briefing) string {
	var sb strings.Builder
	sb.WriteString(b.Narrative)
	for _, h := range b.Highlights {
		sb.WriteString("\n")
		sb.WriteString(h.Title)
		sb.WriteString(" ")
		sb.WriteString(h.Detail)
		sb.WriteString(" ")
		sb.WriteString(h.WhyItMatters)
	}
	for _, r := range b.Recommendations {
		sb.WriteString("\n")
		sb.WriteString(r.Action)
		for _, s := range r.Steps {
			sb.WriteString(" ")
			sb.WriteString(s)
		}
	}
	return sb.String()
}
