// Package assembler performs the final pure transform: it derives provenance
// receipts from the events behind each highlight and recommendation and
// attaches token accounting. No I/O happens here; identical inputs always
// yield identical output.
package assembler

import (
	"github.com/daybrief/daybrief/internal/model"
)

// receiptType projects an event onto the closed receipt icon set.
func receiptType(ev model.Event) model.ReceiptType {
	switch ev.EventType {
	case "commit":
		return model.ReceiptCommit
	case "pull_request":
		return model.ReceiptPR
	case "issue":
		return model.ReceiptIssue
	}
	switch ev.IntegrationType {
	case model.IntegrationSlack:
		return model.ReceiptSlack
	case model.IntegrationGmail:
		return model.ReceiptEmail
	default:
		return model.ReceiptEvent
	}
}

// Assemble combines a validated briefing with its source events into the
// final response contract. Events lacking a usable URL are omitted from
// receipts rather than emitted with an empty link.
func Assemble(b *model.Briefing, events []model.Event) *model.BriefingResponse {
	byID := make(map[string]model.Event, len(events))
	for _, ev := range events {
		byID[ev.ID] = ev
	}

	seen := make(map[string]bool)
	receipts := []model.Receipt{}

	cite := func(refs []model.SourceRef) {
		for _, ref := range refs {
			ev, ok := byID[ref.ID]
			if !ok || ev.URL == nil || *ev.URL == "" || seen[ev.ID] {
				continue
			}
			seen[ev.ID] = true
			title := ref.Label
			if title == "" && ev.Title != nil {
				title = *ev.Title
			}
			receipts = append(receipts, model.Receipt{
				Type:  receiptType(ev),
				Title: title,
				URL:   *ev.URL,
			})
		}
	}

	for _, h := range b.Highlights {
		cite(h.Sources)
	}
	for _, r := range b.Recommendations {
		cite(r.Sources)
	}

	stats := model.TokenStats{}
	if b.Debug != nil && b.Debug.Compression != nil {
		c := b.Debug.Compression
		stats.InputTokens = c.OriginalInputTokens
		stats.OutputTokens = c.OutputTokens
		if c.OriginalInputTokens > 0 {
			ratio := float64(c.OutputTokens) / float64(c.OriginalInputTokens)
			stats.CompressionRatio = &ratio
		}
	}

	return &model.BriefingResponse{
		Briefing:   *b,
		Receipts:   receipts,
		TokenStats: stats,
	}
}

// ToQueryResponse projects the assembled response onto the flatter legacy
// shape older consumers accept.
func ToQueryResponse(r *model.BriefingResponse) model.QueryResponse {
	return model.QueryResponse{
		Summary:    r.Narrative,
		Receipts:   r.Receipts,
		TokenStats: r.TokenStats,
	}
}
