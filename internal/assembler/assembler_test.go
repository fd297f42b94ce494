package assembler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybrief/daybrief/internal/model"
)

func strp(s string) *string { return &s }

func baseBriefing() *model.Briefing {
	return &model.Briefing{
		GeneratedAt: "2024-01-01T09:00:00Z",
		Greeting:    "Good morning",
		Narrative:   "Two things need attention.",
		TimeContext: model.TimeContext{LocalTime: "9:00 AM", Timezone: "UTC"},
		Highlights: []model.Highlight{
			{Type: "email", Title: "Contract", Urgency: "high",
				Sources: []model.SourceRef{{Kind: "gmail", ID: "m1", Label: "Contract"}}},
			{Type: "github", Title: "Fix CI", Urgency: "low",
				Sources: []model.SourceRef{{Kind: "github", ID: "pr1", Label: "Fix CI"}}},
		},
		Recommendations: []model.Recommendation{
			{Action: "Reply to Alice", Steps: []string{"Open the email"},
				Sources: []model.SourceRef{{Kind: "gmail", ID: "m1", Label: "Contract"}}},
		},
		Rollup: model.Rollup{GitHub: model.GitHubRollup{ActiveRepos: []string{}}},
		Debug: &model.DebugInfo{Compression: &model.CompressionDebug{
			OriginalInputTokens: 400,
			OutputTokens:        100,
		}},
	}
}

func baseEvents() []model.Event {
	return []model.Event{
		{ID: "m1", IntegrationType: model.IntegrationGmail, EventType: "email",
			Title: strp("Contract"), URL: strp("https://mail.google.com/mail/#all/m1")},
		{ID: "pr1", IntegrationType: model.IntegrationGitHub, EventType: "pull_request",
			Title: strp("Fix CI"), URL: strp("https://github.com/acme/api/pull/1")},
	}
}

func TestAssembleReceipts(t *testing.T) {
	resp := Assemble(baseBriefing(), baseEvents())

	require.Len(t, resp.Receipts, 2, "m1 cited twice must produce one receipt")
	assert.Equal(t, model.ReceiptEmail, resp.Receipts[0].Type)
	assert.Equal(t, "Contract", resp.Receipts[0].Title)
	assert.Equal(t, model.ReceiptPR, resp.Receipts[1].Type)
	assert.Equal(t, "https://github.com/acme/api/pull/1", resp.Receipts[1].URL)
}

func TestAssembleOmitsEventsWithoutURL(t *testing.T) {
	events := baseEvents()
	events[0].URL = nil

	resp := Assemble(baseBriefing(), events)
	require.Len(t, resp.Receipts, 1)
	assert.Equal(t, model.ReceiptPR, resp.Receipts[0].Type)
}

func TestAssembleMissingEventSkipped(t *testing.T) {
	resp := Assemble(baseBriefing(), baseEvents()[:1])
	require.Len(t, resp.Receipts, 1)
	assert.Equal(t, model.ReceiptEmail, resp.Receipts[0].Type)
}

func TestAssembleTokenStats(t *testing.T) {
	resp := Assemble(baseBriefing(), baseEvents())

	assert.Equal(t, 400, resp.TokenStats.InputTokens)
	assert.Equal(t, 100, resp.TokenStats.OutputTokens)
	require.NotNil(t, resp.TokenStats.CompressionRatio)
	assert.InDelta(t, 0.25, *resp.TokenStats.CompressionRatio, 1e-9)
	assert.Equal(t, 75, resp.TokenStats.Efficiency())
}

func TestAssembleZeroInputTokens(t *testing.T) {
	b := baseBriefing()
	b.Debug.Compression.OriginalInputTokens = 0

	resp := Assemble(b, baseEvents())
	assert.Nil(t, resp.TokenStats.CompressionRatio, "ratio is undefined for empty input")
	assert.Equal(t, 0, resp.TokenStats.Efficiency())
}

func TestAssembleDeterministic(t *testing.T) {
	a, err := json.Marshal(Assemble(baseBriefing(), baseEvents()))
	require.NoError(t, err)
	b, err := json.Marshal(Assemble(baseBriefing(), baseEvents()))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestReceiptTypeMapping(t *testing.T) {
	cases := []struct {
		ev   model.Event
		want model.ReceiptType
	}{
		{model.Event{EventType: "commit", IntegrationType: model.IntegrationGitHub}, model.ReceiptCommit},
		{model.Event{EventType: "pull_request", IntegrationType: model.IntegrationGitHub}, model.ReceiptPR},
		{model.Event{EventType: "issue", IntegrationType: model.IntegrationGitHub}, model.ReceiptIssue},
		{model.Event{EventType: "mention", IntegrationType: model.IntegrationSlack}, model.ReceiptSlack},
		{model.Event{EventType: "email", IntegrationType: model.IntegrationGmail}, model.ReceiptEmail},
		{model.Event{EventType: "meeting", IntegrationType: model.IntegrationCalendar}, model.ReceiptEvent},
		{model.Event{EventType: "page", IntegrationType: model.IntegrationNotion}, model.ReceiptEvent},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, receiptType(tc.ev))
	}
}

func TestToQueryResponse(t *testing.T) {
	resp := Assemble(baseBriefing(), baseEvents())
	legacy := ToQueryResponse(resp)

	assert.Equal(t, resp.Narrative, legacy.Summary)
	assert.Equal(t, resp.Receipts, legacy.Receipts)
	assert.Equal(t, resp.TokenStats, legacy.TokenStats)
}
