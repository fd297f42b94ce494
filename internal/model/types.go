package model

import (
	"encoding/json"
	"math"
	"time"
)

// IntegrationType identifies an external service a signal came from.
type IntegrationType string

const (
	IntegrationGitHub   IntegrationType = "github"
	IntegrationSlack    IntegrationType = "slack"
	IntegrationNotion   IntegrationType = "notion"
	IntegrationGmail    IntegrationType = "gmail"
	IntegrationCalendar IntegrationType = "calendar"
	IntegrationLinkedIn IntegrationType = "linkedin"
	IntegrationZoom     IntegrationType = "zoom"
)

// IntegrationTypes lists every supported provider in fan-out order.
func IntegrationTypes() []IntegrationType {
	return []IntegrationType{
		IntegrationGitHub,
		IntegrationSlack,
		IntegrationNotion,
		IntegrationGmail,
		IntegrationCalendar,
		IntegrationLinkedIn,
		IntegrationZoom,
	}
}

// Event is the unified representation of one signal from one external provider.
// Metadata is an opaque provider-specific payload; only the owning provider
// package decodes it through typed accessors.
type Event struct {
	ID              string          `json:"id"`
	WorkspaceID     string          `json:"workspace_id"`
	IntegrationType IntegrationType `json:"integration_type"`
	EventType       string          `json:"event_type"`
	Actor           *string         `json:"actor"`
	Title           *string         `json:"title"`
	Body            *string         `json:"body"`
	URL             *string         `json:"url"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Credential is a stored provider token, keyed by (user, provider).
// The pipeline consumes credentials read-only.
type Credential struct {
	UserID       string          `json:"userId"`
	Provider     IntegrationType `json:"provider"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken *string         `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time      `json:"expiresAt,omitempty"`
	ConnectedAt  time.Time       `json:"connectedAt"`
}

// ReceiptType is the closed set of provenance icons the UI understands.
type ReceiptType string

const (
	ReceiptCommit ReceiptType = "commit"
	ReceiptPR     ReceiptType = "pr"
	ReceiptSlack  ReceiptType = "slack"
	ReceiptEmail  ReceiptType = "email"
	ReceiptEvent  ReceiptType = "event"
	ReceiptIssue  ReceiptType = "issue"
)

// Receipt is a provenance pointer back to a source record.
type Receipt struct {
	Type  ReceiptType `json:"type"`
	Title string      `json:"title"`
	URL   string      `json:"url"`
}

// TokenStats reports how much the synthesizer shrank the raw aggregated text.
type TokenStats struct {
	InputTokens      int      `json:"input_tokens"`
	OutputTokens     int      `json:"output_tokens"`
	CompressionRatio *float64 `json:"compression_ratio"`
}

// Efficiency returns the UI-facing percentage, round((1-ratio)*100).
// Zero when the ratio is undefined.
func (t TokenStats) Efficiency() int {
	if t.CompressionRatio == nil {
		return 0
	}
	return int(math.Round((1 - *t.CompressionRatio) * 100))
}

// SourceRef ties a highlight or recommendation back to the events that fed it.
type SourceRef struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Highlight is a synthesized, user-facing summary item.
type Highlight struct {
	Type         string      `json:"type"`
	Title        string      `json:"title"`
	Detail       string      `json:"detail"`
	WhyItMatters string      `json:"why_it_matters"`
	Urgency      string      `json:"urgency"`
	Sources      []SourceRef `json:"sources"`
}

// Recommendation is a suggested action with concrete steps.
type Recommendation struct {
	Action  string      `json:"action"`
	Steps   []string    `json:"steps"`
	Sources []SourceRef `json:"sources"`
}

// TimeContext records when and where a briefing was generated.
type TimeContext struct {
	LocalTime string `json:"local_time"`
	Timezone  string `json:"timezone"`
}

// Rollup carries at-a-glance counts for the dashboard.
type Rollup struct {
	Email    EmailRollup    `json:"email"`
	Calendar CalendarRollup `json:"calendar"`
	GitHub   GitHubRollup   `json:"github"`
}

type EmailRollup struct {
	UnreadCount int `json:"unread_count"`
}

type CalendarRollup struct {
	TodayCount  int    `json:"today_count"`
	NextEventID string `json:"next_event_id,omitempty"`
}

type GitHubRollup struct {
	ActiveRepos []string `json:"active_repos"`
	OpenPRs     *int     `json:"open_prs,omitempty"`
}

// CompressionDebug reports raw token accounting for a synthesis run.
type CompressionDebug struct {
	OriginalInputTokens int     `json:"original_input_tokens"`
	OutputTokens        int     `json:"output_tokens"`
	CompressionTime     float64 `json:"compression_time"`
}

type DebugInfo struct {
	Compression *CompressionDebug `json:"compression,omitempty"`
}

// Briefing is the synthesized output contract the rendering layer depends on.
// It is created fresh per request and never mutated afterwards.
type Briefing struct {
	GeneratedAt     string           `json:"generated_at"`
	Greeting        string           `json:"greeting"`
	Narrative       string           `json:"narrative"`
	TimeContext     TimeContext      `json:"time_context"`
	Highlights      []Highlight      `json:"highlights"`
	Recommendations []Recommendation `json:"recommendations"`
	Rollup          Rollup           `json:"rollup"`
	Debug           *DebugInfo       `json:"debug,omitempty"`
}

// BriefingResponse is the assembled response: the briefing plus provenance
// receipts and token accounting.
type BriefingResponse struct {
	Briefing
	Receipts   []Receipt  `json:"receipts"`
	TokenStats TokenStats `json:"token_stats"`
}

// QueryResponse is the flatter legacy shape older consumers accept.
type QueryResponse struct {
	Summary    string     `json:"summary"`
	Receipts   []Receipt  `json:"receipts"`
	TokenStats TokenStats `json:"token_stats"`
}

// QueryLog records one pipeline invocation for later inspection.
type QueryLog struct {
	ID               string    `json:"id"`
	WorkspaceID      string    `json:"workspace_id"`
	QueryText        string    `json:"query_text"`
	Intent           *string   `json:"intent,omitempty"`
	ResponseText     *string   `json:"response_text,omitempty"`
	InputTokens      *int      `json:"input_tokens,omitempty"`
	OutputTokens     *int      `json:"output_tokens,omitempty"`
	CompressionRatio *float64  `json:"compression_ratio,omitempty"`
	LatencyMs        *int64    `json:"latency_ms,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
