// Package synth reduces the aggregated event stream into a bounded-size
// briefing with quantified efficiency metrics. The summarization strategy is
// pluggable behind Synthesizer; the rule-based implementation here is
// deterministic and auditable by construction.
package synth

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/daybrief/daybrief/internal/aggregator"
	"github.com/daybrief/daybrief/internal/model"
	"github.com/daybrief/daybrief/internal/provider"
)

// Degenerate-input narratives. The pipeline never returns a hard error just
// because external services had nothing to offer.
const (
	NarrativeConnect  = "You don't have any services connected yet. Connect your services to start receiving briefings with what matters across your email, calendar, and code."
	NarrativeCaughtUp = "You're all caught up! Nothing new has come in from your connected services. Check back later or ask me something specific."
)

// urgencyKeywords flag an item high-urgency on a case-insensitive substring
// match against its subject and body. A fixed list, not a learned classifier.
var urgencyKeywords = []string{"urgent", "important", "asap", "deadline", "review", "feedback"}

// Synthesizer turns an aggregated context into a schema-valid briefing.
// Implementations may use any summarization strategy as long as the output
// honors the Briefing contract.
type Synthesizer interface {
	Synthesize(ctx context.Context, agg *aggregator.AggregatedContext) (*model.Briefing, error)
}

// RuleBased is the deterministic summarizer. Given the same aggregated context
// and clock reading it produces the same briefing.
type RuleBased struct {
	now func() time.Time
}

func NewRuleBased() *RuleBased {
	return &RuleBased{now: time.Now}
}

// IsUrgent reports whether text trips the fixed urgency keyword set.
func IsUrgent(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range urgencyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Synthesize builds the briefing and validates it against the output schema
// before returning. A schema violation is returned as an error, never emitted.
func (s *RuleBased) Synthesize(ctx context.Context, agg *aggregator.AggregatedContext) (*model.Briefing, error) {
	start := s.now()
	now := start

	b := &model.Briefing{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Greeting:    greeting(now),
		TimeContext: model.TimeContext{
			LocalTime: now.Format("3:04 PM"),
			Timezone:  now.Location().String(),
		},
		Highlights:      []model.Highlight{},
		Recommendations: []model.Recommendation{},
		Rollup:          s.rollup(agg, now),
	}

	switch {
	case len(agg.Events) == 0 && agg.ConnectedCount() == 0:
		b.Narrative = NarrativeConnect
	case len(agg.Events) == 0:
		b.Narrative = NarrativeCaughtUp
	default:
		b.Narrative = s.narrative(agg, b.Rollup)
		b.Highlights = s.highlights(agg)
		b.Recommendations = s.recommendations(agg)
	}

	inputTokens := CountTokens(agg.TextContext)
	outputTokens := CountTokens(outputText(b))
	b.Debug = &model.DebugInfo{Compression: &model.CompressionDebug{
		OriginalInputTokens: inputTokens,
		OutputTokens:        outputTokens,
		CompressionTime:     float64(s.now().Sub(start).Milliseconds()),
	}}

	if err := ValidateBriefing(b); err != nil {
		return nil, fmt.Errorf("synthesized briefing violates schema: %w", err)
	}
	return b, nil
}

func greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

// highlightType maps an integration onto the highlight type enum.
func highlightType(t model.IntegrationType) string {
	switch t {
	case model.IntegrationCalendar, model.IntegrationZoom:
		return "calendar"
	case model.IntegrationGmail:
		return "email"
	case model.IntegrationGitHub:
		return "github"
	default:
		return "messages"
	}
}

func eventUrgency(ev model.Event) string {
	text := ""
	if ev.Title != nil {
		text = *ev.Title
	}
	if ev.Body != nil {
		text += " " + *ev.Body
	}
	if IsUrgent(text) {
		return "high"
	}
	if ev.IntegrationType == model.IntegrationCalendar {
		return "medium"
	}
	return "low"
}

func whyItMatters(ev model.Event) string {
	switch ev.IntegrationType {
	case model.IntegrationGmail:
		return "Unanswered email can block people waiting on you."
	case model.IntegrationCalendar, model.IntegrationZoom:
		return "An upcoming meeting needs your attention before it starts."
	case model.IntegrationGitHub:
		return "Recent repository activity may need your review."
	default:
		return "New activity from a connected service."
	}
}

func (s *RuleBased) highlights(agg *aggregator.AggregatedContext) []model.Highlight {
	out := make([]model.Highlight, 0, maxHighlights)
	for _, ev := range agg.Events {
		if len(out) >= maxHighlights {
			break
		}
		if ev.EventType == "repo" || ev.EventType == "profile" {
			// Rollup-only signals, not worth a highlight row.
			continue
		}
		title := "(untitled)"
		if ev.Title != nil && *ev.Title != "" {
			title = *ev.Title
		}
		detail := ""
		if ev.Body != nil {
			detail = *ev.Body
		}
		if detail == "" && ev.Actor != nil {
			detail = "From " + *ev.Actor
		}
		out = append(out, model.Highlight{
			Type:         highlightType(ev.IntegrationType),
			Title:        truncate(title, maxTitleLen),
			Detail:       truncate(detail, maxDetailLen),
			WhyItMatters: whyItMatters(ev),
			Urgency:      eventUrgency(ev),
			Sources:      []model.SourceRef{sourceRef(ev)},
		})
	}
	return out
}

func (s *RuleBased) recommendations(agg *aggregator.AggregatedContext) []model.Recommendation {
	out := make([]model.Recommendation, 0, maxRecommendations)

	add := func(action string, steps []string, ev model.Event) {
		if len(out) >= maxRecommendations {
			return
		}
		for i, step := range steps {
			steps[i] = truncate(step, maxStepLen)
		}
		out = append(out, model.Recommendation{
			Action:  truncate(action, maxActionLen),
			Steps:   steps,
			Sources: []model.SourceRef{sourceRef(ev)},
		})
	}

	for _, ev := range agg.Events {
		if ev.IntegrationType != model.IntegrationGmail || eventUrgency(ev) != "high" {
			continue
		}
		sender := "the sender"
		if ev.Actor != nil && *ev.Actor != "" {
			sender = *ev.Actor
		}
		add("Reply to "+sender+": "+deref(ev.Title),
			[]string{"Open the email", "Send a short reply or acknowledge the deadline"}, ev)
	}
	for _, ev := range agg.Events {
		if ev.EventType != "pull_request" {
			continue
		}
		add("Review pull request: "+deref(ev.Title),
			[]string{"Open the pull request", "Leave review comments or approve"}, ev)
	}
	for _, ev := range agg.Events {
		if ev.EventType != "meeting" {
			continue
		}
		add("Prepare for "+deref(ev.Title),
			[]string{"Skim the agenda and attendee list", "Collect notes or materials you owe the group"}, ev)
		break
	}

	return out
}

// narrative builds a short multi-paragraph story over the aggregated signals.
func (s *RuleBased) narrative(agg *aggregator.AggregatedContext, roll model.Rollup) string {
	counts := map[model.IntegrationType]int{}
	for _, ev := range agg.Events {
		counts[ev.IntegrationType]++
	}
	sourceNames := make([]string, 0, len(agg.Sources))
	for _, src := range agg.Sources {
		sourceNames = append(sourceNames, string(src))
	}

	var paragraphs []string
	paragraphs = append(paragraphs, fmt.Sprintf(
		"You have %d new signals across %s.", len(agg.Events), strings.Join(sourceNames, ", ")))

	urgent := 0
	for _, ev := range agg.Events {
		if eventUrgency(ev) == "high" {
			urgent++
		}
	}
	if urgent > 0 {
		paragraphs = append(paragraphs, fmt.Sprintf(
			"%d of them look urgent and are worth handling first.", urgent))
	}

	var parts []string
	if roll.Email.UnreadCount > 0 {
		parts = append(parts, fmt.Sprintf("%d unread email%s", roll.Email.UnreadCount, plural(roll.Email.UnreadCount)))
	}
	if roll.Calendar.TodayCount > 0 {
		parts = append(parts, fmt.Sprintf("%d meeting%s today", roll.Calendar.TodayCount, plural(roll.Calendar.TodayCount)))
	}
	if len(roll.GitHub.ActiveRepos) > 0 {
		parts = append(parts, "working on "+strings.Join(roll.GitHub.ActiveRepos, ", "))
	}
	if len(parts) > 0 {
		paragraphs = append(paragraphs, "At a glance: "+strings.Join(parts, ", ")+".")
	}

	return strings.Join(paragraphs, "\n\n")
}

func (s *RuleBased) rollup(agg *aggregator.AggregatedContext, now time.Time) model.Rollup {
	roll := model.Rollup{GitHub: model.GitHubRollup{ActiveRepos: []string{}}}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var nextEvent *model.Event
	repoSeen := map[string]bool{}
	openPRs := 0

	for i := range agg.Events {
		ev := agg.Events[i]
		switch ev.IntegrationType {
		case model.IntegrationGmail:
			if meta, ok := provider.DecodeGmailMeta(ev); ok && meta.Unread {
				roll.Email.UnreadCount++
			}
		case model.IntegrationCalendar:
			local := ev.OccurredAt.In(now.Location())
			if !local.Before(dayStart) && local.Before(dayEnd) {
				roll.Calendar.TodayCount++
			}
			if ev.OccurredAt.After(now) && (nextEvent == nil || ev.OccurredAt.Before(nextEvent.OccurredAt)) {
				nextEvent = &agg.Events[i]
			}
		case model.IntegrationGitHub:
			if meta, ok := provider.DecodeGitHubMeta(ev); ok && meta.Repo != "" && !repoSeen[meta.Repo] {
				repoSeen[meta.Repo] = true
				if len(roll.GitHub.ActiveRepos) < 3 {
					roll.GitHub.ActiveRepos = append(roll.GitHub.ActiveRepos, repoShortName(meta.Repo))
				}
			}
			if ev.EventType == "pull_request" {
				openPRs++
			}
		}
	}

	if nextEvent != nil {
		roll.Calendar.NextEventID = nextEvent.ID
	}
	if openPRs > 0 {
		roll.GitHub.OpenPRs = &openPRs
	}
	return roll
}

func sourceRef(ev model.Event) model.SourceRef {
	return model.SourceRef{
		Kind:  string(ev.IntegrationType),
		ID:    ev.ID,
		Label: truncate(deref(ev.Title), maxTitleLen),
	}
}

func repoShortName(fullName string) string {
	if i := strings.LastIndexByte(fullName, '/'); i >= 0 {
		return fullName[i+1:]
	}
	return fullName
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// truncate caps s at n bytes including the ellipsis, backing up so the cut
// never lands inside a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
