package synth

import (
	"fmt"

	"github.com/daybrief/daybrief/internal/model"
)

// Briefing schema limits. Downstream consumers assume these unconditionally,
// so a violating document is rejected before it leaves the synthesizer.
const (
	maxHighlights      = 10
	maxRecommendations = 5
	maxSteps           = 10
	maxTitleLen        = 200
	maxActionLen       = 200
	maxDetailLen       = 500
	maxStepLen         = 500
)

var validHighlightTypes = map[string]bool{
	"calendar": true,
	"email":    true,
	"github":   true,
	"messages": true,
}

var validUrgencies = map[string]bool{
	"high":   true,
	"medium": true,
	"low":    true,
}

// ValidateBriefing checks a synthesized document against the output contract
// field by field. Any violation is fatal for the request; a malformed briefing
// must never reach the assembler.
func ValidateBriefing(b *model.Briefing) error {
	if b == nil {
		return fmt.Errorf("%w: nil briefing", model.ErrValidation)
	}
	if b.GeneratedAt == "" {
		return fmt.Errorf("%w: generated_at is required", model.ErrValidation)
	}
	if b.Greeting == "" {
		return fmt.Errorf("%w: greeting is required", model.ErrValidation)
	}
	if b.Narrative == "" {
		return fmt.Errorf("%w: narrative is required", model.ErrValidation)
	}
	if b.TimeContext.LocalTime == "" || b.TimeContext.Timezone == "" {
		return fmt.Errorf("%w: time_context is incomplete", model.ErrValidation)
	}

	if b.Highlights == nil {
		return fmt.Errorf("%w: highlights must be an array, not null", model.ErrValidation)
	}
	if len(b.Highlights) > maxHighlights {
		return fmt.Errorf("%w: %d highlights exceeds max %d", model.ErrValidation, len(b.Highlights), maxHighlights)
	}
	for i, h := range b.Highlights {
		if !validHighlightTypes[h.Type] {
			return fmt.Errorf("%w: highlight %d has unknown type %q", model.ErrValidation, i, h.Type)
		}
		if !validUrgencies[h.Urgency] {
			return fmt.Errorf("%w: highlight %d has unknown urgency %q", model.ErrValidation, i, h.Urgency)
		}
		if h.Title == "" || len(h.Title) > maxTitleLen {
			return fmt.Errorf("%w: highlight %d title empty or over %d chars", model.ErrValidation, i, maxTitleLen)
		}
		if len(h.Detail) > maxDetailLen {
			return fmt.Errorf("%w: highlight %d detail over %d chars", model.ErrValidation, i, maxDetailLen)
		}
		if len(h.WhyItMatters) > maxDetailLen {
			return fmt.Errorf("%w: highlight %d why_it_matters over %d chars", model.ErrValidation, i, maxDetailLen)
		}
	}

	if b.Recommendations == nil {
		return fmt.Errorf("%w: recommendations must be an array, not null", model.ErrValidation)
	}
	if len(b.Recommendations) > maxRecommendations {
		return fmt.Errorf("%w: %d recommendations exceeds max %d", model.ErrValidation, len(b.Recommendations), maxRecommendations)
	}
	for i, r := range b.Recommendations {
		if r.Action == "" || len(r.Action) > maxActionLen {
			return fmt.Errorf("%w: recommendation %d action empty or over %d chars", model.ErrValidation, i, maxActionLen)
		}
		if len(r.Steps) > maxSteps {
			return fmt.Errorf("%w: recommendation %d has %d steps, max %d", model.ErrValidation, i, len(r.Steps), maxSteps)
		}
		for j, s := range r.Steps {
			if len(s) > maxStepLen {
				return fmt.Errorf("%w: recommendation %d step %d over %d chars", model.ErrValidation, i, j, maxStepLen)
			}
		}
	}

	if b.Rollup.GitHub.ActiveRepos == nil {
		return fmt.Errorf("%w: rollup.github.active_repos must be an array, not null", model.ErrValidation)
	}
	return nil
}
