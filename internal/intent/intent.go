// Package intent maps free-text queries onto a small closed set of intents.
// Classification is a pure function; it only biases which providers and time
// windows the aggregator emphasizes, never whether aggregation runs.
package intent

import "strings"

// Intent is a classification of the user's query.
type Intent string

const (
	// DailyBriefing asks for the full picture of today.
	DailyBriefing Intent = "daily_briefing"
	// WhatChanged asks for the delta since the user last looked.
	WhatChanged Intent = "what_changed"
	// Generic is the fallback; it still triggers full aggregation.
	Generic Intent = "generic"
)

var dailyKeywords = []string{
	"briefing", "today", "this morning", "care about", "my day", "daily",
}

var deltaKeywords = []string{
	"what changed", "what's new", "whats new", "since", "catch me up", "missed",
}

// Classify maps query text to an intent. Unrecognized queries fall back to
// Generic rather than being rejected.
func Classify(query string) Intent {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return DailyBriefing
	}
	for _, kw := range deltaKeywords {
		if strings.Contains(q, kw) {
			return WhatChanged
		}
	}
	for _, kw := range dailyKeywords {
		if strings.Contains(q, kw) {
			return DailyBriefing
		}
	}
	return Generic
}
