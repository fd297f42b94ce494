package intent

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		query string
		want  Intent
	}{
		{"", DailyBriefing},
		{"   ", DailyBriefing},
		{"What do I need to care about today?", DailyBriefing},
		{"give me my daily briefing", DailyBriefing},
		{"how is my day looking", DailyBriefing},
		{"what changed since yesterday?", WhatChanged},
		{"What's new?", WhatChanged},
		{"catch me up", WhatChanged},
		{"did I miss anything? what have I missed", WhatChanged},
		{"show me open pull requests", Generic},
		{"who emailed me about the contract", Generic},
	}
	for _, tc := range cases {
		if got := Classify(tc.query); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.query, got, tc.want)
		}
	}
}

func TestClassifyDeltaBeatsDaily(t *testing.T) {
	// Queries matching both keyword sets resolve to the delta intent.
	if got := Classify("what changed today"); got != WhatChanged {
		t.Fatalf("got %s, want %s", got, WhatChanged)
	}
}
