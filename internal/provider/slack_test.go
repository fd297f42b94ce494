package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybrief/daybrief/internal/model"
)

func slackCred() *model.Credential {
	return &model.Credential{UserID: "u1", Provider: model.IntegrationSlack, AccessToken: "xoxp-token"}
}

func TestSlackFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth.test", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"user_id":"U123"}`))
	})
	mux.HandleFunc("/search.messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "<@U123>", r.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"messages":{"matches":[
			{"ts":"1704103200.000100","text":"can you look at this?","username":"alice",
			 "permalink":"https://acme.slack.com/archives/C1/p1704103200000100",
			 "channel":{"name":"backend"}}
		]}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewSlackClient(srv.URL, time.Second)
	events, err := c.Fetch(context.Background(), slackCred(), "w1")
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "mention", ev.EventType)
	assert.Equal(t, "alice", *ev.Actor)
	assert.Equal(t, "#backend: can you look at this?", *ev.Title)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), ev.OccurredAt)
}

func TestSlackInBandAuthError(t *testing.T) {
	// Slack reports auth failures with HTTP 200 and ok:false.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"token_revoked"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewSlackClient(srv.URL, time.Second)
	_, err := c.Fetch(context.Background(), slackCred(), "w1")
	require.Error(t, err)
	assert.True(t, IsAuthExpired(err))
}

func TestSlackErrorMapping(t *testing.T) {
	for _, code := range []string{"invalid_auth", "token_revoked", "token_expired", "account_inactive"} {
		assert.True(t, IsAuthExpired(slackError(code)), code)
	}
	assert.False(t, IsAuthExpired(slackError("rate_limited")))
}

func TestSlackTS(t *testing.T) {
	got := slackTS("1704103200.000100", time.Now)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), got)

	fallback := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got = slackTS("garbage", func() time.Time { return fallback })
	assert.Equal(t, fallback, got)
}
