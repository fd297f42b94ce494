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

func githubTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "updated", r.URL.Query().Get("sort"))
		assert.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":1,"name":"api","full_name":"acme/api","description":"backend","updated_at":"2024-01-01T10:00:00Z"},
			{"id":2,"name":"web","full_name":"acme/web","private":true,"updated_at":"2024-01-01T09:00:00Z"}
		]`))
	})
	mux.HandleFunc("/repos/acme/api/commits", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"sha":"abc123","html_url":"https://github.com/acme/api/commit/abc123",
			 "commit":{"message":"Fix race\n\nDetails here","author":{"name":"bob","date":"2024-01-01T08:00:00Z"}}}
		]`))
	})
	mux.HandleFunc("/repos/acme/api/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"number":42,"title":"Add rate limiting","state":"open",
			 "html_url":"https://github.com/acme/api/pull/42","user":{"login":"carol"}}
		]`))
	})
	mux.HandleFunc("/repos/acme/api/issues", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"number":7,"title":"Crash on empty input","state":"open",
			 "html_url":"https://github.com/acme/api/issues/7","user":{"login":"dave"}},
			{"number":42,"title":"Add rate limiting","state":"open",
			 "html_url":"https://github.com/acme/api/pull/42","user":{"login":"carol"},"pull_request":{}}
		]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func githubCred() *model.Credential {
	return &model.Credential{UserID: "u1", Provider: model.IntegrationGitHub, AccessToken: "gh-token"}
}

func TestGitHubRepos(t *testing.T) {
	srv := githubTestServer(t)
	c := NewGitHubClient(srv.URL, time.Second)

	repos, err := c.Repos(context.Background(), githubCred())
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "acme/api", repos[0].FullName)
	assert.True(t, repos[1].Private)
}

func TestGitHubDetails(t *testing.T) {
	srv := githubTestServer(t)
	c := NewGitHubClient(srv.URL, time.Second)

	d, err := c.Details(context.Background(), githubCred(), "acme/api")
	require.NoError(t, err)

	require.Len(t, d.Commits, 1)
	assert.Equal(t, "abc123", d.Commits[0].SHA)
	assert.Equal(t, "bob", d.Commits[0].Author)

	require.Len(t, d.PullRequests, 1)
	assert.Equal(t, 42, d.PullRequests[0].Number)

	// The issues endpoint interleaves PRs; those must be filtered out.
	require.Len(t, d.Issues, 1)
	assert.Equal(t, 7, d.Issues[0].Number)
}

func TestGitHubFetch(t *testing.T) {
	srv := githubTestServer(t)
	c := NewGitHubClient(srv.URL, time.Second)

	events, err := c.Fetch(context.Background(), githubCred(), "w1")
	require.NoError(t, err)
	// 1 commit + 1 PR + 1 issue + 1 repo marker for acme/web.
	require.Len(t, events, 4)

	assert.Equal(t, "commit", events[0].EventType)
	assert.Equal(t, "Fix race", *events[0].Title, "commit title is the first message line")
	meta, ok := DecodeGitHubMeta(events[0])
	require.True(t, ok)
	assert.Equal(t, "acme/api", meta.Repo)

	assert.Equal(t, "pull_request", events[1].EventType)
	assert.Equal(t, "issue", events[2].EventType)
	assert.Equal(t, "repo", events[3].EventType)
	assert.Equal(t, "https://github.com/acme/web", *events[3].URL)
}

func TestGitHubAuthExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewGitHubClient(srv.URL, time.Second)
	_, err := c.Fetch(context.Background(), githubCred(), "w1")
	require.Error(t, err)
	assert.True(t, IsAuthExpired(err))
}

func TestGitHubFetchNotConnected(t *testing.T) {
	c := NewGitHubClient("http://127.0.0.1:1", time.Second)
	_, err := c.Fetch(context.Background(), nil, "w1")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "one", firstLine("one\ntwo"))
	assert.Equal(t, "single", firstLine("single"))
	assert.Equal(t, "", firstLine("\nbody"))
}
