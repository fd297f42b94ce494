package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/daybrief/daybrief/internal/model"
)

const githubBaseURL = "https://api.github.com"

const (
	githubRepoCap   = 20
	githubCommitCap = 5
	githubPRCap     = 3
)

// GitHubClient reads repository activity from the GitHub REST API.
type GitHubClient struct {
	http *resty.Client
	now  func() time.Time
}

func NewGitHubClient(baseURL string, timeout time.Duration) *GitHubClient {
	if baseURL == "" {
		baseURL = githubBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/vnd.github+json").
		SetTimeout(timeout)
	return &GitHubClient{http: c, now: time.Now}
}

func (g *GitHubClient) Type() model.IntegrationType { return model.IntegrationGitHub }

// Repo is a repository row sorted by most-recently-updated.
type Repo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"fullName"`
	Description string `json:"description,omitempty"`
	Private     bool   `json:"private"`
	UpdatedAt   string `json:"updatedAt"`
}

// RepoDetails is a capped activity rollup for one repository.
type RepoDetails struct {
	Repo         string       `json:"repo"`
	Commits      []RepoCommit `json:"commits"`
	PullRequests []RepoPR     `json:"pullRequests"`
	Issues       []RepoIssue  `json:"issues"`
}

type RepoCommit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	Author  string `json:"author"`
	URL     string `json:"url"`
	Date    string `json:"date"`
}

type RepoPR struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Author string `json:"author"`
	State  string `json:"state"`
	URL    string `json:"url"`
}

type RepoIssue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Author string `json:"author"`
	State  string `json:"state"`
	URL    string `json:"url"`
}

// GitHubMeta is the typed metadata payload github events carry.
type GitHubMeta struct {
	Repo   string `json:"repo"`
	Number int    `json:"number,omitempty"`
	State  string `json:"state,omitempty"`
}

// DecodeGitHubMeta reads the typed metadata off a github event.
func DecodeGitHubMeta(ev model.Event) (GitHubMeta, bool) {
	if ev.IntegrationType != model.IntegrationGitHub || len(ev.Metadata) == 0 {
		return GitHubMeta{}, false
	}
	var m GitHubMeta
	if err := json.Unmarshal(ev.Metadata, &m); err != nil {
		return GitHubMeta{}, false
	}
	return m, true
}

// Repos lists the user's repositories sorted by most-recently-updated.
func (g *GitHubClient) Repos(ctx context.Context, cred *model.Credential) ([]Repo, error) {
	token, err := requireToken(cred)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		FullName    string `json:"full_name"`
		Description string `json:"description"`
		Private     bool   `json:"private"`
		UpdatedAt   string `json:"updated_at"`
	}
	resp, err := g.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{"sort": "updated", "per_page": fmt.Sprint(githubRepoCap)}).
		SetResult(&raw).
		Get("/user/repos")
	if err != nil {
		return nil, fmt.Errorf("github repos: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Provider: model.IntegrationGitHub, StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	repos := make([]Repo, 0, len(raw))
	for _, r := range raw {
		repos = append(repos, Repo{
			ID: r.ID, Name: r.Name, FullName: r.FullName,
			Description: r.Description, Private: r.Private, UpdatedAt: r.UpdatedAt,
		})
	}
	return repos, nil
}

// Details fetches recent commits, pull requests, and issues for one repo,
// capped for rollup purposes.
func (g *GitHubClient) Details(ctx context.Context, cred *model.Credential, fullName string) (*RepoDetails, error) {
	token, err := requireToken(cred)
	if err != nil {
		return nil, err
	}

	d := &RepoDetails{Repo: fullName}

	var commits []struct {
		SHA    string `json:"sha"`
		Commit struct {
			Message string `json:"message"`
			Author  struct {
				Name string `json:"name"`
				Date string `json:"date"`
			} `json:"author"`
		} `json:"commit"`
		HTMLURL string `json:"html_url"`
	}
	resp, err := g.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("per_page", fmt.Sprint(githubCommitCap)).
		SetResult(&commits).
		Get("/repos/" + fullName + "/commits")
	if err != nil {
		return nil, fmt.Errorf("github commits: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Provider: model.IntegrationGitHub, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	for _, c := range commits {
		d.Commits = append(d.Commits, RepoCommit{
			SHA:     c.SHA,
			Message: c.Commit.Message,
			Author:  c.Commit.Author.Name,
			URL:     c.HTMLURL,
			Date:    c.Commit.Author.Date,
		})
	}

	var prs []struct {
		Number  int    `json:"number"`
		Title   string `json:"title"`
		State   string `json:"state"`
		HTMLURL string `json:"html_url"`
		User    struct {
			Login string `json:"login"`
		} `json:"user"`
	}
	resp, err = g.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{"state": "open", "per_page": fmt.Sprint(githubPRCap)}).
		SetResult(&prs).
		Get("/repos/" + fullName + "/pulls")
	if err != nil {
		return nil, fmt.Errorf("github pulls: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Provider: model.IntegrationGitHub, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	for _, pr := range prs {
		d.PullRequests = append(d.PullRequests, RepoPR{
			Number: pr.Number, Title: pr.Title, Author: pr.User.Login,
			State: pr.State, URL: pr.HTMLURL,
		})
	}

	var issues []struct {
		Number  int    `json:"number"`
		Title   string `json:"title"`
		State   string `json:"state"`
		HTMLURL string `json:"html_url"`
		User    struct {
			Login string `json:"login"`
		} `json:"user"`
		PullRequest *struct{} `json:"pull_request"`
	}
	resp, err = g.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{"state": "open", "per_page": fmt.Sprint(githubCommitCap)}).
		SetResult(&issues).
		Get("/repos/" + fullName + "/issues")
	if err != nil {
		return nil, fmt.Errorf("github issues: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Provider: model.IntegrationGitHub, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	for _, is := range issues {
		if is.PullRequest != nil {
			// The issues endpoint interleaves PRs; those are reported above.
			continue
		}
		d.Issues = append(d.Issues, RepoIssue{
			Number: is.Number, Title: is.Title, Author: is.User.Login,
			State: is.State, URL: is.HTMLURL,
		})
	}

	return d, nil
}

// Fetch returns recent activity from the most recently updated repository as
// events: its commits, open PRs, and open issues, plus repo markers for the
// other active repositories.
func (g *GitHubClient) Fetch(ctx context.Context, cred *model.Credential, workspaceID string) ([]model.Event, error) {
	repos, err := g.Repos(ctx, cred)
	if err != nil {
		return nil, err
	}
	if len(repos) == 0 {
		return nil, nil
	}

	events := make([]model.Event, 0, githubCommitCap+githubPRCap)
	now := g.now().UTC()

	top := repos[0]
	details, err := g.Details(ctx, cred, top.FullName)
	if err != nil {
		return nil, err
	}

	for _, c := range details.Commits {
		meta, _ := json.Marshal(GitHubMeta{Repo: top.FullName})
		occurred := now
		if t, err := time.Parse(time.RFC3339, c.Date); err == nil {
			occurred = t.UTC()
		}
		events = append(events, model.Event{
			ID:              "commit-" + c.SHA,
			WorkspaceID:     workspaceID,
			IntegrationType: model.IntegrationGitHub,
			EventType:       "commit",
			Actor:           strPtr(c.Author),
			Title:           strPtr(firstLine(c.Message)),
			URL:             strPtr(c.URL),
			Metadata:        meta,
			OccurredAt:      occurred,
			CreatedAt:       now,
		})
	}
	for _, pr := range details.PullRequests {
		meta, _ := json.Marshal(GitHubMeta{Repo: top.FullName, Number: pr.Number, State: pr.State})
		events = append(events, model.Event{
			ID:              fmt.Sprintf("pr-%s-%d", top.Name, pr.Number),
			WorkspaceID:     workspaceID,
			IntegrationType: model.IntegrationGitHub,
			EventType:       "pull_request",
			Actor:           strPtr(pr.Author),
			Title:           strPtr(pr.Title),
			URL:             strPtr(pr.URL),
			Metadata:        meta,
			OccurredAt:      now,
			CreatedAt:       now,
		})
	}
	for _, is := range details.Issues {
		meta, _ := json.Marshal(GitHubMeta{Repo: top.FullName, Number: is.Number, State: is.State})
		events = append(events, model.Event{
			ID:              fmt.Sprintf("issue-%s-%d", top.Name, is.Number),
			WorkspaceID:     workspaceID,
			IntegrationType: model.IntegrationGitHub,
			EventType:       "issue",
			Actor:           strPtr(is.Author),
			Title:           strPtr(is.Title),
			URL:             strPtr(is.URL),
			Metadata:        meta,
			OccurredAt:      now,
			CreatedAt:       now,
		})
	}

	// Repo markers keep the rollup aware of other active repositories.
	for _, r := range repos[1:] {
		if len(events) >= githubRepoCap {
			break
		}
		meta, _ := json.Marshal(GitHubMeta{Repo: r.FullName})
		occurred := now
		if t, err := time.Parse(time.RFC3339, r.UpdatedAt); err == nil {
			occurred = t.UTC()
		}
		events = append(events, model.Event{
			ID:              fmt.Sprintf("repo-%d", r.ID),
			WorkspaceID:     workspaceID,
			IntegrationType: model.IntegrationGitHub,
			EventType:       "repo",
			Title:           strPtr(r.Name),
			URL:             strPtr("https://github.com/" + r.FullName),
			Metadata:        meta,
			OccurredAt:      occurred,
			CreatedAt:       now,
		})
	}

	return events, nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
