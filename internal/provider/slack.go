package provider

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/daybrief/daybrief/internal/model"
)

const slackBaseURL = "https://slack.com/api"

const slackMentionCap = 10

// SlackClient surfaces recent mentions of the user via the Slack Web API.
type SlackClient struct {
	http *resty.Client
	now  func() time.Time
}

func NewSlackClient(baseURL string, timeout time.Duration) *SlackClient {
	if baseURL == "" {
		baseURL = slackBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &SlackClient{http: c, now: time.Now}
}

func (s *SlackClient) Type() model.IntegrationType { return model.IntegrationSlack }

// slackError maps Slack's ok:false error strings onto the shared taxonomy.
// Slack reports auth problems in-band with HTTP 200.
func slackError(code string) error {
	switch code {
	case "invalid_auth", "token_revoked", "token_expired", "account_inactive":
		return &APIError{Provider: model.IntegrationSlack, StatusCode: http.StatusUnauthorized, Body: code}
	default:
		return fmt.Errorf("slack API error: %s", code)
	}
}

// Fetch returns recent messages mentioning the user as events.
func (s *SlackClient) Fetch(ctx context.Context, cred *model.Credential, workspaceID string) ([]model.Event, error) {
	token, err := requireToken(cred)
	if err != nil {
		return nil, err
	}

	var who struct {
		OK     bool   `json:"ok"`
		Error  string `json:"error"`
		UserID string `json:"user_id"`
	}
	resp, err := s.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&who).
		Post("/auth.test")
	if err != nil {
		return nil, fmt.Errorf("slack auth.test: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Provider: model.IntegrationSlack, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	if !who.OK {
		return nil, slackError(who.Error)
	}

	var search struct {
		OK       bool   `json:"ok"`
		Error    string `json:"error"`
		Messages struct {
			Matches []struct {
				TS        string `json:"ts"`
				Text      string `json:"text"`
				Username  string `json:"username"`
				Permalink string `json:"permalink"`
				Channel   struct {
					Name string `json:"name"`
				} `json:"channel"`
			} `json:"matches"`
		} `json:"messages"`
	}
	resp, err = s.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"query": "<@" + who.UserID + ">",
			"count": strconv.Itoa(slackMentionCap),
			"sort":  "timestamp",
		}).
		SetResult(&search).
		Get("/search.messages")
	if err != nil {
		return nil, fmt.Errorf("slack search: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Provider: model.IntegrationSlack, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	if !search.OK {
		return nil, slackError(search.Error)
	}

	events := make([]model.Event, 0, len(search.Messages.Matches))
	for _, m := range search.Messages.Matches {
		title := m.Text
		if m.Channel.Name != "" {
			title = "#" + m.Channel.Name + ": " + m.Text
		}
		events = append(events, model.Event{
			ID:              "slack-" + m.TS,
			WorkspaceID:     workspaceID,
			IntegrationType: model.IntegrationSlack,
			EventType:       "mention",
			Actor:           strPtr(m.Username),
			Title:           strPtr(title),
			Body:            strPtr(m.Text),
			URL:             strPtr(m.Permalink),
			OccurredAt:      slackTS(m.TS, s.now),
			CreatedAt:       s.now().UTC(),
		})
	}
	return events, nil
}

// slackTS parses Slack's "seconds.micros" timestamp format.
func slackTS(ts string, now func() time.Time) time.Time {
	sec := ts
	if i := strings.IndexByte(ts, '.'); i >= 0 {
		sec = ts[:i]
	}
	v, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return now().UTC()
	}
	return time.Unix(v, 0).UTC()
}
