package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/daybrief/daybrief/internal/model"
)

const (
	notionBaseURL = "https://api.notion.com/v1"
	notionVersion = "2022-06-28"
	notionPageCap = 10
)

// NotionClient surfaces recently edited pages via the Notion search API.
type NotionClient struct {
	http *resty.Client
	now  func() time.Time
}

func NewNotionClient(baseURL string, timeout time.Duration) *NotionClient {
	if baseURL == "" {
		baseURL = notionBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Notion-Version", notionVersion).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	return &NotionClient{http: c, now: time.Now}
}

func (n *NotionClient) Type() model.IntegrationType { return model.IntegrationNotion }

type notionTitleProp struct {
	Title []struct {
		PlainText string `json:"plain_text"`
	} `json:"title"`
}

type notionPage struct {
	ID             string                     `json:"id"`
	URL            string                     `json:"url"`
	CreatedTime    string                     `json:"created_time"`
	LastEditedTime string                     `json:"last_edited_time"`
	Properties     map[string]notionTitleProp `json:"properties"`
}

func (p notionPage) title() string {
	for _, key := range []string{"title", "Name"} {
		if prop, ok := p.Properties[key]; ok && len(prop.Title) > 0 {
			return prop.Title[0].PlainText
		}
	}
	return "Untitled"
}

// Fetch returns recently edited pages as events.
func (n *NotionClient) Fetch(ctx context.Context, cred *model.Credential, workspaceID string) ([]model.Event, error) {
	token, err := requireToken(cred)
	if err != nil {
		return nil, err
	}

	var result struct {
		Results []notionPage `json:"results"`
	}
	resp, err := n.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]any{
			"sort":      map[string]string{"direction": "descending", "timestamp": "last_edited_time"},
			"page_size": notionPageCap,
		}).
		SetResult(&result).
		Post("/search")
	if err != nil {
		return nil, fmt.Errorf("notion search: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Provider: model.IntegrationNotion, StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	events := make([]model.Event, 0, len(result.Results))
	for _, page := range result.Results {
		meta, _ := json.Marshal(map[string]string{
			"createdTime":    page.CreatedTime,
			"lastEditedTime": page.LastEditedTime,
		})
		occurred := n.now().UTC()
		if t, err := time.Parse(time.RFC3339, page.LastEditedTime); err == nil {
			occurred = t.UTC()
		}
		title := page.title()
		events = append(events, model.Event{
			ID:              page.ID,
			WorkspaceID:     workspaceID,
			IntegrationType: model.IntegrationNotion,
			EventType:       "page",
			Title:           &title,
			URL:             strPtr(page.URL),
			Metadata:        meta,
			OccurredAt:      occurred,
			CreatedAt:       n.now().UTC(),
		})
	}
	return events, nil
}
