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
	zoomBaseURL    = "https://api.zoom.us/v2"
	zoomMeetingCap = 5
)

// ZoomClient surfaces upcoming meetings via the Zoom REST API.
type ZoomClient struct {
	http *resty.Client
	now  func() time.Time
}

func NewZoomClient(baseURL string, timeout time.Duration) *ZoomClient {
	if baseURL == "" {
		baseURL = zoomBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &ZoomClient{http: c, now: time.Now}
}

func (z *ZoomClient) Type() model.IntegrationType { return model.IntegrationZoom }

// Fetch returns upcoming meetings as events.
func (z *ZoomClient) Fetch(ctx context.Context, cred *model.Credential, workspaceID string) ([]model.Event, error) {
	token, err := requireToken(cred)
	if err != nil {
		return nil, err
	}

	var result struct {
		Meetings []struct {
			ID        int64  `json:"id"`
			Topic     string `json:"topic"`
			StartTime string `json:"start_time"`
			Duration  int    `json:"duration"`
			JoinURL   string `json:"join_url"`
			Status    string `json:"status"`
		} `json:"meetings"`
	}
	resp, err := z.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("type", "upcoming").
		SetResult(&result).
		Get("/users/me/meetings")
	if err != nil {
		return nil, fmt.Errorf("zoom meetings: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Provider: model.IntegrationZoom, StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	meetings := result.Meetings
	if len(meetings) > zoomMeetingCap {
		meetings = meetings[:zoomMeetingCap]
	}
	events := make([]model.Event, 0, len(meetings))
	for _, m := range meetings {
		meta, _ := json.Marshal(map[string]any{"duration": m.Duration, "status": m.Status})
		occurred := z.now().UTC()
		if t, err := time.Parse(time.RFC3339, m.StartTime); err == nil {
			occurred = t.UTC()
		}
		events = append(events, model.Event{
			ID:              fmt.Sprintf("zoom-meeting-%d", m.ID),
			WorkspaceID:     workspaceID,
			IntegrationType: model.IntegrationZoom,
			EventType:       "meeting",
			Title:           strPtr(m.Topic),
			Body:            strPtr(fmt.Sprintf("Duration: %d minutes", m.Duration)),
			URL:             strPtr(m.JoinURL),
			Metadata:        meta,
			OccurredAt:      occurred,
			CreatedAt:       z.now().UTC(),
		})
	}
	return events, nil
}
