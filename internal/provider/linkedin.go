package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/daybrief/daybrief/internal/model"
)

const linkedinBaseURL = "https://api.linkedin.com/v2"

// LinkedInClient surfaces the connected profile via the LinkedIn userinfo API.
type LinkedInClient struct {
	http *resty.Client
	now  func() time.Time
}

func NewLinkedInClient(baseURL string, timeout time.Duration) *LinkedInClient {
	if baseURL == "" {
		baseURL = linkedinBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &LinkedInClient{http: c, now: time.Now}
}

func (l *LinkedInClient) Type() model.IntegrationType { return model.IntegrationLinkedIn }

// Fetch returns the connected profile as a single event.
func (l *LinkedInClient) Fetch(ctx context.Context, cred *model.Credential, workspaceID string) ([]model.Event, error) {
	token, err := requireToken(cred)
	if err != nil {
		return nil, err
	}

	var profile struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	resp, err := l.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&profile).
		Get("/userinfo")
	if err != nil {
		return nil, fmt.Errorf("linkedin userinfo: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Provider: model.IntegrationLinkedIn, StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	meta, _ := json.Marshal(map[string]string{"email": profile.Email, "picture": profile.Picture})
	title := "LinkedIn Profile: " + profile.Name
	return []model.Event{{
		ID:              "linkedin-profile-" + profile.Sub,
		WorkspaceID:     workspaceID,
		IntegrationType: model.IntegrationLinkedIn,
		EventType:       "profile",
		Actor:           strPtr(profile.Name),
		Title:           &title,
		Body:            strPtr(profile.Email),
		Metadata:        meta,
		OccurredAt:      l.now().UTC(),
		CreatedAt:       l.now().UTC(),
	}}, nil
}
