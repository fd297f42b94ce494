package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/daybrief/daybrief/internal/model"
)

const calendarBaseURL = "https://www.googleapis.com/calendar/v3"

// Timeframe selects the calendar query window.
type Timeframe string

const (
	TimeframeToday     Timeframe = "today"
	TimeframeNextEvent Timeframe = "next-event"
	TimeframeWeek      Timeframe = "week"
)

// ParseTimeframe maps a request parameter onto a known window, defaulting to week.
func ParseTimeframe(s string) Timeframe {
	switch Timeframe(s) {
	case TimeframeToday, TimeframeNextEvent:
		return Timeframe(s)
	default:
		return TimeframeWeek
	}
}

// CalendarClient reads upcoming events from the Google Calendar API.
type CalendarClient struct {
	http      *resty.Client
	timeframe Timeframe
	now       func() time.Time
}

func NewCalendarClient(baseURL string, timeout time.Duration) *CalendarClient {
	if baseURL == "" {
		baseURL = calendarBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	return &CalendarClient{http: c, timeframe: TimeframeWeek, now: time.Now}
}

func (c *CalendarClient) Type() model.IntegrationType { return model.IntegrationCalendar }

// WithTimeframe returns a copy of the client scoped to the given window.
// The underlying HTTP client is shared; it is safe for concurrent use.
func (c *CalendarClient) WithTimeframe(tf Timeframe) Client {
	cp := *c
	cp.timeframe = tf
	return &cp
}

// window computes [timeMin, timeMax] and the result cap for the timeframe.
func (c *CalendarClient) window() (timeMin, timeMax time.Time, maxResults int) {
	now := c.now()
	switch c.timeframe {
	case TimeframeToday:
		end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, int(999*time.Millisecond), now.Location())
		return now, end, 10
	case TimeframeNextEvent:
		return now, now.Add(30 * 24 * time.Hour), 1
	default: // week
		return now, now.Add(7 * 24 * time.Hour), 10
	}
}

type calendarItem struct {
	ID          string           `json:"id"`
	Summary     string           `json:"summary"`
	Description string           `json:"description"`
	Location    string           `json:"location"`
	Start       calendarDateTime `json:"start"`
	End         calendarDateTime `json:"end"`
	HTMLLink    string           `json:"htmlLink"`
	Organizer   *struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	} `json:"organizer"`
	Attendees []struct {
		Email string `json:"email"`
	} `json:"attendees"`
}

type calendarDateTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

// value returns the timed start when present, otherwise the all-day date.
func (d calendarDateTime) value() string {
	if d.DateTime != "" {
		return d.DateTime
	}
	return d.Date
}

func (d calendarDateTime) parse(loc *time.Location) (time.Time, bool) {
	if d.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, d.DateTime); err == nil {
			return t, true
		}
	}
	if d.Date != "" {
		if t, err := time.ParseInLocation("2006-01-02", d.Date, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CalendarMeta is the typed metadata payload calendar events carry.
type CalendarMeta struct {
	End       string   `json:"end,omitempty"`
	Attendees []string `json:"attendees,omitempty"`
}

// DecodeCalendarMeta reads the typed metadata off a calendar event.
func DecodeCalendarMeta(ev model.Event) (CalendarMeta, bool) {
	if ev.IntegrationType != model.IntegrationCalendar || len(ev.Metadata) == 0 {
		return CalendarMeta{}, false
	}
	var m CalendarMeta
	if err := json.Unmarshal(ev.Metadata, &m); err != nil {
		return CalendarMeta{}, false
	}
	return m, true
}

// Fetch returns upcoming meetings within the client's timeframe as events.
func (c *CalendarClient) Fetch(ctx context.Context, cred *model.Credential, workspaceID string) ([]model.Event, error) {
	items, err := c.items(ctx, cred)
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(items))
	for _, item := range items {
		attendees := make([]string, 0, len(item.Attendees))
		for _, a := range item.Attendees {
			attendees = append(attendees, a.Email)
		}
		meta, _ := json.Marshal(CalendarMeta{End: item.End.value(), Attendees: attendees})

		title := item.Summary
		if title == "" {
			title = "(No title)"
		}
		var actor *string
		if item.Organizer != nil {
			if item.Organizer.DisplayName != "" {
				actor = strPtr(item.Organizer.DisplayName)
			} else {
				actor = strPtr(item.Organizer.Email)
			}
		}
		occurred := c.now().UTC()
		if t, ok := item.Start.parse(c.now().Location()); ok {
			occurred = t.UTC()
		}
		events = append(events, model.Event{
			ID:              item.ID,
			WorkspaceID:     workspaceID,
			IntegrationType: model.IntegrationCalendar,
			EventType:       "meeting",
			Actor:           actor,
			Title:           &title,
			Body:            strPtr(item.Description),
			URL:             strPtr(item.HTMLLink),
			Metadata:        meta,
			OccurredAt:      occurred,
			CreatedAt:       c.now().UTC(),
		})
	}
	return events, nil
}

// UpcomingEvent is a calendar row formatted for direct display.
type UpcomingEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// Upcoming returns window-selected events formatted for direct display.
func (c *CalendarClient) Upcoming(ctx context.Context, cred *model.Credential) ([]UpcomingEvent, error) {
	items, err := c.items(ctx, cred)
	if err != nil {
		return nil, err
	}
	out := make([]UpcomingEvent, 0, len(items))
	for _, item := range items {
		title := item.Summary
		if title == "" {
			title = "(No title)"
		}
		out = append(out, UpcomingEvent{
			ID:          item.ID,
			Title:       title,
			Start:       item.Start.value(),
			End:         item.End.value(),
			Location:    item.Location,
			Description: item.Description,
		})
	}
	return out, nil
}

func (c *CalendarClient) items(ctx context.Context, cred *model.Credential) ([]calendarItem, error) {
	token, err := requireToken(cred)
	if err != nil {
		return nil, err
	}

	timeMin, timeMax, maxResults := c.window()
	var result struct {
		Items []calendarItem `json:"items"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"timeMin":      timeMin.Format(time.RFC3339),
			"timeMax":      timeMax.Format(time.RFC3339),
			"singleEvents": "true",
			"orderBy":      "startTime",
			"maxResults":   strconv.Itoa(maxResults),
		}).
		SetResult(&result).
		Get("/calendars/primary/events")
	if err != nil {
		return nil, fmt.Errorf("calendar list: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Provider: model.IntegrationCalendar, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return result.Items, nil
}
