package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/daybrief/daybrief/internal/model"
)

const (
	gmailBaseURL = "https://gmail.googleapis.com/gmail/v1"

	// Long-form bodies are truncated before they reach synthesis.
	gmailBodyCap = 4000
)

// GmailClient reads recent inbox activity via the Gmail REST API.
type GmailClient struct {
	http *resty.Client
	now  func() time.Time
}

// NewGmailClient builds a client against the public Gmail API. baseURL
// overrides the endpoint; empty means production.
func NewGmailClient(baseURL string, timeout time.Duration) *GmailClient {
	if baseURL == "" {
		baseURL = gmailBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	return &GmailClient{http: c, now: time.Now}
}

func (g *GmailClient) Type() model.IntegrationType { return model.IntegrationGmail }

type gmailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type gmailPayload struct {
	MimeType string         `json:"mimeType"`
	Headers  []gmailHeader  `json:"headers"`
	Body     gmailBody      `json:"body"`
	Parts    []gmailPayload `json:"parts"`
}

type gmailBody struct {
	Data string `json:"data"`
}

type gmailMessage struct {
	ID           string       `json:"id"`
	ThreadID     string       `json:"threadId"`
	Snippet      string       `json:"snippet"`
	InternalDate string       `json:"internalDate"`
	LabelIDs     []string     `json:"labelIds"`
	Payload      gmailPayload `json:"payload"`
}

// GmailMeta is the typed metadata payload gmail events carry.
type GmailMeta struct {
	ThreadID string `json:"threadId"`
	Date     string `json:"date,omitempty"`
	Unread   bool   `json:"unread"`
}

// DecodeGmailMeta reads the typed metadata off a gmail event.
func DecodeGmailMeta(ev model.Event) (GmailMeta, bool) {
	if ev.IntegrationType != model.IntegrationGmail || len(ev.Metadata) == 0 {
		return GmailMeta{}, false
	}
	var m GmailMeta
	if err := json.Unmarshal(ev.Metadata, &m); err != nil {
		return GmailMeta{}, false
	}
	return m, true
}

// Fetch returns recent unread or important messages as events.
func (g *GmailClient) Fetch(ctx context.Context, cred *model.Credential, workspaceID string) ([]model.Event, error) {
	msgs, err := g.recentMessages(ctx, cred, 5, true)
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(msgs))
	for _, msg := range msgs {
		meta, _ := json.Marshal(GmailMeta{
			ThreadID: msg.ThreadID,
			Date:     headerValue(msg.Payload.Headers, "Date"),
			Unread:   hasLabel(msg.LabelIDs, "UNREAD"),
		})
		subject := headerValue(msg.Payload.Headers, "Subject")
		if subject == "" {
			subject = "(No subject)"
		}
		body := msg.Snippet
		if extracted := ExtractEmailBody(msg.Payload); extracted != "" {
			body = extracted
		}
		body = capBody(body, gmailBodyCap)
		events = append(events, model.Event{
			ID:              msg.ID,
			WorkspaceID:     workspaceID,
			IntegrationType: model.IntegrationGmail,
			EventType:       "email",
			Actor:           strPtr(headerValue(msg.Payload.Headers, "From")),
			Title:           &subject,
			Body:            strPtr(body),
			URL:             strPtr("https://mail.google.com/mail/#all/" + msg.ID),
			Metadata:        meta,
			OccurredAt:      internalDateToTime(msg.InternalDate, g.now),
			CreatedAt:       g.now().UTC(),
		})
	}
	return events, nil
}

// Message is an inbox row formatted for direct display.
type Message struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
	Body    string `json:"body,omitempty"`
	Date    string `json:"date"`
	TimeAgo string `json:"timeAgo"`
	Unread  bool   `json:"unread"`
}

// Messages returns up to limit formatted inbox messages. full controls whether
// the extracted body is included.
func (g *GmailClient) Messages(ctx context.Context, cred *model.Credential, limit int, full bool) ([]Message, error) {
	if limit <= 0 || limit > 20 {
		limit = 10
	}
	msgs, err := g.recentMessages(ctx, cred, limit, full)
	if err != nil {
		return nil, err
	}

	out := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		from := headerValue(msg.Payload.Headers, "From")
		name, addr := splitSender(from)
		subject := headerValue(msg.Payload.Headers, "Subject")
		if subject == "" {
			subject = "(no subject)"
		}
		date := headerValue(msg.Payload.Headers, "Date")
		m := Message{
			ID:      msg.ID,
			From:    name,
			Email:   addr,
			Subject: subject,
			Snippet: msg.Snippet,
			Date:    date,
			Unread:  hasLabel(msg.LabelIDs, "UNREAD"),
		}
		if t, err := time.Parse(time.RFC1123Z, date); err == nil {
			m.TimeAgo = TimeAgo(g.now().Sub(t))
		}
		if full {
			m.Body = capBody(ExtractEmailBody(msg.Payload), gmailBodyCap)
		}
		out = append(out, m)
	}
	return out, nil
}

func (g *GmailClient) recentMessages(ctx context.Context, cred *model.Credential, limit int, full bool) ([]gmailMessage, error) {
	token, err := requireToken(cred)
	if err != nil {
		return nil, err
	}

	var list struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	resp, err := g.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"maxResults": "10",
			"q":          "is:unread OR is:important",
		}).
		SetResult(&list).
		Get("/users/me/messages")
	if err != nil {
		return nil, fmt.Errorf("gmail list: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Provider: model.IntegrationGmail, StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	format := "metadata"
	if full {
		format = "full"
	}
	msgs := make([]gmailMessage, 0, limit)
	for _, ref := range list.Messages {
		if len(msgs) >= limit {
			break
		}
		var msg gmailMessage
		resp, err := g.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetQueryParam("format", format).
			SetResult(&msg).
			Get("/users/me/messages/" + ref.ID)
		if err != nil || resp.IsError() {
			// One unreadable message must not sink the whole fetch.
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

var (
	htmlTagRx    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRx = regexp.MustCompile(`\s+`)
	senderRx     = regexp.MustCompile(`^(.+?)\s*<(.+?)>$`)
)

// ExtractEmailBody pulls readable text out of a Gmail payload. It prefers a
// plain-text part, falls back to tag-stripped HTML, and recurses into nested
// multipart structures.
func ExtractEmailBody(payload gmailPayload) string {
	if payload.Body.Data != "" {
		return decodeBase64URL(payload.Body.Data)
	}

	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body.Data != "" {
			return decodeBase64URL(part.Body.Data)
		}
	}
	for _, part := range payload.Parts {
		if part.MimeType == "text/html" && part.Body.Data != "" {
			html := decodeBase64URL(part.Body.Data)
			return strings.TrimSpace(whitespaceRx.ReplaceAllString(htmlTagRx.ReplaceAllString(html, " "), " "))
		}
	}
	for _, part := range payload.Parts {
		if len(part.Parts) > 0 {
			if nested := ExtractEmailBody(part); nested != "" {
				return nested
			}
		}
	}
	return ""
}

// capBody shortens a body to at most n bytes plus an ellipsis, backing up so
// the cut never splits a multi-byte rune.
func capBody(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// decodeBase64URL decodes Gmail's base64url encoding (- and _ instead of + and /).
func decodeBase64URL(data string) string {
	s := strings.ReplaceAll(strings.ReplaceAll(data, "-", "+"), "_", "/")
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return ""
	}
	return string(raw)
}

// TimeAgo renders a human-relative label with fixed thresholds.
func TimeAgo(d time.Duration) string {
	seconds := int(d.Seconds())
	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh ago", seconds/3600)
	case seconds < 604800:
		return fmt.Sprintf("%dd ago", seconds/86400)
	default:
		return fmt.Sprintf("%dw ago", seconds/604800)
	}
}

func headerValue(headers []gmailHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

// splitSender breaks `Name <email@example.com>` into its parts.
func splitSender(from string) (name, email string) {
	if m := senderRx.FindStringSubmatch(from); m != nil {
		return strings.ReplaceAll(m[1], `"`, ""), m[2]
	}
	return from, from
}

func internalDateToTime(ms string, now func() time.Time) time.Time {
	v, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return now().UTC()
	}
	return time.UnixMilli(v).UTC()
}
