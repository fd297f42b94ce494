package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/daybrief/daybrief/internal/api/respond"
	"github.com/daybrief/daybrief/internal/model"
	"github.com/daybrief/daybrief/internal/provider"
	"github.com/daybrief/daybrief/internal/store"
)

// AgentHandler exposes raw, per-provider views for agent tooling. Unlike the
// briefing pipeline these endpoints return provider-shaped payloads directly.
type AgentHandler struct {
	creds    store.Credentials
	gmail    *provider.GmailClient
	calendar *provider.CalendarClient
	github   *provider.GitHubClient
	timeout  time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

func NewAgentHandler(creds store.Credentials, gmail *provider.GmailClient, calendar *provider.CalendarClient, github *provider.GitHubClient, timeout time.Duration, log zerolog.Logger) *AgentHandler {
	return &AgentHandler{
		creds:    creds,
		gmail:    gmail,
		calendar: calendar,
		github:   github,
		timeout:  timeout,
		now:      time.Now,
		log:      log,
	}
}

// credential loads the user's token for one provider, distinguishing a missing
// connection from a store failure.
func (h *AgentHandler) credential(ctx context.Context, w http.ResponseWriter, userID string, p model.IntegrationType) (*model.Credential, bool) {
	cred, err := h.creds.Get(ctx, userID, p)
	if errors.Is(err, model.ErrNotFound) {
		respond.WriteNotConnected(w, string(p))
		return nil, false
	}
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return nil, false
	}
	return cred, true
}

func writeProviderError(w http.ResponseWriter, log zerolog.Logger, p model.IntegrationType, err error) {
	if provider.IsAuthExpired(err) {
		respond.WriteAuthExpired(w, string(p))
		return
	}
	log.Error().Err(err).Str("provider", string(p)).Msg("agent fetch failed")
	respond.WriteInternalError(w, err.Error())
}

// Gmail GET /api/agent/gmail?user_id=&limit=&full=
func (h *AgentHandler) Gmail(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respond.WriteBadRequest(w, "Missing user_id parameter")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	full := r.URL.Query().Get("full") == "true"

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cred, ok := h.credential(ctx, w, userID, model.IntegrationGmail)
	if !ok {
		return
	}
	msgs, err := h.gmail.Messages(ctx, cred, limit, full)
	if err != nil {
		writeProviderError(w, h.log, model.IntegrationGmail, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"connected": true,
		"messages":  msgs,
		"count":     len(msgs),
	})
}

// Calendar GET /api/agent/calendar?user_id=&timeframe=
func (h *AgentHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respond.WriteBadRequest(w, "Missing user_id parameter")
		return
	}
	tf := provider.ParseTimeframe(r.URL.Query().Get("timeframe"))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cred, ok := h.credential(ctx, w, userID, model.IntegrationCalendar)
	if !ok {
		return
	}
	scoped := h.calendar.WithTimeframe(tf).(*provider.CalendarClient)
	events, err := scoped.Upcoming(ctx, cred)
	if err != nil {
		writeProviderError(w, h.log, model.IntegrationCalendar, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"connected": true,
		"timeframe": tf,
		"events":    events,
		"count":     len(events),
	})
}

// GitHub GET /api/agent/github?user_id=[&repo=owner/name]
func (h *AgentHandler) GitHub(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respond.WriteBadRequest(w, "Missing user_id parameter")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cred, ok := h.credential(ctx, w, userID, model.IntegrationGitHub)
	if !ok {
		return
	}

	if repo := r.URL.Query().Get("repo"); repo != "" {
		details, err := h.github.Details(ctx, cred, repo)
		if err != nil {
			writeProviderError(w, h.log, model.IntegrationGitHub, err)
			return
		}
		respond.WriteJSON(w, http.StatusOK, map[string]any{
			"connected": true,
			"details":   details,
		})
		return
	}

	repos, err := h.github.Repos(ctx, cred)
	if err != nil {
		writeProviderError(w, h.log, model.IntegrationGitHub, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"connected": true,
		"repos":     repos,
		"count":     len(repos),
	})
}

// contextSnapshot is the combined cross-provider view for /api/context.
type contextSnapshot struct {
	Emails    []provider.Message       `json:"emails"`
	Events    []provider.UpcomingEvent `json:"events"`
	Repos     []provider.Repo          `json:"repos"`
	Errors    map[string]string        `json:"errors,omitempty"`
	Summary   string                   `json:"summary"`
	FetchedAt time.Time                `json:"fetchedAt"`
}

// Context GET /api/context?user_id=
// Fans out to gmail, today's calendar, and github concurrently. A provider
// failure is recorded in the errors map rather than failing the whole call.
func (h *AgentHandler) Context(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respond.WriteBadRequest(w, "Missing user_id parameter")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snap := contextSnapshot{
		Emails:    []provider.Message{},
		Events:    []provider.UpcomingEvent{},
		Repos:     []provider.Repo{},
		Errors:    map[string]string{},
		FetchedAt: h.now().UTC(),
	}

	done := make(chan struct{}, 3)
	var mu sync.Mutex
	recordErr := func(p model.IntegrationType, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case errors.Is(err, model.ErrNotFound), errors.Is(err, provider.ErrNotConnected):
			snap.Errors[string(p)] = "not connected"
		case provider.IsAuthExpired(err):
			snap.Errors[string(p)] = "authorization expired"
		default:
			snap.Errors[string(p)] = err.Error()
		}
	}

	go func() {
		defer func() { done <- struct{}{} }()
		cred, err := h.creds.Get(ctx, userID, model.IntegrationGmail)
		if err == nil {
			var msgs []provider.Message
			if msgs, err = h.gmail.Messages(ctx, cred, 10, false); err == nil {
				snap.Emails = msgs
				return
			}
		}
		recordErr(model.IntegrationGmail, err)
	}()
	go func() {
		defer func() { done <- struct{}{} }()
		cred, err := h.creds.Get(ctx, userID, model.IntegrationCalendar)
		if err == nil {
			scoped := h.calendar.WithTimeframe(provider.TimeframeToday).(*provider.CalendarClient)
			var evs []provider.UpcomingEvent
			if evs, err = scoped.Upcoming(ctx, cred); err == nil {
				snap.Events = evs
				return
			}
		}
		recordErr(model.IntegrationCalendar, err)
	}()
	go func() {
		defer func() { done <- struct{}{} }()
		cred, err := h.creds.Get(ctx, userID, model.IntegrationGitHub)
		if err == nil {
			var repos []provider.Repo
			if repos, err = h.github.Repos(ctx, cred); err == nil {
				snap.Repos = repos
				return
			}
		}
		recordErr(model.IntegrationGitHub, err)
	}()
	for i := 0; i < 3; i++ {
		<-done
	}

	if len(snap.Errors) == 0 {
		snap.Errors = nil
	}
	snap.Summary = h.buildSummary(&snap)
	respond.WriteJSON(w, http.StatusOK, snap)
}

// buildSummary renders a one-paragraph plain-text digest of the snapshot.
func (h *AgentHandler) buildSummary(snap *contextSnapshot) string {
	var parts []string
	unread := 0
	for _, m := range snap.Emails {
		if m.Unread {
			unread++
		}
	}
	if unread > 0 {
		parts = append(parts, fmt.Sprintf("You have %d unread email%s.", unread, plural(unread)))
	}
	if len(snap.Events) > 0 {
		next := snap.Events[0]
		if until := h.timeUntil(next.Start); until != "" {
			parts = append(parts, fmt.Sprintf("Next up: %q %s.", next.Title, until))
		} else {
			parts = append(parts, fmt.Sprintf("You have %d event%s today.", len(snap.Events), plural(len(snap.Events))))
		}
	}
	if len(snap.Repos) > 0 {
		parts = append(parts, fmt.Sprintf("%d active repositor%s on GitHub.", len(snap.Repos), pluralY(len(snap.Repos))))
	}
	if len(parts) == 0 {
		return "You're all caught up!"
	}
	return strings.Join(parts, " ")
}

// timeUntil renders the gap to an RFC 3339 start time, or "" when the event is
// all-day, malformed, or already started.
func (h *AgentHandler) timeUntil(start string) string {
	t, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return ""
	}
	d := t.Sub(h.now())
	if d <= 0 {
		return ""
	}
	if d < time.Hour {
		return fmt.Sprintf("in %d minutes", int(d.Minutes()))
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) - hours*60
	if mins == 0 {
		return fmt.Sprintf("in %d hour%s", hours, plural(hours))
	}
	return fmt.Sprintf("in %dh %dm", hours, mins)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
