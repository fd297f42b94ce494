// Package aggregator fans a single request out to every provider client
// concurrently and fans the settled outcomes back into one ordered event
// stream. One slow or broken provider never blocks or fails the others.
package aggregator

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/daybrief/daybrief/internal/intent"
	"github.com/daybrief/daybrief/internal/metrics"
	"github.com/daybrief/daybrief/internal/model"
	"github.com/daybrief/daybrief/internal/provider"
)

// textTimeLayout renders event timestamps inside the flattened text context.
const textTimeLayout = "1/2/2006, 3:04:05 PM"

// CredentialSource supplies stored provider tokens, read-only.
type CredentialSource interface {
	Get(ctx context.Context, userID string, p model.IntegrationType) (*model.Credential, error)
}

// Status classifies one provider's settled outcome.
type Status string

const (
	StatusOK           Status = "ok"
	StatusEmpty        Status = "empty"
	StatusNotConnected Status = "not_connected"
	StatusAuthExpired  Status = "auth_expired"
	StatusFailed       Status = "failed"
)

// Outcome is one provider's settled result. Failure is a value here, never a
// propagated error.
type Outcome struct {
	Provider model.IntegrationType `json:"provider"`
	Status   Status                `json:"status"`
	Events   []model.Event         `json:"-"`
	Err      error                 `json:"-"`
}

// AggregatedContext is the merged view handed to synthesis.
type AggregatedContext struct {
	Events      []model.Event
	TextContext string
	Sources     []model.IntegrationType
	Outcomes    []Outcome
}

// ConnectedCount reports how many providers had a usable credential.
func (a *AggregatedContext) ConnectedCount() int {
	n := 0
	for _, o := range a.Outcomes {
		if o.Status != StatusNotConnected {
			n++
		}
	}
	return n
}

// Aggregator coordinates the provider fan-out. It holds no per-request state.
type Aggregator struct {
	creds   CredentialSource
	clients []provider.Client
	timeout time.Duration
	log     zerolog.Logger
}

// New constructs an aggregator over the given clients. timeout bounds each
// individual provider call, not the whole fan-out.
func New(creds CredentialSource, clients []provider.Client, timeout time.Duration, log zerolog.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Aggregator{creds: creds, clients: clients, timeout: timeout, log: log}
}

// Aggregate fetches from every provider concurrently, waits for all to settle,
// and merges successful results sorted by occurred_at descending (ties keep
// provider registration order). Even a single provider's data is enough for
// aggregation to succeed.
func (a *Aggregator) Aggregate(ctx context.Context, in intent.Intent, workspaceID string) (*AggregatedContext, error) {
	clients := a.scopedClients(in)
	outcomes := make([]Outcome, len(clients))

	done := make(chan int, len(clients))
	for i, c := range clients {
		go func(i int, c provider.Client) {
			defer func() { done <- i }()
			outcomes[i] = a.fetchOne(ctx, c, workspaceID)
		}(i, c)
	}
	for range clients {
		<-done
	}

	out := &AggregatedContext{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Status == StatusOK {
			out.Events = append(out.Events, o.Events...)
			out.Sources = append(out.Sources, o.Provider)
		}
	}

	sort.SliceStable(out.Events, func(i, j int) bool {
		return out.Events[i].OccurredAt.After(out.Events[j].OccurredAt)
	})
	out.TextContext = EventsToText(out.Events)

	a.log.Debug().
		Str("workspace", workspaceID).
		Str("intent", string(in)).
		Int("events", len(out.Events)).
		Int("sources", len(out.Sources)).
		Msg("aggregation settled")

	return out, nil
}

// fetchOne runs one provider call under its own deadline and turns every
// failure mode into a tagged outcome.
func (a *Aggregator) fetchOne(ctx context.Context, c provider.Client, workspaceID string) Outcome {
	p := c.Type()
	out := Outcome{Provider: p}

	cred, err := a.creds.Get(ctx, workspaceID, p)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		out.Status, out.Err = StatusFailed, err
		metrics.ProviderFetchTotal.WithLabelValues(string(p), string(out.Status)).Inc()
		return out
	}
	if cred == nil {
		out.Status = StatusNotConnected
		metrics.ProviderFetchTotal.WithLabelValues(string(p), string(out.Status)).Inc()
		return out
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	events, err := c.Fetch(callCtx, cred, workspaceID)
	metrics.ProviderFetchSeconds.WithLabelValues(string(p)).Observe(time.Since(start).Seconds())

	switch {
	case err == nil && len(events) > 0:
		out.Status, out.Events = StatusOK, events
	case err == nil:
		out.Status = StatusEmpty
	case errors.Is(err, provider.ErrNotConnected):
		out.Status = StatusNotConnected
	case provider.IsAuthExpired(err):
		out.Status, out.Err = StatusAuthExpired, err
		a.log.Warn().Str("provider", string(p)).Msg("credential rejected, reconnect required")
	default:
		out.Status, out.Err = StatusFailed, err
		a.log.Warn().Err(err).Str("provider", string(p)).Msg("provider fetch failed")
	}
	metrics.ProviderFetchTotal.WithLabelValues(string(p), string(out.Status)).Inc()
	return out
}

// scopedClients applies intent bias: a daily briefing always asks the calendar
// for today, not the week.
func (a *Aggregator) scopedClients(in intent.Intent) []provider.Client {
	if in != intent.DailyBriefing {
		return a.clients
	}
	scoped := make([]provider.Client, len(a.clients))
	for i, c := range a.clients {
		if tf, ok := c.(interface {
			WithTimeframe(provider.Timeframe) provider.Client
		}); ok {
			scoped[i] = tf.WithTimeframe(provider.TimeframeToday)
		} else {
			scoped[i] = c
		}
	}
	return scoped
}

// EventsToText flattens events into one line each, in the given order. This is
// the raw material handed to synthesis.
func EventsToText(events []model.Event) string {
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		actor := "unknown"
		if ev.Actor != nil && *ev.Actor != "" {
			actor = *ev.Actor
		}
		title := ""
		if ev.Title != nil {
			title = *ev.Title
		}
		lines = append(lines, "["+string(ev.IntegrationType)+"] "+ev.EventType+
			" by "+actor+" at "+ev.OccurredAt.Local().Format(textTimeLayout)+": "+title)
	}
	return strings.Join(lines, "\n")
}
