package aggregator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybrief/daybrief/internal/intent"
	"github.com/daybrief/daybrief/internal/model"
	"github.com/daybrief/daybrief/internal/provider"
)

// fakeCreds returns a credential for every provider except those listed as
// disconnected.
type fakeCreds struct {
	disconnected map[model.IntegrationType]bool
	err          error
}

func (f *fakeCreds) Get(ctx context.Context, userID string, p model.IntegrationType) (*model.Credential, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.disconnected[p] {
		return nil, model.ErrNotFound
	}
	return &model.Credential{UserID: userID, Provider: p, AccessToken: "tok"}, nil
}

type fakeClient struct {
	typ    model.IntegrationType
	events []model.Event
	err    error
	delay  time.Duration
}

func (f *fakeClient) Type() model.IntegrationType { return f.typ }

func (f *fakeClient) Fetch(ctx context.Context, cred *model.Credential, workspaceID string) ([]model.Event, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.events, f.err
}

func event(id string, p model.IntegrationType, eventType, actor, title string, at time.Time) model.Event {
	return model.Event{
		ID:              id,
		IntegrationType: p,
		EventType:       eventType,
		Actor:           &actor,
		Title:           &title,
		OccurredAt:      at,
	}
}

func TestAggregateRunsProvidersConcurrently(t *testing.T) {
	base := time.Now()
	clients := []provider.Client{
		&fakeClient{typ: model.IntegrationGmail, delay: 100 * time.Millisecond,
			events: []model.Event{event("e1", model.IntegrationGmail, "email", "a", "t1", base)}},
		&fakeClient{typ: model.IntegrationGitHub, delay: 100 * time.Millisecond,
			events: []model.Event{event("e2", model.IntegrationGitHub, "commit", "b", "t2", base)}},
		&fakeClient{typ: model.IntegrationSlack, delay: 100 * time.Millisecond,
			events: []model.Event{event("e3", model.IntegrationSlack, "mention", "c", "t3", base)}},
	}
	agg := New(&fakeCreds{}, clients, time.Second, zerolog.Nop())

	start := time.Now()
	out, err := agg.Aggregate(context.Background(), intent.Generic, "u1")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Len(t, out.Events, 3)
	// Serial execution would take at least 300ms.
	assert.Less(t, elapsed, 250*time.Millisecond, "providers must be fetched concurrently")
}

func TestAggregatePartialFailure(t *testing.T) {
	base := time.Now()
	clients := []provider.Client{
		&fakeClient{typ: model.IntegrationGmail,
			events: []model.Event{event("e1", model.IntegrationGmail, "email", "a", "t1", base)}},
		&fakeClient{typ: model.IntegrationGitHub, err: errors.New("boom")},
		&fakeClient{typ: model.IntegrationSlack,
			err: &provider.APIError{Provider: model.IntegrationSlack, StatusCode: 401}},
		&fakeClient{typ: model.IntegrationNotion},
	}
	agg := New(&fakeCreds{disconnected: map[model.IntegrationType]bool{}}, clients, time.Second, zerolog.Nop())

	out, err := agg.Aggregate(context.Background(), intent.Generic, "u1")
	require.NoError(t, err, "one provider failing must not fail aggregation")

	assert.Len(t, out.Events, 1)
	assert.Equal(t, []model.IntegrationType{model.IntegrationGmail}, out.Sources)

	byProvider := map[model.IntegrationType]Status{}
	for _, o := range out.Outcomes {
		byProvider[o.Provider] = o.Status
	}
	assert.Equal(t, StatusOK, byProvider[model.IntegrationGmail])
	assert.Equal(t, StatusFailed, byProvider[model.IntegrationGitHub])
	assert.Equal(t, StatusAuthExpired, byProvider[model.IntegrationSlack])
	assert.Equal(t, StatusEmpty, byProvider[model.IntegrationNotion])
}

func TestAggregateNotConnected(t *testing.T) {
	clients := []provider.Client{
		&fakeClient{typ: model.IntegrationGmail},
		&fakeClient{typ: model.IntegrationGitHub},
	}
	creds := &fakeCreds{disconnected: map[model.IntegrationType]bool{
		model.IntegrationGmail:  true,
		model.IntegrationGitHub: true,
	}}
	agg := New(creds, clients, time.Second, zerolog.Nop())

	out, err := agg.Aggregate(context.Background(), intent.Generic, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, out.ConnectedCount())
	for _, o := range out.Outcomes {
		assert.Equal(t, StatusNotConnected, o.Status)
	}
}

func TestAggregatePerCallTimeout(t *testing.T) {
	base := time.Now()
	clients := []provider.Client{
		&fakeClient{typ: model.IntegrationGmail, delay: 500 * time.Millisecond,
			events: []model.Event{event("slow", model.IntegrationGmail, "email", "a", "t", base)}},
		&fakeClient{typ: model.IntegrationGitHub,
			events: []model.Event{event("fast", model.IntegrationGitHub, "commit", "b", "t", base)}},
	}
	agg := New(&fakeCreds{}, clients, 50*time.Millisecond, zerolog.Nop())

	out, err := agg.Aggregate(context.Background(), intent.Generic, "u1")
	require.NoError(t, err)

	byProvider := map[model.IntegrationType]Status{}
	for _, o := range out.Outcomes {
		byProvider[o.Provider] = o.Status
	}
	assert.Equal(t, StatusFailed, byProvider[model.IntegrationGmail], "slow provider times out")
	assert.Equal(t, StatusOK, byProvider[model.IntegrationGitHub], "fast provider unaffected")
}

func TestAggregateSortsEventsNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clients := []provider.Client{
		&fakeClient{typ: model.IntegrationGmail, events: []model.Event{
			event("old", model.IntegrationGmail, "email", "a", "old", base.Add(-2*time.Hour)),
			event("new", model.IntegrationGmail, "email", "a", "new", base),
		}},
		&fakeClient{typ: model.IntegrationGitHub, events: []model.Event{
			event("mid", model.IntegrationGitHub, "commit", "b", "mid", base.Add(-time.Hour)),
		}},
	}
	agg := New(&fakeCreds{}, clients, time.Second, zerolog.Nop())

	out, err := agg.Aggregate(context.Background(), intent.Generic, "u1")
	require.NoError(t, err)
	require.Len(t, out.Events, 3)
	assert.Equal(t, "new", out.Events[0].ID)
	assert.Equal(t, "mid", out.Events[1].ID)
	assert.Equal(t, "old", out.Events[2].ID)

	lines := strings.Split(out.TextContext, "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "[gmail] email by a at "), lines[0])
	assert.True(t, strings.HasSuffix(lines[0], ": new"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "[github] commit by b at "), lines[1])
}

func TestEventsToTextMissingFields(t *testing.T) {
	at := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	got := EventsToText([]model.Event{{
		IntegrationType: model.IntegrationSlack,
		EventType:       "mention",
		OccurredAt:      at,
	}})
	assert.True(t, strings.HasPrefix(got, "[slack] mention by unknown at "), got)
	assert.True(t, strings.HasSuffix(got, ": "), got)
}

func TestDailyBriefingScopesCalendarToToday(t *testing.T) {
	cal := provider.NewCalendarClient("http://127.0.0.1:0", time.Second)
	agg := New(&fakeCreds{}, []provider.Client{cal}, time.Second, zerolog.Nop())

	scoped := agg.scopedClients(intent.DailyBriefing)
	require.Len(t, scoped, 1)
	assert.NotSame(t, provider.Client(cal), scoped[0], "calendar client must be rescoped for daily briefings")

	unscoped := agg.scopedClients(intent.Generic)
	assert.Same(t, provider.Client(cal), unscoped[0])
}
