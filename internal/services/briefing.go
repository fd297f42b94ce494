package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/daybrief/daybrief/internal/aggregator"
	"github.com/daybrief/daybrief/internal/assembler"
	"github.com/daybrief/daybrief/internal/intent"
	"github.com/daybrief/daybrief/internal/metrics"
	"github.com/daybrief/daybrief/internal/model"
	"github.com/daybrief/daybrief/internal/store"
	"github.com/daybrief/daybrief/internal/synth"
)

// defaultBriefingQuery drives the parameterless "generate today's briefing"
// trigger through the same pipeline as free-text queries.
const defaultBriefingQuery = "What do I need to care about today?"

// BriefingService orchestrates the full pipeline: classify, aggregate,
// synthesize, assemble, and log the invocation.
type BriefingService struct {
	agg   *aggregator.Aggregator
	synth synth.Synthesizer
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewBriefingService(agg *aggregator.Aggregator, s synth.Synthesizer, st store.Store, log zerolog.Logger) *BriefingService {
	return &BriefingService{agg: agg, synth: s, store: st, log: log, now: time.Now}
}

// Query runs the pipeline for a free-text query.
func (b *BriefingService) Query(ctx context.Context, queryText, workspaceID string) (*model.BriefingResponse, error) {
	start := b.now()
	in := intent.Classify(queryText)

	agg, err := b.agg.Aggregate(ctx, in, workspaceID)
	if err != nil {
		return nil, err
	}

	briefing, err := b.synth.Synthesize(ctx, agg)
	if err != nil {
		// Schema violation is fatal for the request; a malformed briefing
		// must never reach consumers.
		return nil, err
	}

	resp := assembler.Assemble(briefing, agg.Events)
	metrics.BriefingsGeneratedTotal.WithLabelValues(string(in)).Inc()

	b.recordQueryLog(ctx, queryText, workspaceID, in, resp, b.now().Sub(start))
	return resp, nil
}

// DailyBriefing runs the pipeline with the canonical daily trigger.
func (b *BriefingService) DailyBriefing(ctx context.Context, workspaceID string) (*model.BriefingResponse, error) {
	return b.Query(ctx, defaultBriefingQuery, workspaceID)
}

// recordQueryLog persists the invocation best-effort; a logging failure never
// fails the request.
func (b *BriefingService) recordQueryLog(ctx context.Context, queryText, workspaceID string, in intent.Intent, resp *model.BriefingResponse, latency time.Duration) {
	if b.store == nil {
		return
	}
	intentStr := string(in)
	latencyMs := latency.Milliseconds()
	ql := &model.QueryLog{
		ID:               uuid.NewString(),
		WorkspaceID:      workspaceID,
		QueryText:        queryText,
		Intent:           &intentStr,
		ResponseText:     &resp.Narrative,
		InputTokens:      &resp.TokenStats.InputTokens,
		OutputTokens:     &resp.TokenStats.OutputTokens,
		CompressionRatio: resp.TokenStats.CompressionRatio,
		LatencyMs:        &latencyMs,
		CreatedAt:        b.now().UTC(),
	}
	if err := b.store.QueryLogs().Insert(ctx, ql); err != nil {
		b.log.Warn().Err(err).Str("workspace", workspaceID).Msg("query log insert failed")
	}
}
