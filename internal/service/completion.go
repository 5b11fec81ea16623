package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/voxlane/call-bridge-go/internal/errors"
	"github.com/voxlane/call-bridge-go/internal/model"
	"github.com/voxlane/call-bridge-go/internal/repository"
)

// Vendor completion event types.
const (
	EventPostCallTranscription = "post_call_transcription"
	EventPostCallAudio         = "post_call_audio"
	EventCallInitiationFailure = "call_initiation_failure"
)

// completionDedupeTTL bounds the redis dedupe window for vendor redeliveries.
const completionDedupeTTL = 24 * time.Hour

// EventDeduper tracks which completion events have already been applied.
// internal/redis.Client implements it over SETNX/DEL.
type EventDeduper interface {
	ClaimCompletionEvent(ctx context.Context, conversationID, eventType string, ttl time.Duration) (bool, error)
	ReleaseCompletionEvent(ctx context.Context, conversationID, eventType string) error
}

// CompletionProcessor orchestrates one vendor completion event: dedupe, match,
// fill, bill, classify, finalize the flow execution, notify the customer.
// Billing failure is a hard stop; everything after it is skipped.
type CompletionProcessor struct {
	matcher *Matcher
	calls   repository.CallRepository
	flows   repository.FlowExecutionRepository
	ledger  CreditLedger
	sender  *WebhookSender
	dedupe  EventDeduper

	pricePerMinute float64
}

func NewCompletionProcessor(
	matcher *Matcher,
	calls repository.CallRepository,
	flows repository.FlowExecutionRepository,
	ledger CreditLedger,
	sender *WebhookSender,
	dedupe EventDeduper,
	pricePerMinute float64,
) *CompletionProcessor {
	return &CompletionProcessor{
		matcher: matcher,
		calls:   calls,
		flows:   flows,
		ledger:  ledger,
		sender:  sender,
		dedupe:  dedupe,

		pricePerMinute: pricePerMinute,
	}
}

// Process handles one event. Unreconcilable and duplicate events return nil so
// the handler acknowledges them and the vendor stops retrying; only transient
// infrastructure errors propagate.
func (p *CompletionProcessor) Process(ctx context.Context, ev CompletionEvent) error {
	if !p.claimEvent(ctx, ev) {
		log.Debug().
			Str("conversation_id", ev.ConversationID).
			Str("type", ev.Type).
			Msg("duplicate completion event skipped")
		return nil
	}

	if err := p.apply(ctx, ev); err != nil {
		// The claim must not outlive a failed attempt: the handler answers
		// non-2xx and the vendor redelivers, so the redelivery needs a fresh
		// claim to be processed instead of skipped as a duplicate.
		p.releaseEvent(ctx, ev)
		return err
	}
	return nil
}

func (p *CompletionProcessor) apply(ctx context.Context, ev CompletionEvent) error {
	rec, err := p.matcher.Match(ctx, ev)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeUnreconcilable {
			log.Warn().
				Str("conversation_id", ev.ConversationID).
				Str("engine_agent_id", ev.EngineAgentID).
				Str("type", ev.Type).
				Msg("dropping unreconcilable completion event")
			return nil
		}
		return err
	}

	switch ev.Type {
	case EventCallInitiationFailure:
		return p.processInitiationFailure(ctx, rec)
	case EventPostCallAudio:
		return p.processAudio(ctx, rec, ev)
	default:
		return p.processTranscription(ctx, rec, ev)
	}
}

func (p *CompletionProcessor) claimEvent(ctx context.Context, ev CompletionEvent) bool {
	if p.dedupe == nil || ev.ConversationID == "" {
		return true
	}
	fresh, err := p.dedupe.ClaimCompletionEvent(ctx, ev.ConversationID, ev.Type, completionDedupeTTL)
	if err != nil {
		// Dedupe is an optimization; the only-fill-empty writes and the ledger
		// guard keep duplicates harmless when redis is down.
		log.Warn().Err(err).
			Str("conversation_id", ev.ConversationID).
			Str("type", ev.Type).
			Msg("completion dedupe check failed")
		return true
	}
	return fresh
}

func (p *CompletionProcessor) releaseEvent(ctx context.Context, ev CompletionEvent) {
	if p.dedupe == nil || ev.ConversationID == "" {
		return
	}
	if err := p.dedupe.ReleaseCompletionEvent(ctx, ev.ConversationID, ev.Type); err != nil {
		log.Warn().Err(err).
			Str("conversation_id", ev.ConversationID).
			Str("type", ev.Type).
			Msg("completion dedupe release failed")
	}
}

func (p *CompletionProcessor) processInitiationFailure(ctx context.Context, rec *model.CallRecord) error {
	if err := p.calls.MarkFailed(ctx, rec.ID, "engine conversation initiation failed"); err != nil {
		return err
	}
	log.Info().Str("call_id", rec.ID).Msg("call marked failed after initiation failure")
	return nil
}

func (p *CompletionProcessor) processAudio(ctx context.Context, rec *model.CallRecord, ev CompletionEvent) error {
	if ev.RecordingURL == "" {
		return nil
	}
	fill := model.CompletionFill{Status: rec.Status}
	fill.RecordingURL = &ev.RecordingURL
	return p.calls.FillCompletion(ctx, rec.ID, fill)
}

func (p *CompletionProcessor) processTranscription(ctx context.Context, rec *model.CallRecord, ev CompletionEvent) error {
	fill := model.CompletionFill{
		DurationSeconds: ev.DurationSeconds,
		Status:          model.CallStatusCompleted,
	}
	if len(ev.Turns) > 0 {
		transcript := model.FormatTurns(ev.Turns)
		fill.Transcript = &transcript
	}
	if ev.Summary != "" {
		fill.Summary = &ev.Summary
	}
	if ev.Sentiment != "" {
		fill.Sentiment = &ev.Sentiment
	}
	if ev.RecordingURL != "" {
		fill.RecordingURL = &ev.RecordingURL
	}
	if err := p.calls.FillCompletion(ctx, rec.ID, fill); err != nil {
		return err
	}

	result, err := p.ledger.Deduct(ctx, rec.UserID, rec.ID, ev.DurationSeconds, p.pricePerMinute)
	if err != nil || !result.Success {
		if markErr := p.calls.MarkFailed(ctx, rec.ID, "credit deduction failed"); markErr != nil {
			log.Error().Err(markErr).Str("call_id", rec.ID).Msg("failed to mark call failed")
		}
		if metaErr := p.calls.MergeMetadata(ctx, rec.ID, model.Metadata{model.MetaCreditDeductionFailed: true}); metaErr != nil {
			log.Error().Err(metaErr).Str("call_id", rec.ID).Msg("failed to flag deduction failure")
		}
		log.Error().Err(err).Str("call_id", rec.ID).Msg("billing failed, aborting completion processing")
		return nil
	}

	if rec.LeadRating == nil && len(ev.Turns) > 0 {
		rating := ClassifyLead(ev.Turns)
		if err := p.calls.SetLeadRatingIfEmpty(ctx, rec.ID, rating); err != nil {
			log.Warn().Err(err).Str("call_id", rec.ID).Msg("failed to store lead rating")
		}
	}

	if p.flows != nil {
		if exec, err := p.flows.FindByCallID(ctx, rec.ID); err != nil {
			log.Warn().Err(err).Str("call_id", rec.ID).Msg("flow execution lookup failed")
		} else if exec != nil && exec.Status != model.FlowStatusCompleted {
			if err := p.flows.Complete(ctx, exec.ID, nil, nil); err != nil {
				log.Warn().Err(err).Str("call_id", rec.ID).Msg("failed to finalize flow execution")
			}
		}
	}

	if p.sender.Enabled() {
		event := WebhookEvent{
			Type:      "call.completed",
			CallID:    rec.ID,
			Timestamp: time.Now().UTC(),
			Data: map[string]any{
				"conversationId":  ev.ConversationID,
				"durationSeconds": ev.DurationSeconds,
				"status":          string(model.CallStatusCompleted),
				"summary":         ev.Summary,
			},
		}
		if err := p.sender.Deliver(ctx, event); err != nil {
			log.Error().Err(err).Str("call_id", rec.ID).Msg("customer webhook delivery exhausted retries")
		}
	}

	return nil
}
