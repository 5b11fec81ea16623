package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/voxlane/call-bridge-go/internal/model"
)

type CallRepository interface {
	Create(ctx context.Context, params model.CreateCallParams) (*model.CallRecord, error)
	FindByID(ctx context.Context, id string) (*model.CallRecord, error)
	FindByConversationID(ctx context.Context, conversationID string) (*model.CallRecord, error)

	// ClaimConversationID stamps the vendor conversation id onto a record, but
	// only if none is set yet. Returns false when the record already carries one.
	ClaimConversationID(ctx context.Context, id, conversationID string) (bool, error)

	FindLatestPendingOutboundByAgentPhone(ctx context.Context, agentID, phone string) (*model.CallRecord, error)
	FindPendingOutboundByBatchID(ctx context.Context, batchID string) ([]model.CallRecord, error)

	// FillCompletion writes completion-event fields, filling only columns that
	// are currently empty. Populated duration/transcript/summary/recording are
	// never overwritten; this is the stand-in for a transactional lock between
	// the relay, status callbacks and the reconciliation matcher.
	FillCompletion(ctx context.Context, id string, fill model.CompletionFill) error

	UpdateStatus(ctx context.Context, id string, status model.CallStatus) error
	UpdateStatusFromCallback(ctx context.Context, id string, status model.CallStatus, durationSeconds int, recordingURL *string) error
	SetTelephonyLegID(ctx context.Context, id, legID string) error

	// UpdateTranscriptIfNotMeaningful replaces the stored transcript only when
	// the existing one lacks at least one turn from each participant.
	UpdateTranscriptIfNotMeaningful(ctx context.Context, id, transcript string) (bool, error)

	SetLeadRatingIfEmpty(ctx context.Context, id string, rating model.LeadRating) error
	MergeMetadata(ctx context.Context, id string, meta model.Metadata) error
	MarkFailed(ctx context.Context, id, reason string) error
	MarkStalePendingNoAnswer(ctx context.Context, olderThan time.Time) (int64, error)
}

type callRepo struct {
	db *sqlx.DB
}

func NewCallRepository(db *sqlx.DB) CallRepository {
	return &callRepo{db: db}
}

func (r *callRepo) Create(ctx context.Context, params model.CreateCallParams) (*model.CallRecord, error) {
	if params.Metadata == nil {
		params.Metadata = model.Metadata{}
	}
	var call model.CallRecord
	err := r.db.GetContext(ctx, &call, `
		INSERT INTO calls
			(id, conversation_id, telephony_leg_id, from_number, to_number, display_number,
			 contact_name, direction, status, user_id, campaign_id, connection_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING *
	`, params.ID, params.ConversationID, params.TelephonyLegID, params.FromNumber,
		params.ToNumber, params.DisplayNumber, params.ContactName, params.Direction,
		params.Status, params.UserID, params.CampaignID, params.ConnectionID, params.Metadata)
	if err != nil {
		return nil, err
	}
	return &call, nil
}

func (r *callRepo) FindByID(ctx context.Context, id string) (*model.CallRecord, error) {
	var call model.CallRecord
	err := r.db.GetContext(ctx, &call, `SELECT * FROM calls WHERE id = $1`, id)
	return HandleNotFound(&call, err)
}

func (r *callRepo) FindByConversationID(ctx context.Context, conversationID string) (*model.CallRecord, error) {
	var call model.CallRecord
	err := r.db.GetContext(ctx, &call, `
		SELECT * FROM calls WHERE conversation_id = $1
	`, conversationID)
	return HandleNotFound(&call, err)
}

func (r *callRepo) ClaimConversationID(ctx context.Context, id, conversationID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE calls SET conversation_id = $2, updated_at = NOW()
		WHERE id = $1 AND conversation_id IS NULL
	`, id, conversationID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *callRepo) FindLatestPendingOutboundByAgentPhone(ctx context.Context, agentID, phone string) (*model.CallRecord, error) {
	var call model.CallRecord
	err := r.db.GetContext(ctx, &call, `
		SELECT c.* FROM calls c
		JOIN campaigns cam ON cam.id = c.campaign_id
		WHERE cam.agent_id = $1
		  AND c.to_number = $2
		  AND c.direction = 'outgoing'
		  AND c.status = 'pending'
		ORDER BY c.created_at DESC
		LIMIT 1
	`, agentID, phone)
	return HandleNotFound(&call, err)
}

func (r *callRepo) FindPendingOutboundByBatchID(ctx context.Context, batchID string) ([]model.CallRecord, error) {
	var calls []model.CallRecord
	err := r.db.SelectContext(ctx, &calls, `
		SELECT * FROM calls
		WHERE metadata->>'batchCallId' = $1
		  AND direction = 'outgoing'
		  AND status = 'pending'
		ORDER BY created_at DESC
	`, batchID)
	return calls, err
}

func (r *callRepo) FillCompletion(ctx context.Context, id string, fill model.CompletionFill) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE calls SET
			status = $2,
			duration_seconds = CASE WHEN duration_seconds = 0 THEN $3 ELSE duration_seconds END,
			transcript = COALESCE(transcript, $4),
			summary = COALESCE(summary, $5),
			sentiment = COALESCE(sentiment, $6),
			recording_url = COALESCE(recording_url, $7),
			updated_at = NOW()
		WHERE id = $1
	`, id, fill.Status, fill.DurationSeconds, fill.Transcript, fill.Summary,
		fill.Sentiment, fill.RecordingURL)
	return err
}

func (r *callRepo) UpdateStatus(ctx context.Context, id string, status model.CallStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE calls SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	return err
}

func (r *callRepo) UpdateStatusFromCallback(ctx context.Context, id string, status model.CallStatus, durationSeconds int, recordingURL *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE calls SET
			status = $2,
			duration_seconds = CASE WHEN duration_seconds = 0 THEN $3 ELSE duration_seconds END,
			recording_url = COALESCE(recording_url, $4),
			updated_at = NOW()
		WHERE id = $1
	`, id, status, durationSeconds, recordingURL)
	return err
}

func (r *callRepo) SetTelephonyLegID(ctx context.Context, id, legID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE calls SET telephony_leg_id = COALESCE(telephony_leg_id, $2), updated_at = NOW()
		WHERE id = $1
	`, id, legID)
	return err
}

func (r *callRepo) UpdateTranscriptIfNotMeaningful(ctx context.Context, id, transcript string) (bool, error) {
	// A transcript is "meaningful" once it carries at least one turn per role;
	// vendor-synced transcripts must not be clobbered by locally reconstructed ones.
	res, err := r.db.ExecContext(ctx, `
		UPDATE calls SET transcript = $2, updated_at = NOW()
		WHERE id = $1
		  AND (transcript IS NULL
		       OR NOT (transcript LIKE '%user:%' AND transcript LIKE '%agent:%'))
	`, id, transcript)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *callRepo) SetLeadRatingIfEmpty(ctx context.Context, id string, rating model.LeadRating) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE calls SET lead_rating = COALESCE(lead_rating, $2), updated_at = NOW()
		WHERE id = $1
	`, id, rating)
	return err
}

func (r *callRepo) MergeMetadata(ctx context.Context, id string, meta model.Metadata) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE calls SET metadata = metadata || $2, updated_at = NOW() WHERE id = $1
	`, id, meta)
	return err
}

func (r *callRepo) MarkFailed(ctx context.Context, id, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE calls SET
			status = 'failed',
			metadata = metadata || $2,
			updated_at = NOW()
		WHERE id = $1
	`, id, model.Metadata{model.MetaFailureReason: reason})
	return err
}

func (r *callRepo) MarkStalePendingNoAnswer(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE calls SET status = 'no-answer', updated_at = NOW()
		WHERE status = 'pending' AND created_at < $1
	`, olderThan)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
