package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Metadata keys written by the bridge and the reconciliation matcher.
const (
	MetaCreditDeductionFailed = "creditDeductionFailed"
	MetaWasTransferred        = "wasTransferred"
	MetaTransferredTo         = "transferredTo"
	MetaBatchCallID           = "batchCallId"
	MetaTerminationReason     = "terminationReason"
	MetaFailureReason         = "failureReason"
)

// Metadata is a free-form jsonb map for vendor-specific flags.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
	if len(data) == 0 {
		*m = Metadata{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// CallRecord is the persistent record of one call. It is mutated by several
// independent writers (status callbacks, the live relay's transcript writer,
// the reconciliation matcher, the credit ledger), so every writer uses
// conditional partial updates rather than blind overwrites.
type CallRecord struct {
	ID             string  `db:"id" json:"id"`
	ConversationID *string `db:"conversation_id" json:"conversationId,omitempty"`
	TelephonyLegID *string `db:"telephony_leg_id" json:"telephonyLegId,omitempty"`

	FromNumber    string  `db:"from_number" json:"fromNumber"`
	ToNumber      string  `db:"to_number" json:"toNumber"`
	DisplayNumber *string `db:"display_number" json:"displayNumber,omitempty"`
	ContactName   *string `db:"contact_name" json:"contactName,omitempty"`

	Direction CallDirection `db:"direction" json:"direction"`
	Status    CallStatus    `db:"status" json:"status"`

	Transcript   *string     `db:"transcript" json:"transcript,omitempty"`
	Summary      *string     `db:"summary" json:"summary,omitempty"`
	LeadRating   *LeadRating `db:"lead_rating" json:"leadRating,omitempty"`
	Sentiment    *string     `db:"sentiment" json:"sentiment,omitempty"`
	RecordingURL *string     `db:"recording_url" json:"recordingUrl,omitempty"`

	DurationSeconds int     `db:"duration_seconds" json:"durationSeconds"`
	CreditsDeducted bool    `db:"credits_deducted" json:"creditsDeducted"`
	CreditsAmount   float64 `db:"credits_amount" json:"creditsAmount"`

	UserID       string  `db:"user_id" json:"userId"`
	CampaignID   *string `db:"campaign_id" json:"campaignId,omitempty"`
	ConnectionID *string `db:"connection_id" json:"connectionId,omitempty"`

	Metadata Metadata `db:"metadata" json:"metadata"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateCallParams struct {
	ID             string
	ConversationID *string
	TelephonyLegID *string
	FromNumber     string
	ToNumber       string
	DisplayNumber  *string
	ContactName    *string
	Direction      CallDirection
	Status         CallStatus
	UserID         string
	CampaignID     *string
	ConnectionID   *string
	Metadata       Metadata
}

// CompletionFill carries the fields a vendor completion event may contribute.
// Empty values are skipped; populated record fields are never overwritten.
type CompletionFill struct {
	DurationSeconds int
	Transcript      *string
	Summary         *string
	Sentiment       *string
	RecordingURL    *string
	Status          CallStatus
}

// Turn is one utterance in a live conversation.
type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// FormatTurns renders turns as role-tagged lines in utterance order. Both the
// live relay and the reconciliation path store transcripts in this shape.
func FormatTurns(turns []Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Text)
	}
	return b.String()
}
