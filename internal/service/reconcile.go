package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/voxlane/call-bridge-go/internal/errors"
	"github.com/voxlane/call-bridge-go/internal/model"
	"github.com/voxlane/call-bridge-go/internal/repository"
)

// CompletionEvent is a normalized vendor completion payload.
type CompletionEvent struct {
	Type            string
	ConversationID  string
	EngineAgentID   string
	DurationSeconds int
	Turns           []model.Turn
	Summary         string
	Sentiment       string
	RecordingURL    string
	FromNumber      string
	ToNumber        string
	BatchCallID     string
}

// Matcher binds a completion event to a call record. The vendor and the
// telephony leg are provisioned by independent systems, so the conversation id
// may not be stamped on any record yet; the matcher walks a prioritized chain
// of fallbacks, first match wins.
type Matcher struct {
	calls       repository.CallRepository
	agents      repository.AgentRepository
	campaigns   repository.CampaignRepository
	connections repository.PhoneConnectionRepository
}

func NewMatcher(
	calls repository.CallRepository,
	agents repository.AgentRepository,
	campaigns repository.CampaignRepository,
	connections repository.PhoneConnectionRepository,
) *Matcher {
	return &Matcher{
		calls:       calls,
		agents:      agents,
		campaigns:   campaigns,
		connections: connections,
	}
}

// Match resolves the call record for an event. Returns an unreconcilable
// error when no identifier in the event can be tied to anything we know.
func (m *Matcher) Match(ctx context.Context, ev CompletionEvent) (*model.CallRecord, error) {
	// 1. Exact conversation id. Duplicate deliveries for an already-matched
	// conversation resolve here.
	if ev.ConversationID != "" {
		rec, err := m.calls.FindByConversationID(ctx, ev.ConversationID)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
	}

	var agent *model.Agent
	if ev.EngineAgentID != "" {
		var err error
		agent, err = m.agents.FindByEngineAgentID(ctx, ev.EngineAgentID)
		if err != nil {
			return nil, err
		}
	}

	// 2. Contact-registered agents dial one engine conversation per outbound
	// contact, so the newest pending record for the same destination is safe
	// to claim.
	if agent != nil && agent.Type.IsContactRegistered() && ev.ToNumber != "" {
		rec, err := m.calls.FindLatestPendingOutboundByAgentPhone(ctx, agent.ID, ev.ToNumber)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			log.Info().
				Str("call_id", rec.ID).
				Str("conversation_id", ev.ConversationID).
				Str("strategy", "agent-phone").
				Msg("completion event reconciled")
			return m.claim(ctx, rec, ev.ConversationID)
		}
	}

	// 3. Batch-job fallback: exact phone match among the batch's pending
	// records, else the most recent.
	if ev.BatchCallID != "" {
		candidates, err := m.calls.FindPendingOutboundByBatchID(ctx, ev.BatchCallID)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			picked := &candidates[0]
			if ev.ToNumber != "" {
				for i := range candidates {
					if candidates[i].ToNumber == ev.ToNumber {
						picked = &candidates[i]
						break
					}
				}
			}
			log.Info().
				Str("call_id", picked.ID).
				Str("batch_call_id", ev.BatchCallID).
				Str("strategy", "batch").
				Msg("completion event reconciled")
			return m.claim(ctx, picked, ev.ConversationID)
		}
	}

	// 4. Incoming agents have no pre-created record at all; build one from the
	// event, attached to the connection whose number was dialed.
	if agent != nil && agent.Type == model.AgentTypeIncoming {
		return m.createIncoming(ctx, agent, ev)
	}

	// 5. Outbound agents get a fallback record hung off their most recently
	// started campaign.
	if agent != nil && agent.Type.IsOutbound() {
		return m.createOutboundFallback(ctx, agent, ev)
	}

	return nil, apperrors.Unreconcilable("no agent, phone number or batch id matched")
}

// claim stamps the conversation id onto the record if it is still unset. A
// lost race means another delivery already claimed it; the stamped record wins.
func (m *Matcher) claim(ctx context.Context, rec *model.CallRecord, conversationID string) (*model.CallRecord, error) {
	if conversationID == "" {
		return rec, nil
	}

	claimed, err := m.calls.ClaimConversationID(ctx, rec.ID, conversationID)
	if err != nil {
		return nil, err
	}
	if claimed {
		rec.ConversationID = &conversationID
		return rec, nil
	}

	if existing, err := m.calls.FindByConversationID(ctx, conversationID); err == nil && existing != nil {
		return existing, nil
	}
	return rec, nil
}

func (m *Matcher) createIncoming(ctx context.Context, agent *model.Agent, ev CompletionEvent) (*model.CallRecord, error) {
	conn, err := m.connections.FindByAgentIDAndNumber(ctx, agent.ID, ev.ToNumber)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		conn, err = m.connections.FindFirstByAgentID(ctx, agent.ID)
		if err != nil {
			return nil, err
		}
	}

	params := model.CreateCallParams{
		ID:         uuid.NewString(),
		FromNumber: ev.FromNumber,
		ToNumber:   ev.ToNumber,
		Direction:  model.DirectionIncoming,
		Status:     model.CallStatusInProgress,
		UserID:     agent.UserID,
	}
	if ev.ConversationID != "" {
		params.ConversationID = &ev.ConversationID
	}
	if conn != nil {
		params.ConnectionID = &conn.ID
	}

	rec, err := m.calls.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("call_id", rec.ID).
		Str("conversation_id", ev.ConversationID).
		Str("strategy", "new-incoming").
		Msg("completion event reconciled")
	return rec, nil
}

func (m *Matcher) createOutboundFallback(ctx context.Context, agent *model.Agent, ev CompletionEvent) (*model.CallRecord, error) {
	campaign, err := m.campaigns.FindMostRecentStartedByAgentID(ctx, agent.ID)
	if err != nil {
		return nil, err
	}

	params := model.CreateCallParams{
		ID:         uuid.NewString(),
		FromNumber: ev.FromNumber,
		ToNumber:   ev.ToNumber,
		Direction:  model.DirectionOutgoing,
		Status:     model.CallStatusInProgress,
		UserID:     agent.UserID,
	}
	if ev.ConversationID != "" {
		params.ConversationID = &ev.ConversationID
	}
	if campaign != nil {
		params.CampaignID = &campaign.ID
	}
	if ev.BatchCallID != "" {
		params.Metadata = model.Metadata{model.MetaBatchCallID: ev.BatchCallID}
	}

	rec, err := m.calls.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("call_id", rec.ID).
		Str("conversation_id", ev.ConversationID).
		Str("strategy", "outbound-fallback").
		Msg("completion event reconciled")
	return rec, nil
}
