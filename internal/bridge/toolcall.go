package bridge

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/voxlane/call-bridge-go/internal/model"
	"github.com/voxlane/call-bridge-go/internal/repository"
)

// ToolResult is spoken back to the caller by the agent, so every failure
// message is a natural-language apology rather than an error string.
type ToolResult struct {
	Message string
	IsError bool
}

const ToolTransferCall = "transfer_call"

// ToolDispatcher resolves and executes engine-requested client tools.
type ToolDispatcher struct {
	calls       repository.CallRepository
	agents      repository.AgentRepository
	campaigns   repository.CampaignRepository
	connections repository.PhoneConnectionRepository
	control     TelephonyControl
}

func NewToolDispatcher(
	calls repository.CallRepository,
	agents repository.AgentRepository,
	campaigns repository.CampaignRepository,
	connections repository.PhoneConnectionRepository,
	control TelephonyControl,
) *ToolDispatcher {
	return &ToolDispatcher{
		calls:       calls,
		agents:      agents,
		campaigns:   campaigns,
		connections: connections,
		control:     control,
	}
}

func (d *ToolDispatcher) Dispatch(ctx context.Context, s *Session, call ClientToolCallEvent) ToolResult {
	log.Info().
		Str("call_id", s.CallID).
		Str("tool", call.ToolName).
		Str("tool_call_id", call.ToolCallID).
		Msg("client tool call")

	switch call.ToolName {
	case ToolTransferCall:
		return d.transferCall(ctx, s)
	default:
		log.Warn().Str("call_id", s.CallID).Str("tool", call.ToolName).Msg("unknown tool requested")
		return ToolResult{
			Message: "I'm sorry, I can't do that right now.",
			IsError: true,
		}
	}
}

// transferCall redirects the live telephony leg to the owning agent's transfer
// destination. Each failure mode gets its own apology so the agent can tell
// the caller something specific.
func (d *ToolDispatcher) transferCall(ctx context.Context, s *Session) ToolResult {
	record, err := d.calls.FindByID(ctx, s.CallID)
	if err != nil || record == nil {
		log.Error().Err(err).Str("call_id", s.CallID).Msg("transfer failed: call record not found")
		return ToolResult{
			Message: "I'm sorry, I couldn't find the details of this call to transfer you.",
			IsError: true,
		}
	}

	agent, err := d.resolveAgent(ctx, s, record)
	if err != nil || agent == nil {
		log.Error().Err(err).Str("call_id", s.CallID).Msg("transfer failed: no associated agent")
		return ToolResult{
			Message: "I'm sorry, transfers aren't set up for this line.",
			IsError: true,
		}
	}

	if agent.TransferNumber == nil || *agent.TransferNumber == "" {
		log.Warn().Str("call_id", s.CallID).Str("agent_id", agent.ID).Msg("transfer failed: no destination configured")
		return ToolResult{
			Message: "I'm sorry, there is no transfer destination set up right now.",
			IsError: true,
		}
	}

	legID := s.legID
	if legID == "" && record.TelephonyLegID != nil {
		legID = *record.TelephonyLegID
	}
	if legID == "" {
		log.Error().Str("call_id", s.CallID).Msg("transfer failed: no telephony leg")
		return ToolResult{
			Message: "I'm sorry, the transfer didn't go through. Please stay on the line.",
			IsError: true,
		}
	}

	callerID := record.FromNumber
	if record.DisplayNumber != nil && *record.DisplayNumber != "" {
		callerID = *record.DisplayNumber
	}

	if err := d.control.RedirectCall(ctx, legID, *agent.TransferNumber, callerID); err != nil {
		log.Error().Err(err).Str("call_id", s.CallID).Str("leg_id", legID).Msg("transfer failed: redirect error")
		return ToolResult{
			Message: "I'm sorry, the transfer didn't go through. Please stay on the line.",
			IsError: true,
		}
	}

	if err := d.calls.MergeMetadata(ctx, s.CallID, model.Metadata{
		model.MetaWasTransferred: true,
		model.MetaTransferredTo:  *agent.TransferNumber,
	}); err != nil {
		log.Warn().Err(err).Str("call_id", s.CallID).Msg("failed to record transfer metadata")
	}

	log.Info().
		Str("call_id", s.CallID).
		Str("destination", *agent.TransferNumber).
		Msg("call transferred")
	return ToolResult{Message: "The call is being transferred now. Please hold."}
}

// resolveAgent prefers the agent already bound to the session and otherwise
// walks the record's campaign or inbound-connection ownership.
func (d *ToolDispatcher) resolveAgent(ctx context.Context, s *Session, record *model.CallRecord) (*model.Agent, error) {
	if s.Agent != nil {
		return s.Agent, nil
	}

	if record.CampaignID != nil {
		campaign, err := d.campaigns.FindByID(ctx, *record.CampaignID)
		if err != nil {
			return nil, err
		}
		if campaign != nil {
			return d.agents.FindByID(ctx, campaign.AgentID)
		}
	}

	if record.ConnectionID != nil {
		conn, err := d.connections.FindByID(ctx, *record.ConnectionID)
		if err != nil {
			return nil, err
		}
		if conn != nil {
			return d.agents.FindByID(ctx, conn.AgentID)
		}
	}

	return nil, nil
}
