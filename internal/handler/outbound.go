package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/voxlane/call-bridge-go/internal/errors"
	"github.com/voxlane/call-bridge-go/internal/httputil"
	"github.com/voxlane/call-bridge-go/internal/model"
	"github.com/voxlane/call-bridge-go/internal/repository"
)

type outboundRequest struct {
	AgentID     string `json:"agentId"`
	ToNumber    string `json:"toNumber"`
	FromNumber  string `json:"fromNumber"`
	ContactName string `json:"contactName,omitempty"`
	UserID      string `json:"userId,omitempty"`
	CampaignID  string `json:"campaignId,omitempty"`
	BatchCallID string `json:"batchCallId,omitempty"`
}

// OutboundHandler is the dialer entry point. It creates the pending call
// record eagerly so the call has an identity before the telephony leg exists;
// the leg and the engine conversation attach to it later by id.
type OutboundHandler struct {
	calls  repository.CallRepository
	agents repository.AgentRepository
}

func NewOutboundHandler(calls repository.CallRepository, agents repository.AgentRepository) *OutboundHandler {
	return &OutboundHandler{calls: calls, agents: agents}
}

func (h *OutboundHandler) Dial(w http.ResponseWriter, r *http.Request) {
	var req outboundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("invalid request body"))
		return
	}
	if req.AgentID == "" {
		httputil.WriteError(w, apperrors.MissingRequired("agentId"))
		return
	}
	if req.ToNumber == "" {
		httputil.WriteError(w, apperrors.MissingRequired("toNumber"))
		return
	}

	agent, err := h.agents.FindByID(r.Context(), req.AgentID)
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return
	}
	if agent == nil {
		httputil.WriteError(w, apperrors.NotFound("agent"))
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = agent.UserID
	}

	params := model.CreateCallParams{
		ID:         uuid.NewString(),
		FromNumber: req.FromNumber,
		ToNumber:   req.ToNumber,
		Direction:  model.DirectionOutgoing,
		Status:     model.CallStatusPending,
		UserID:     userID,
	}
	if req.ContactName != "" {
		params.ContactName = &req.ContactName
	}
	if req.CampaignID != "" {
		params.CampaignID = &req.CampaignID
	}
	if req.BatchCallID != "" {
		params.Metadata = model.Metadata{model.MetaBatchCallID: req.BatchCallID}
	}

	rec, err := h.calls.Create(r.Context(), params)
	if err != nil {
		log.Error().Err(err).Str("agent_id", req.AgentID).Msg("failed to create outbound call record")
		httputil.WriteError(w, apperrors.Database(err))
		return
	}

	log.Info().
		Str("call_id", rec.ID).
		Str("agent_id", req.AgentID).
		Str("to", req.ToNumber).
		Msg("outbound call record created")
	httputil.WriteJSON(w, http.StatusCreated, rec)
}
