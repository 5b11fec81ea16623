package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/voxlane/call-bridge-go/internal/errors"
	"github.com/voxlane/call-bridge-go/internal/httputil"
	"github.com/voxlane/call-bridge-go/internal/model"
	"github.com/voxlane/call-bridge-go/internal/service"
)

// engineWebhook is the vendor's completion event wire shape.
type engineWebhook struct {
	Type string `json:"type"`
	Data struct {
		AgentID        string `json:"agent_id"`
		ConversationID string `json:"conversation_id"`
		Transcript     []struct {
			Role    string `json:"role"`
			Message string `json:"message"`
		} `json:"transcript"`
		Metadata struct {
			CallDurationSecs int `json:"call_duration_secs"`
			PhoneCall        *struct {
				ExternalNumber string `json:"external_number"`
				AgentNumber    string `json:"agent_number"`
			} `json:"phone_call"`
			BatchCall *struct {
				BatchCallID string `json:"batch_call_id"`
			} `json:"batch_call"`
		} `json:"metadata"`
		Analysis *struct {
			TranscriptSummary string `json:"transcript_summary"`
			Sentiment         string `json:"sentiment"`
		} `json:"analysis"`
		RecordingURL string `json:"recording_url"`
	} `json:"data"`
}

var knownCompletionTypes = map[string]bool{
	service.EventPostCallTranscription: true,
	service.EventPostCallAudio:         true,
	service.EventCallInitiationFailure: true,
}

// CompletionHandler receives signed vendor completion webhooks.
type CompletionHandler struct {
	processor *service.CompletionProcessor
}

func NewCompletionHandler(processor *service.CompletionProcessor) *CompletionHandler {
	return &CompletionHandler{processor: processor}
}

func (h *CompletionHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var payload engineWebhook
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("invalid webhook payload"))
		return
	}

	if !knownCompletionTypes[payload.Type] {
		// Acknowledged so the vendor stops retrying event types we never handle.
		log.Debug().Str("type", payload.Type).Msg("ignoring unknown completion webhook type")
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	ev := service.CompletionEvent{
		Type:            payload.Type,
		ConversationID:  payload.Data.ConversationID,
		EngineAgentID:   payload.Data.AgentID,
		DurationSeconds: payload.Data.Metadata.CallDurationSecs,
		RecordingURL:    payload.Data.RecordingURL,
	}
	for _, entry := range payload.Data.Transcript {
		role := model.RoleAgent
		if entry.Role == "user" {
			role = model.RoleUser
		}
		ev.Turns = append(ev.Turns, model.Turn{Role: role, Text: entry.Message})
	}
	if payload.Data.Analysis != nil {
		ev.Summary = payload.Data.Analysis.TranscriptSummary
		ev.Sentiment = payload.Data.Analysis.Sentiment
	}
	if pc := payload.Data.Metadata.PhoneCall; pc != nil {
		ev.ToNumber = pc.ExternalNumber
		ev.FromNumber = pc.AgentNumber
	}
	if bc := payload.Data.Metadata.BatchCall; bc != nil {
		ev.BatchCallID = bc.BatchCallID
	}

	if err := h.processor.Process(r.Context(), ev); err != nil {
		// A transient failure; a non-2xx response makes the vendor redeliver.
		log.Error().Err(err).Str("conversation_id", ev.ConversationID).Msg("completion event processing failed")
		httputil.WriteError(w, apperrors.Wrap(apperrors.ErrCodeInternal, "completion processing failed", err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
