package handler

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	apperrors "github.com/voxlane/call-bridge-go/internal/errors"
	"github.com/voxlane/call-bridge-go/internal/httputil"
	"github.com/voxlane/call-bridge-go/internal/repository"
	"github.com/voxlane/call-bridge-go/internal/service"
)

// StatusHandler receives the telephony provider's lifecycle callbacks
// (form-encoded, one per state change).
type StatusHandler struct {
	calls repository.CallRepository
}

func NewStatusHandler(calls repository.CallRepository) *StatusHandler {
	return &StatusHandler{calls: calls}
}

func (h *StatusHandler) Callback(w http.ResponseWriter, r *http.Request) {
	callID := r.URL.Query().Get("callId")
	if callID == "" {
		httputil.WriteError(w, apperrors.MissingRequired("callId"))
		return
	}

	if err := r.ParseForm(); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("invalid status callback body"))
		return
	}

	vendor := r.FormValue("CallStatus")
	status, ok := service.MapTelephonyStatus(vendor)
	if !ok {
		log.Warn().Str("call_id", callID).Str("vendor_status", vendor).Msg("unknown telephony status ignored")
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	duration, _ := strconv.Atoi(r.FormValue("CallDuration"))
	var recordingURL *string
	if v := r.FormValue("RecordingUrl"); v != "" {
		recordingURL = &v
	}

	if err := h.calls.UpdateStatusFromCallback(r.Context(), callID, status, duration, recordingURL); err != nil {
		log.Error().Err(err).Str("call_id", callID).Msg("failed to persist status callback")
		httputil.WriteError(w, apperrors.Database(err))
		return
	}

	log.Info().
		Str("call_id", callID).
		Str("status", string(status)).
		Int("duration_seconds", duration).
		Msg("status callback applied")
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
