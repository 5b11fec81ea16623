package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/voxlane/call-bridge-go/internal/bridge"
)

// MediaHandler accepts the telephony provider's media-stream websocket and
// feeds its frames to the bridge manager.
type MediaHandler struct {
	manager  *bridge.Manager
	upgrader websocket.Upgrader
}

func NewMediaHandler(manager *bridge.Manager) *MediaHandler {
	return &MediaHandler{
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The provider connects server-to-server without an Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *MediaHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("media websocket upgrade failed")
		return
	}

	socket := bridge.NewSocket(conn)
	var session *bridge.Session

	for {
		data, err := socket.ReadMessage()
		if err != nil {
			if session != nil {
				h.manager.HandleStop(session)
			} else {
				socket.Close()
			}
			return
		}

		var frame bridge.TelephonyFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Warn().Err(err).Msg("undecodable telephony frame")
			continue
		}

		switch frame.Event {
		case bridge.TelephonyEventStart:
			if session != nil {
				log.Warn().Str("call_id", session.CallID).Msg("duplicate start frame ignored")
				continue
			}
			if frame.Start == nil {
				h.closePolicyViolation(conn, socket, "start frame missing payload")
				return
			}
			session, err = h.manager.StartSession(r.Context(), socket, *frame.Start)
			if err != nil {
				log.Warn().Err(err).Msg("rejecting media stream")
				h.closePolicyViolation(conn, socket, err.Error())
				return
			}

		case bridge.TelephonyEventMedia:
			if session != nil {
				h.manager.HandleMedia(session, frame)
			}

		case bridge.TelephonyEventStop:
			if session != nil {
				h.manager.HandleStop(session)
			} else {
				socket.Close()
			}
			return

		default:
			log.Debug().Str("event", frame.Event).Msg("ignoring unknown telephony frame")
		}
	}
}

func (h *MediaHandler) closePolicyViolation(conn *websocket.Conn, socket bridge.Socket, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	socket.Close()
}
