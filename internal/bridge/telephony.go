package bridge

// Telephony media-stream frames. The provider speaks JSON over a websocket:
// start/media/stop inbound, media/clear outbound.

const (
	TelephonyEventStart = "start"
	TelephonyEventMedia = "media"
	TelephonyEventStop  = "stop"
	TelephonyEventClear = "clear"
)

type TelephonyFrame struct {
	Event     string        `json:"event"`
	StreamSID string        `json:"streamSid,omitempty"`
	Start     *StartPayload `json:"start,omitempty"`
	Media     *MediaPayload `json:"media,omitempty"`
	Sequence  string        `json:"sequenceNumber,omitempty"`
}

type StartPayload struct {
	StreamSID        string           `json:"streamSid"`
	CallSID          string           `json:"callSid"`
	CustomParameters CustomParameters `json:"customParameters"`
}

// CustomParameters are stamped onto the stream by the dialer / inbound route.
type CustomParameters struct {
	CallID      string `json:"callId"`
	AgentID     string `json:"agentId"`
	ContactName string `json:"contactName,omitempty"`
	FromPhone   string `json:"fromPhone,omitempty"`
}

type MediaPayload struct {
	Payload string `json:"payload"`
}

func mediaFrame(streamSID, audioBase64 string) TelephonyFrame {
	return TelephonyFrame{
		Event:     TelephonyEventMedia,
		StreamSID: streamSID,
		Media:     &MediaPayload{Payload: audioBase64},
	}
}

func clearFrame(streamSID string) TelephonyFrame {
	return TelephonyFrame{
		Event:     TelephonyEventClear,
		StreamSID: streamSID,
	}
}
