package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// Engine event vocabulary. Inbound types form a closed set; the relay's
// dispatch switch handles every one of them explicitly.
const (
	EngineEventInitMetadata   = "conversation_initiation_metadata"
	EngineEventAudio          = "audio"
	EngineEventInterruption   = "interruption"
	EngineEventUserTranscript = "user_transcript"
	EngineEventAgentResponse  = "agent_response"
	EngineEventPing           = "ping"
	EngineEventClientToolCall = "client_tool_call"
)

type engineEnvelope struct {
	Type string `json:"type"`

	AudioEvent *struct {
		AudioBase64 string `json:"audio_base_64"`
		EventID     int    `json:"event_id"`
	} `json:"audio_event,omitempty"`

	PingEvent *struct {
		EventID int `json:"event_id"`
	} `json:"ping_event,omitempty"`

	UserTranscriptionEvent *struct {
		UserTranscript string `json:"user_transcript"`
	} `json:"user_transcription_event,omitempty"`

	AgentResponseEvent *struct {
		AgentResponse string `json:"agent_response"`
	} `json:"agent_response_event,omitempty"`

	ClientToolCall *struct {
		ToolName   string          `json:"tool_name"`
		ToolCallID string          `json:"tool_call_id"`
		Parameters json.RawMessage `json:"parameters"`
	} `json:"client_tool_call,omitempty"`
}

// EngineEvent is the closed set of decoded engine messages.
type EngineEvent interface {
	engineEvent()
}

type InitMetadataEvent struct{}

type AudioEvent struct {
	AudioBase64 string
	EventID     int
}

type InterruptionEvent struct{}

type UserTranscriptEvent struct {
	Text string
}

type AgentResponseEvent struct {
	Text string
}

type PingEvent struct {
	EventID int
}

type ClientToolCallEvent struct {
	ToolName   string
	ToolCallID string
	Parameters json.RawMessage
}

// UnknownEvent carries types outside the closed set; they are logged and
// ignored to avoid vendor retry storms.
type UnknownEvent struct {
	Type string
}

func (InitMetadataEvent) engineEvent()   {}
func (AudioEvent) engineEvent()          {}
func (InterruptionEvent) engineEvent()   {}
func (UserTranscriptEvent) engineEvent() {}
func (AgentResponseEvent) engineEvent()  {}
func (PingEvent) engineEvent()           {}
func (ClientToolCallEvent) engineEvent() {}
func (UnknownEvent) engineEvent()        {}

// ParseEngineEvent decodes one engine message into its tagged variant.
func ParseEngineEvent(data []byte) (EngineEvent, error) {
	var env engineEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode engine event: %w", err)
	}

	switch env.Type {
	case EngineEventInitMetadata:
		return InitMetadataEvent{}, nil
	case EngineEventAudio:
		if env.AudioEvent == nil {
			return nil, fmt.Errorf("audio event missing payload")
		}
		return AudioEvent{AudioBase64: env.AudioEvent.AudioBase64, EventID: env.AudioEvent.EventID}, nil
	case EngineEventInterruption:
		return InterruptionEvent{}, nil
	case EngineEventUserTranscript:
		if env.UserTranscriptionEvent == nil {
			return nil, fmt.Errorf("user transcript event missing payload")
		}
		return UserTranscriptEvent{Text: env.UserTranscriptionEvent.UserTranscript}, nil
	case EngineEventAgentResponse:
		if env.AgentResponseEvent == nil {
			return nil, fmt.Errorf("agent response event missing payload")
		}
		return AgentResponseEvent{Text: env.AgentResponseEvent.AgentResponse}, nil
	case EngineEventPing:
		if env.PingEvent == nil {
			return nil, fmt.Errorf("ping event missing payload")
		}
		return PingEvent{EventID: env.PingEvent.EventID}, nil
	case EngineEventClientToolCall:
		if env.ClientToolCall == nil {
			return nil, fmt.Errorf("client tool call missing payload")
		}
		return ClientToolCallEvent{
			ToolName:   env.ClientToolCall.ToolName,
			ToolCallID: env.ClientToolCall.ToolCallID,
			Parameters: env.ClientToolCall.Parameters,
		}, nil
	default:
		return UnknownEvent{Type: env.Type}, nil
	}
}

// Outbound engine messages.

type pongMessage struct {
	Type    string `json:"type"`
	EventID int    `json:"event_id"`
}

type audioChunkMessage struct {
	UserAudioChunk string `json:"user_audio_chunk"`
}

type contextualUpdateMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolResultMessage struct {
	Type       string `json:"type"`
	ToolCallID string `json:"tool_call_id"`
	Result     string `json:"result"`
	IsError    bool   `json:"is_error"`
}

type initiationMessage struct {
	Type             string            `json:"type"`
	DynamicVariables map[string]string `json:"dynamic_variables,omitempty"`
	ConfigOverride   *configOverride   `json:"conversation_config_override,omitempty"`
}

type configOverride struct {
	Agent agentOverride `json:"agent"`
}

type agentOverride struct {
	FirstMessage string `json:"first_message,omitempty"`
}

// EngineDialer opens the event-stream connection to the conversational engine.
type EngineDialer interface {
	Dial(ctx context.Context, engineAgentID string) (Socket, error)
}

// EngineClient obtains a time-limited, single-use signed URL from the engine's
// credential pool and dials the event stream with it.
type EngineClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	dialer  *websocket.Dialer
}

func NewEngineClient(baseURL, apiKey string) *EngineClient {
	return &EngineClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		dialer:  websocket.DefaultDialer,
	}
}

func (c *EngineClient) signedURL(ctx context.Context, engineAgentID string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/conversation/signed-url?agent_id=%s",
		c.baseURL, url.QueryEscape(engineAgentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch signed url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("signed url request failed with status %d", resp.StatusCode)
	}

	var body struct {
		SignedURL string `json:"signed_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode signed url response: %w", err)
	}
	if body.SignedURL == "" {
		return "", fmt.Errorf("signed url response is empty")
	}
	return body.SignedURL, nil
}

func (c *EngineClient) Dial(ctx context.Context, engineAgentID string) (Socket, error) {
	signedURL, err := c.signedURL(ctx, engineAgentID)
	if err != nil {
		return nil, err
	}

	conn, _, err := c.dialer.DialContext(ctx, signedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial engine: %w", err)
	}
	return NewSocket(conn), nil
}
