package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEngineEvent(t *testing.T) {
	tests := []struct {
		name string
		data string
		want EngineEvent
	}{
		{
			name: "initiation metadata",
			data: `{"type":"conversation_initiation_metadata"}`,
			want: InitMetadataEvent{},
		},
		{
			name: "audio",
			data: `{"type":"audio","audio_event":{"audio_base_64":"AAAA","event_id":7}}`,
			want: AudioEvent{AudioBase64: "AAAA", EventID: 7},
		},
		{
			name: "interruption",
			data: `{"type":"interruption"}`,
			want: InterruptionEvent{},
		},
		{
			name: "user transcript",
			data: `{"type":"user_transcript","user_transcription_event":{"user_transcript":"hello"}}`,
			want: UserTranscriptEvent{Text: "hello"},
		},
		{
			name: "agent response",
			data: `{"type":"agent_response","agent_response_event":{"agent_response":"hi there"}}`,
			want: AgentResponseEvent{Text: "hi there"},
		},
		{
			name: "ping",
			data: `{"type":"ping","ping_event":{"event_id":42}}`,
			want: PingEvent{EventID: 42},
		},
		{
			name: "unknown type passes through",
			data: `{"type":"internal_vad_score"}`,
			want: UnknownEvent{Type: "internal_vad_score"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEngineEvent([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("client tool call", func(t *testing.T) {
		got, err := ParseEngineEvent([]byte(`{
			"type":"client_tool_call",
			"client_tool_call":{"tool_name":"transfer_call","tool_call_id":"tc-1","parameters":{"reason":"asked"}}
		}`))
		require.NoError(t, err)

		ev, ok := got.(ClientToolCallEvent)
		require.True(t, ok)
		assert.Equal(t, "transfer_call", ev.ToolName)
		assert.Equal(t, "tc-1", ev.ToolCallID)
		assert.JSONEq(t, `{"reason":"asked"}`, string(ev.Parameters))
	})

	t.Run("invalid json rejected", func(t *testing.T) {
		_, err := ParseEngineEvent([]byte(`{`))
		require.Error(t, err)
	})

	t.Run("audio without payload rejected", func(t *testing.T) {
		_, err := ParseEngineEvent([]byte(`{"type":"audio"}`))
		require.Error(t, err)
	})
}
