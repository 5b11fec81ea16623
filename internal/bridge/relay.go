package bridge

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxlane/call-bridge-go/internal/config"
	apperrors "github.com/voxlane/call-bridge-go/internal/errors"
	"github.com/voxlane/call-bridge-go/internal/model"
	"github.com/voxlane/call-bridge-go/internal/repository"
	"github.com/voxlane/call-bridge-go/internal/retry"
	"github.com/voxlane/call-bridge-go/internal/service"
)

// TelephonyControl is the slice of the provider's REST API the relay needs:
// redirecting a live leg to a new destination and hanging a leg up.
type TelephonyControl interface {
	RedirectCall(ctx context.Context, legID, destination, callerID string) error
	EndCall(ctx context.Context, legID string) error
}

// Manager owns every live session: it wires the telephony media stream to the
// engine event stream, supervises silence and lifecycle, and runs teardown.
type Manager struct {
	registry    *Registry
	calls       repository.CallRepository
	agents      repository.AgentRepository
	control     TelephonyControl
	dialer      EngineDialer
	flow        FlowBridge
	tools       *ToolDispatcher
	transcripts *Assembler

	silenceTimeout time.Duration
	sendPolicy     retry.Policy
}

func NewManager(
	registry *Registry,
	calls repository.CallRepository,
	agents repository.AgentRepository,
	control TelephonyControl,
	dialer EngineDialer,
	flow FlowBridge,
	tools *ToolDispatcher,
	transcripts *Assembler,
	silenceTimeout time.Duration,
) *Manager {
	return &Manager{
		registry:    registry,
		calls:       calls,
		agents:      agents,
		control:     control,
		dialer:      dialer,
		flow:        flow,
		tools:       tools,
		transcripts: transcripts,

		silenceTimeout: silenceTimeout,
		sendPolicy: retry.Policy{
			MaxAttempts: config.SendRetryAttempts,
			Delay:       config.SendRetryDelay,
		},
	}
}

// StartSession handles the telephony "start" frame: it validates the stamped
// parameters, dials the engine, registers the session and kicks off the engine
// read loop. The returned session stays alive until either stream closes.
func (m *Manager) StartSession(ctx context.Context, telephony Socket, start StartPayload) (*Session, error) {
	params := start.CustomParameters
	if params.CallID == "" {
		return nil, apperrors.MissingRequired("callId")
	}
	if params.AgentID == "" {
		return nil, apperrors.MissingRequired("agentId")
	}

	agent, err := m.agents.FindByID(ctx, params.AgentID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if agent == nil {
		return nil, apperrors.NotFound("agent")
	}

	engine, err := m.dialer.Dial(ctx, agent.EngineAgentID)
	if err != nil {
		return nil, apperrors.External("engine", err)
	}

	session := newSession(params.CallID, agent, telephony, engine, start)
	if err := m.registry.Register(params.CallID, session); err != nil {
		engine.Close()
		return nil, err
	}

	log.Info().
		Str("call_id", params.CallID).
		Str("agent_id", params.AgentID).
		Str("stream_sid", start.StreamSID).
		Str("leg_id", start.CallSID).
		Msg("session started")

	if start.CallSID != "" {
		if err := m.calls.SetTelephonyLegID(ctx, params.CallID, start.CallSID); err != nil {
			log.Warn().Err(err).Str("call_id", params.CallID).Msg("failed to store telephony leg id")
		}
	}

	// Flow-native agents carry their own first message and variables on the
	// engine side; overriding them would reset the flow position.
	if !agent.NativeFlow {
		if err := m.sendEngine(session, m.initiationFor(session)); err != nil {
			m.teardown(session, "engine initiation failed", false)
			return nil, apperrors.External("engine", err)
		}
	}

	session.armSilence(m.silenceTimeout, func() {
		log.Info().Str("call_id", session.CallID).Msg("silence timeout reached")
		m.Terminate(session, "silence timeout")
	})

	go m.readEngineLoop(session)

	if m.flow != nil && !agent.NativeFlow {
		go m.deferredFlowCheck(session)
	}

	return session, nil
}

func (m *Manager) initiationFor(s *Session) initiationMessage {
	vars := map[string]string{
		"call_id": s.CallID,
	}
	if s.contactName != "" {
		vars["contact_name"] = s.contactName
	}
	if s.fromPhone != "" {
		vars["from_phone"] = s.fromPhone
	}

	msg := initiationMessage{
		Type:             "conversation_initiation_client_data",
		DynamicVariables: vars,
	}
	// The first-message override belongs to externally bridged flows; plain
	// agents keep their saved greeting.
	if m.flow != nil && s.contactName != "" {
		msg.ConfigOverride = &configOverride{
			Agent: agentOverride{
				FirstMessage: "Hello " + s.contactName + "!",
			},
		}
	}
	return msg
}

// deferredFlowCheck runs once shortly after initiation. Flow graphs can
// auto-advance through non-interactive nodes before the caller says anything;
// this pushes the resulting instruction without waiting for a user turn.
func (m *Manager) deferredFlowCheck(s *Session) {
	time.Sleep(config.ContextualUpdateDelay)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	text, err := m.flow.GenerateContextualUpdate(ctx, s.CallID)
	if err != nil {
		log.Warn().Err(err).Str("call_id", s.CallID).Msg("deferred flow check failed")
		return
	}
	if text == "" {
		return
	}
	m.sendEngineNonFatal(s, contextualUpdateMessage{Type: "contextual_update", Text: text})
}

// HandleMedia forwards one inbound audio chunk to the engine.
func (m *Manager) HandleMedia(s *Session, frame TelephonyFrame) {
	if frame.Media == nil {
		return
	}
	s.mediaIn.Add(1)
	if seq := frame.Sequence; seq != "" {
		// Sequence numbers are tracked for diagnostics only; chunks are relayed
		// in arrival order.
		if n, err := strconv.ParseInt(seq, 10, 64); err == nil {
			s.lastSeq.Store(n)
		}
	}
	m.sendEngineNonFatal(s, audioChunkMessage{UserAudioChunk: frame.Media.Payload})
}

// HandleStop tears the session down after the telephony stream announced its
// end. The leg is already gone, so no hangup is issued.
func (m *Manager) HandleStop(s *Session) {
	m.teardown(s, "telephony stream closed", false)
}

// Terminate ends the session from our side: teardown plus a hangup on the
// telephony leg.
func (m *Manager) Terminate(s *Session, reason string) {
	m.teardown(s, reason, true)
}

func (m *Manager) readEngineLoop(s *Session) {
	for {
		data, err := s.engine.ReadMessage()
		if err != nil {
			m.teardown(s, "engine stream closed", true)
			return
		}

		event, err := ParseEngineEvent(data)
		if err != nil {
			log.Warn().Err(err).Str("call_id", s.CallID).Msg("undecodable engine event")
			continue
		}
		m.dispatch(s, event)
	}
}

func (m *Manager) dispatch(s *Session, event EngineEvent) {
	switch ev := event.(type) {
	case InitMetadataEvent:
		log.Debug().Str("call_id", s.CallID).Msg("engine conversation initialized")

	case AudioEvent:
		if sid := s.StreamSID(); sid != "" {
			s.mediaOut.Add(1)
			m.sendTelephonyNonFatal(s, mediaFrame(sid, ev.AudioBase64))
		}

	case InterruptionEvent:
		if sid := s.StreamSID(); sid != "" {
			m.sendTelephonyNonFatal(s, clearFrame(sid))
		}

	case UserTranscriptEvent:
		m.handleUserTranscript(s, ev.Text)

	case AgentResponseEvent:
		s.AppendTurn(model.RoleAgent, ev.Text)
		s.resetSilence()
		if service.ContainsFarewell(ev.Text) {
			log.Debug().Str("call_id", s.CallID).Msg("agent farewell detected")
		}

	case PingEvent:
		m.sendEngineNonFatal(s, pongMessage{Type: "pong", EventID: ev.EventID})

	case ClientToolCallEvent:
		go m.handleToolCall(s, ev)

	case UnknownEvent:
		log.Debug().Str("call_id", s.CallID).Str("type", ev.Type).Msg("ignoring unknown engine event")
	}
}

func (m *Manager) handleUserTranscript(s *Session, text string) {
	s.AppendTurn(model.RoleUser, text)
	s.resetSilence()

	if service.ContainsRejection(text) {
		// Let the agent deliver its goodbye before the leg is dropped.
		if s.scheduleRejectionHangup(config.RejectionHangupDelay, func() {
			m.Terminate(s, "caller rejected")
		}) {
			log.Info().Str("call_id", s.CallID).Msg("rejection detected, hangup scheduled")
		}
	}

	if m.flow == nil || s.Agent.NativeFlow {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	instruction, err := m.flow.ProcessUserResponse(ctx, s.CallID, text)
	if err != nil {
		log.Warn().Err(err).Str("call_id", s.CallID).Msg("flow advance failed")
		return
	}
	if instruction != "" {
		m.sendEngineNonFatal(s, contextualUpdateMessage{Type: "contextual_update", Text: instruction})
	}

	if m.flow.HasFlowEnded(ctx, s.CallID) {
		s.scheduleRejectionHangup(config.RejectionHangupDelay, func() {
			m.Terminate(s, "flow completed")
		})
	}
}

func (m *Manager) handleToolCall(s *Session, call ClientToolCallEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result := m.tools.Dispatch(ctx, s, call)
	m.sendEngineNonFatal(s, toolResultMessage{
		Type:       "client_tool_result",
		ToolCallID: call.ToolCallID,
		Result:     result.Message,
		IsError:    result.IsError,
	})
}

// sendEngine writes one message to the engine stream under the retry policy.
func (m *Manager) sendEngine(s *Session, v any) error {
	return m.sendPolicy.Do(context.Background(), func() error {
		return s.engine.WriteJSON(v)
	})
}

// sendEngineNonFatal is sendEngine for relay-path messages. Exhausting the
// retries drops the message but keeps the session alive; the stream-level read
// loop decides when the connection is actually dead.
func (m *Manager) sendEngineNonFatal(s *Session, v any) {
	if !s.engine.IsOpen() {
		return
	}
	if err := m.sendEngine(s, v); err != nil {
		log.Warn().Err(err).Str("call_id", s.CallID).Msg("dropping engine message after retries")
	}
}

func (m *Manager) sendTelephonyNonFatal(s *Session, frame TelephonyFrame) {
	if !s.telephony.IsOpen() {
		return
	}
	err := m.sendPolicy.Do(context.Background(), func() error {
		return s.telephony.WriteJSON(frame)
	})
	if err != nil {
		log.Warn().Err(err).Str("call_id", s.CallID).Msg("dropping telephony frame after retries")
	}
}

// teardown runs exactly once per session regardless of how many paths race
// into it. Order matters: timers first so nothing re-enters, then transcript
// persistence, then transports, then the registry slot.
func (m *Manager) teardown(s *Session, reason string, endLeg bool) {
	if !s.markClosed() {
		return
	}

	log.Info().
		Str("call_id", s.CallID).
		Str("reason", reason).
		Int64("media_in", s.mediaIn.Load()).
		Int64("media_out", s.mediaOut.Load()).
		Msg("session ended")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if m.transcripts != nil {
		if err := m.transcripts.Persist(ctx, s.CallID, s.Turns()); err != nil {
			log.Error().Err(err).Str("call_id", s.CallID).Msg("failed to persist transcript")
		}
	}

	if err := m.calls.MergeMetadata(ctx, s.CallID, model.Metadata{model.MetaTerminationReason: reason}); err != nil {
		log.Warn().Err(err).Str("call_id", s.CallID).Msg("failed to record termination reason")
	}

	if endLeg && s.legID != "" && m.control != nil {
		if err := m.control.EndCall(ctx, s.legID); err != nil {
			log.Warn().Err(err).Str("call_id", s.CallID).Str("leg_id", s.legID).Msg("failed to end telephony leg")
		}
	}

	s.engine.Close()
	s.telephony.Close()
	m.registry.Unregister(s.CallID)
}
