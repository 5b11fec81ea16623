package bridge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxlane/call-bridge-go/internal/model"
)

// Session is the ephemeral, in-memory state of one live call. It is owned
// exclusively by its Registry entry and never persisted; it is destroyed when
// either transport closes.
type Session struct {
	CallID string
	Agent  *model.Agent

	telephony Socket
	engine    Socket

	streamSID   string
	legID       string
	contactName string
	fromPhone   string

	mu        sync.Mutex
	turns     []model.Turn
	closed    bool
	silence   *ResettableTimer
	rejection *time.Timer

	mediaIn  atomic.Int64
	mediaOut atomic.Int64
	lastSeq  atomic.Int64
}

func newSession(callID string, agent *model.Agent, telephony, engine Socket, start StartPayload) *Session {
	return &Session{
		CallID:      callID,
		Agent:       agent,
		telephony:   telephony,
		engine:      engine,
		streamSID:   start.StreamSID,
		legID:       start.CallSID,
		contactName: start.CustomParameters.ContactName,
		fromPhone:   start.CustomParameters.FromPhone,
	}
}

// AppendTurn records one utterance and returns the total turn count.
func (s *Session) AppendTurn(role, text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, model.Turn{Role: role, Text: text, At: time.Now()})
	return len(s.turns)
}

// Turns returns a copy of the accumulated conversation.
func (s *Session) Turns() []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// StreamSID returns the telephony stream id, or "" when the stream is gone.
func (s *Session) StreamSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ""
	}
	return s.streamSID
}

// markClosed flips the session to closed exactly once and cancels all pending
// timers. Returns false if the session was already closed.
func (s *Session) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true

	if s.silence != nil {
		s.silence.Stop()
	}
	if s.rejection != nil {
		s.rejection.Stop()
	}
	return true
}

func (s *Session) resetSilence() {
	s.mu.Lock()
	timer := s.silence
	closed := s.closed
	s.mu.Unlock()
	if timer != nil && !closed {
		timer.Reset()
	}
}

func (s *Session) armSilence(d time.Duration, onTimeout func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.silence = NewResettableTimer(d, onTimeout)
}

// scheduleRejectionHangup arms the delayed-termination timer that follows an
// explicit rejection phrase. Only the first schedule wins.
func (s *Session) scheduleRejectionHangup(d time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.rejection != nil {
		return false
	}
	s.rejection = time.AfterFunc(d, fn)
	return true
}
