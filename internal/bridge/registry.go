package bridge

import (
	"sync"

	"github.com/rs/zerolog/log"

	apperrors "github.com/voxlane/call-bridge-go/internal/errors"
)

// Registry maps call ids to live relay sessions. It is the only mutable
// structure shared across sessions; everything else is owned by exactly one
// session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Register stores the session under its call id. No two sessions may share a
// call id.
func (r *Registry) Register(callID string, session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[callID]; exists {
		return apperrors.SessionExists(callID)
	}
	r.sessions[callID] = session

	log.Info().
		Str("call_id", callID).
		Int("live_sessions", len(r.sessions)).
		Msg("session registered")
	return nil
}

// Lookup returns the live session for a call id, or nil.
func (r *Registry) Lookup(callID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[callID]
}

// Unregister removes the session for a call id. Safe to call for ids that
// were already removed.
func (r *Registry) Unregister(callID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[callID]; !exists {
		return
	}
	delete(r.sessions, callID)

	log.Info().
		Str("call_id", callID).
		Int("live_sessions", len(r.sessions)).
		Msg("session unregistered")
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
