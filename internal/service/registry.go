package service

import (
	"sync"

	"github.com/cloo-solutions/docuchat/internal/domain"
	"github.com/cloo-solutions/docuchat/internal/index"
)

// sessionState is the in-memory portion of one session: its vector
// index (nil when the session was restored from durable history after
// a restart) and its accumulated turns. The mutex serializes history
// appends for the session.
type sessionState struct {
	mu    sync.Mutex
	index *index.Index
	turns []domain.Turn
}

// SessionRegistry is the process-wide owner of per-session state. It
// replaces ambient shared maps with one service object constructed at
// process start, holding explicit ownership and per-session
// synchronization.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*sessionState)}
}

// Register inserts a freshly built index under a new session id.
// Session ids are generated per ingestion, so a duplicate means an
// internal invariant was violated.
func (r *SessionRegistry) Register(sessionID string, ix *index.Index) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.sessions[sessionID]; ok && state.index != nil {
		return domain.ErrDuplicateSession
	}
	if state, ok := r.sessions[sessionID]; ok {
		// Session restored from history; attach the fresh index.
		state.index = ix
		return nil
	}
	r.sessions[sessionID] = &sessionState{index: ix}
	return nil
}

// Index resolves a session to its live vector index. Sessions restored
// from durable history have no index until re-ingestion, so they
// resolve the same as unknown ids: browsable, not queryable.
func (r *SessionRegistry) Index(sessionID string) (*index.Index, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.sessions[sessionID]
	if !ok || state.index == nil {
		return nil, domain.ErrUnknownSession
	}
	return state.index, nil
}

// Exists reports whether the session id is known in-memory, with or
// without a live index.
func (r *SessionRegistry) Exists(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[sessionID]
	return ok
}

// Append records a turn under the session's append lock. The persist
// callback runs under the same lock, so durable order and in-memory
// order cannot diverge when two answers for one session race.
func (r *SessionRegistry) Append(sessionID string, turn domain.Turn, persist func() error) error {
	state := r.state(sessionID)

	state.mu.Lock()
	defer state.mu.Unlock()

	if persist != nil {
		if err := persist(); err != nil {
			return err
		}
	}
	state.turns = append(state.turns, turn)
	return nil
}

// Turns returns a copy of the session's in-memory turn sequence.
func (r *SessionRegistry) Turns(sessionID string) ([]domain.Turn, error) {
	r.mu.RLock()
	state, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrUnknownSession
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	turns := make([]domain.Turn, len(state.turns))
	copy(turns, state.turns)
	return turns, nil
}

// Restore seeds a session's history at startup without an index.
// Called once per known session before the server accepts requests.
func (r *SessionRegistry) Restore(sessionID string, turns []domain.Turn) {
	state := r.state(sessionID)
	state.mu.Lock()
	defer state.mu.Unlock()
	state.turns = append([]domain.Turn{}, turns...)
}

// state fetches or lazily creates the session's in-memory slot.
func (r *SessionRegistry) state(sessionID string) *sessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.sessions[sessionID]
	if !ok {
		state = &sessionState{}
		r.sessions[sessionID] = state
	}
	return state
}
