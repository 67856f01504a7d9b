package state

import (
	"sync"

	"credential-client/internal/cache"
	"credential-client/internal/model"
)

// State is the controller-owned replacement for page globals: the active
// session, the credential cache and the pending content reference.
type State struct {
	mu         sync.RWMutex
	session    *model.Session
	pendingRef string
	// generation changes whenever the session is replaced or cleared.
	generation uint64

	credentials *cache.Cache
}

func New() *State {
	return &State{credentials: cache.New()}
}

func (s *State) Session() (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return model.Session{}, false
	}
	return *s.session, true
}

// SetSession replaces the active session and drops everything cached for the
// previous one.
func (s *State) SetSession(sess model.Session) {
	s.mu.Lock()
	s.session = &sess
	s.pendingRef = ""
	s.generation++
	s.mu.Unlock()
	s.credentials.Reset()
}

func (s *State) Clear() {
	s.mu.Lock()
	s.session = nil
	s.pendingRef = ""
	s.generation++
	s.mu.Unlock()
	s.credentials.Reset()
}

// SessionGeneration returns the active session with a token identifying it.
// The token differs for every login, even of the same user.
func (s *State) SessionGeneration() (model.Session, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return model.Session{}, s.generation, false
	}
	return *s.session, s.generation, true
}

func (s *State) Credentials() *cache.Cache {
	return s.credentials
}

func (s *State) PendingReference() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingRef
}

func (s *State) SetPendingReference(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingRef = ref
}

func (s *State) ClearPendingReference() {
	s.SetPendingReference("")
}

// SetPendingReferenceFor stores ref only if the session identified by
// generation is still the active one.
func (s *State) SetPendingReferenceFor(generation uint64, ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.generation != generation {
		return false
	}
	s.pendingRef = ref
	return true
}
