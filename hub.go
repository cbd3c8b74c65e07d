package wsgate

import (
	"sync"
	"sync/atomic"
)

type hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
	open     atomic.Bool
}

func newHub() *hub {
	hub := &hub{
		sessions: make(map[*Session]struct{}),
	}
	hub.open.Store(true)
	return hub
}

func (h *hub) closed() bool {
	return !h.open.Load()
}

func (h *hub) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions)
}

func (h *hub) all() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		result = append(result, s)
	}
	return result
}

// register adds s unless the hub has already been shut down.
func (h *hub) register(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed() {
		return false
	}
	h.sessions[s] = struct{}{}
	return true
}

func (h *hub) unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions, s)
}

// exit closes every session with code and marks the hub closed. It reports false
// if the hub was already closed.
func (h *hub) exit(code int, text string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.open.CompareAndSwap(true, false) {
		return false
	}

	for s := range h.sessions {
		if err := s.CloseWithCode(code, text); err != nil {
			s.localCode.CompareAndSwap(0, int32(code))
			_ = s.conn.Close()
		}
	}
	h.sessions = make(map[*Session]struct{})
	return true
}
