package session

import "sync"

// Registry maps a live session to its two participant connections for
// room-scoped broadcasts. In-memory only: lost on restart.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string][2]string
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string][2]string)}
}

// Register records the session's connection pair.
func (r *Registry) Register(sessionID, connA, connB string) {
	r.mu.Lock()
	r.rooms[sessionID] = [2]string{connA, connB}
	r.mu.Unlock()
}

// Unregister drops the mapping. Best-effort; missing ids are a no-op.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	delete(r.rooms, sessionID)
	r.mu.Unlock()
}

// Conns returns the connection ids entitled to receive broadcasts for the
// session.
func (r *Registry) Conns(sessionID string) ([]string, bool) {
	r.mu.RLock()
	pair, ok := r.rooms[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return []string{pair[0], pair[1]}, true
}
