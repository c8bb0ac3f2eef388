package gin

import "sync"

// sessionGuard admits at most one active stream per conversation.
type sessionGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newSessionGuard() *sessionGuard {
	return &sessionGuard{active: make(map[string]struct{})}
}

// acquire claims id. The returned release must be called exactly once when
// ok is true.
func (g *sessionGuard) acquire(id string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[id]; busy {
		return nil, false
	}
	g.active[id] = struct{}{}
	return func() {
		g.mu.Lock()
		delete(g.active, id)
		g.mu.Unlock()
	}, true
}

func (g *sessionGuard) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}
