package session

import "golang.org/x/time/rate"

// Sender delivers an encoded frame to one live connection. Send must not
// block; it reports false when the frame was dropped.
type Sender interface {
	Send(data []byte) bool
}

// connSession is the per-connection record the engine consults on every
// event instead of state stashed on the socket.
type connSession struct {
	id       string
	sender   Sender
	limiter  *rate.Limiter
	roomID   string
	username string
	isHost   bool
}

func (c *connSession) joined() bool {
	return c.roomID != ""
}

// registry maps connection ids to sessions.
type registry struct {
	sessions map[string]*connSession
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*connSession)}
}

func (r *registry) add(s *connSession) {
	r.sessions[s.id] = s
}

func (r *registry) get(connID string) (*connSession, bool) {
	s, ok := r.sessions[connID]
	return s, ok
}

func (r *registry) remove(connID string) {
	delete(r.sessions, connID)
}

func (r *registry) len() int {
	return len(r.sessions)
}
