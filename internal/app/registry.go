package app

import (
	"sync"
	"time"

	"github.com/dkeye/AssistHub/internal/core"
	"github.com/dkeye/AssistHub/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Session domain.Session
	Conn    core.SignalConnection
}

// Registry maps each live connection to its session. All mutations take the
// write lock; readers get copies so fan-out never holds the lock while sending.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SignalConnection]*sessionEntry
	now      func() time.Time
}

func NewRegistry() *Registry {
	return NewRegistryWithClock(time.Now)
}

func NewRegistryWithClock(now func() time.Time) *Registry {
	return &Registry{
		sessions: make(map[core.SignalConnection]*sessionEntry),
		now:      now,
	}
}

// Snap pairs a session copy with its connection.
type Snap struct {
	Session domain.Session
	Conn    core.SignalConnection
}

// Register binds a fresh session to conn. Registering the same conn twice
// returns the existing session.
func (r *Registry) Register(conn core.SignalConnection, remoteAddr, clientToken string) domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[conn]; ok {
		return e.Session
	}
	now := r.now()
	s := domain.Session{
		ID:          domain.NewSessionID(),
		RemoteAddr:  remoteAddr,
		ClientToken: clientToken,
		ConnectedAt: now,
		LastSeen:    now,
	}
	r.sessions[conn] = &sessionEntry{Session: s, Conn: conn}
	log.Debug().Str("module", "app.registry").Str("sid", string(s.ID)).Str("addr", remoteAddr).Msg("registered session")
	return s
}

func (r *Registry) Lookup(conn core.SignalConnection) (domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[conn]; ok {
		return e.Session, true
	}
	return domain.Session{}, false
}

// Remove deletes conn's entry. Removing an absent conn is a no-op that
// reports false.
func (r *Registry) Remove(conn core.SignalConnection) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[conn]
	if !ok {
		return domain.Session{}, false
	}
	delete(r.sessions, conn)
	log.Debug().Str("module", "app.registry").Str("sid", string(e.Session.ID)).Msg("removed session")
	return e.Session, true
}

// Touch refreshes LastSeen and returns the updated session.
func (r *Registry) Touch(conn core.SignalConnection) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[conn]
	if !ok {
		return domain.Session{}, false
	}
	e.Session.LastSeen = r.now()
	return e.Session, true
}

func (r *Registry) SetRole(conn core.SignalConnection, role domain.Role) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[conn]
	if !ok {
		return domain.Session{}, false
	}
	e.Session.Role = role
	return e.Session, true
}

func (r *Registry) SetAudio(conn core.SignalConnection, enabled bool) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[conn]
	if !ok {
		return domain.Session{}, false
	}
	e.Session.AudioEnabled = enabled
	return e.Session, true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Snapshot() []Snap {
	return r.Filter(func(domain.Session) bool { return true })
}

// Filter returns copies of the entries matching pred. pred runs under the
// read lock and must not call back into the registry.
func (r *Registry) Filter(pred func(domain.Session) bool) []Snap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Snap, 0, len(r.sessions))
	for conn, e := range r.sessions {
		if pred(e.Session) {
			out = append(out, Snap{Session: e.Session, Conn: conn})
		}
	}
	return out
}

// Sessions returns session copies only, for status computation and APIs.
func (r *Registry) Sessions() []domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Session, 0, len(r.sessions))
	for _, e := range r.sessions {
		out = append(out, e.Session)
	}
	return out
}

// EvictStale removes every session whose LastSeen is older than timeout at
// now and returns them. The caller closes the connections.
func (r *Registry) EvictStale(now time.Time, timeout time.Duration) []Snap {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Snap
	for conn, e := range r.sessions {
		if now.Sub(e.Session.LastSeen) > timeout {
			out = append(out, Snap{Session: e.Session, Conn: conn})
			delete(r.sessions, conn)
		}
	}
	return out
}

// Drain empties the registry and returns what it held.
func (r *Registry) Drain() []Snap {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snap, 0, len(r.sessions))
	for conn, e := range r.sessions {
		out = append(out, Snap{Session: e.Session, Conn: conn})
	}
	clear(r.sessions)
	log.Info().Str("module", "app.registry").Int("sessions", len(out)).Msg("drained registry")
	return out
}
