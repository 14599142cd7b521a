// Package domain contains entities without logic, just meta-data
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is self-declared by the client. Any string is stored; only RoleUser
// and RoleAid take part in special routing.
type Role string

const (
	RoleUnassigned Role = ""
	RoleUser       Role = "User"
	RoleAid        Role = "Aid"
)

// Known reports whether r is one of the two routed roles.
func (r Role) Known() bool {
	return r == RoleUser || r == RoleAid
}

func (r Role) String() string {
	if r == RoleUnassigned {
		return "unassigned"
	}
	return string(r)
}

type SessionID string

// NewSessionID is never reused within a process lifetime.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// Session is a value snapshot of one connection's state. The live record is
// owned by the registry.
type Session struct {
	ID           SessionID `json:"id"`
	Role         Role      `json:"role"`
	AudioEnabled bool      `json:"audioEnabled"`
	RemoteAddr   string    `json:"remoteAddress"`
	ClientToken  string    `json:"-"`
	ConnectedAt  time.Time `json:"connectedAt"`
	LastSeen     time.Time `json:"lastSeen"`
}

// Status is the aggregate view broadcast to clients.
type Status struct {
	Users            int `json:"users"`
	Aids             int `json:"aids"`
	AudioConnections int `json:"audioConnections"`
	TotalClients     int `json:"totalClients"`
}

// Tally folds sessions into a Status.
func Tally(sessions []Session) Status {
	st := Status{TotalClients: len(sessions)}
	for _, s := range sessions {
		switch s.Role {
		case RoleUser:
			st.Users++
		case RoleAid:
			st.Aids++
		}
		if s.AudioEnabled {
			st.AudioConnections++
		}
	}
	return st
}
