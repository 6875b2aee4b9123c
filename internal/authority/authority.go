// Package authority decides whether this process is the one that generates
// and persists weather.
package authority

import (
	"strings"
	"sync/atomic"

	"github.com/xdy-forks/foundry-simple-weather/internal/foundation/errors"
)

// Resolver answers whether the current process is authoritative. Callers
// must ask at the moment of decision; the answer can change during a session.
type Resolver interface {
	IsAuthoritative() bool
}

// Func adapts a function to Resolver.
type Func func() bool

func (f Func) IsAuthoritative() bool { return f() }

// Role is the session role of a process.
type Role int

const (
	RoleObserver Role = iota
	RoleGM
)

func (r Role) String() string {
	if r == RoleGM {
		return "gm"
	}
	return "observer"
}

// ParseRole accepts "gm" and "observer" (also "player"), case-insensitively.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gm":
		return RoleGM, nil
	case "observer", "player", "":
		return RoleObserver, nil
	default:
		return RoleObserver, errors.ValidationError("unknown role").WithContext("role", s).Build()
	}
}

// Session holds the role of this process. It is safe for concurrent use and
// the role may be reassigned at any time.
type Session struct {
	role atomic.Int32
}

func NewSession(role Role) *Session {
	s := &Session{}
	s.SetRole(role)
	return s
}

func (s *Session) SetRole(role Role) { s.role.Store(int32(role)) }

func (s *Session) Role() Role { return Role(s.role.Load()) }

// IsAuthoritative reports whether the session is currently the GM.
func (s *Session) IsAuthoritative() bool { return s.Role() == RoleGM }

// Static returns a Resolver with a fixed answer.
func Static(authoritative bool) Resolver {
	return Func(func() bool { return authoritative })
}
