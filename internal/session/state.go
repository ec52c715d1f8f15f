// Package session holds the console's authenticated session state: the
// current user, their role, the derived permission set and the auth token.
package session

import (
	"errors"
	"time"

	"github.com/odyssey-erp/odyssey-console/internal/rbac"
)

var (
	// ErrUnauthenticated is returned by loaders when a token is no longer
	// accepted by the backend.
	ErrUnauthenticated = errors.New("session: unauthenticated")
	// ErrEmptyToken rejects credentials without a token.
	ErrEmptyToken = errors.New("session: empty token")
	// ErrTokenExpired rejects credentials whose token already expired.
	ErrTokenExpired = errors.New("session: token expired")
)

// User is the authenticated principal as returned by the auth backend.
type User struct {
	ID    int64      `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name,omitempty"`
	Role  *rbac.Role `json:"role,omitempty"`
}

// Status enumerates the session state machine.
type Status int

const (
	// Anonymous has no token.
	Anonymous Status = iota
	// AuthenticatedNoRole has a token but no role assigned yet.
	AuthenticatedNoRole
	// AuthenticatedWithRole has a token, a role and its permission set.
	AuthenticatedWithRole
)

func (s Status) String() string {
	switch s {
	case AuthenticatedNoRole:
		return "authenticated_no_role"
	case AuthenticatedWithRole:
		return "authenticated_with_role"
	default:
		return "anonymous"
	}
}

// State is an immutable snapshot of the session. The zero value is the
// anonymous session.
type State struct {
	User        *User
	Role        *rbac.Role
	Permissions rbac.PermissionSet
	Token       string
	ExpiresAt   time.Time
}

// Status derives the state machine position from the snapshot.
func (s State) Status() Status {
	switch {
	case s.Token == "":
		return Anonymous
	case s.Role == nil:
		return AuthenticatedNoRole
	default:
		return AuthenticatedWithRole
	}
}

// Authenticated reports whether a token is present.
func (s State) Authenticated() bool {
	return s.Token != ""
}

func newState(user User, token string, expiresAt time.Time) *State {
	u := user
	var role *rbac.Role
	if user.Role != nil {
		r := *user.Role
		r.Permissions = append([]string(nil), user.Role.Permissions...)
		role = &r
		u.Role = role
	}
	return &State{
		User:        &u,
		Role:        role,
		Permissions: role.PermissionSet(),
		Token:       token,
		ExpiresAt:   expiresAt,
	}
}
