package domain

import "strings"

// Role is the authorization role carried by an authenticated actor.
type Role string

const (
	RoleSender Role = "sender"
	RoleAdmin  Role = "admin"
)

// SystemActorID identifies transitions and alerts produced by the service itself.
const SystemActorID = "system"

// Actor is an already-authenticated caller.
type Actor struct {
	ID   string
	Role Role
}

// Valid reports whether the actor carries an id and a known role.
func (a Actor) Valid() bool {
	if strings.TrimSpace(a.ID) == "" {
		return false
	}
	return a.Role == RoleSender || a.Role == RoleAdmin
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
