// Package authsvc defines the authentication collaborator contract. The
// platform's managed auth backend owns credentials; the guard only needs a
// yes/no plus the principal's identity and portal roles.
package authsvc

import "errors"

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccountDeactivated   = errors.New("account deactivated")
)

// Roles mirror the platform portals.
const (
	RoleStudent = "student:"
	RoleTeacher = "teacher:"
	RoleAdmin   = "admin:"
)

type (
	// Principal is the authenticated identity.
	Principal struct {
		ID       string   `json:"id"`
		Username string   `json:"username"`
		Email    string   `json:"email"`
		Roles    []string `json:"roles"`
	}

	// Authenticator verifies credentials against the auth collaborator.
	Authenticator interface {
		Authenticate(username, password string) (Principal, error)
	}
)

func (p Principal) hasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p Principal) IsStudent() bool { return p.hasRole(RoleStudent) }
func (p Principal) IsTeacher() bool { return p.hasRole(RoleTeacher) }
func (p Principal) IsAdmin() bool   { return p.hasRole(RoleAdmin) }
