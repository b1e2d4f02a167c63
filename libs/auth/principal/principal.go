// Package principal describes the caller of an operation and the role checks applied to it
package principal

import (
	"context"
	"slices"

	"github.com/coursecraft/backend/libs/apperr"
)

// Role is the role of a user on the platform
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Roles lists every known role
var Roles = []Role{RoleStudent, RoleInstructor, RoleAdmin}

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return slices.Contains(Roles, r)
}

// Principal is the resolved identity of the caller
//
// The zero value is the anonymous principal.
type Principal struct {
	UserID int  `json:"userId"`
	Role   Role `json:"role"`
}

// IsAnonymous reports whether no user is attached
func (p Principal) IsAnonymous() bool {
	return p.UserID == 0
}

// IsAdmin reports whether the principal is an administrator
func (p Principal) IsAdmin() bool {
	return !p.IsAnonymous() && p.Role == RoleAdmin
}

// Require checks that the principal holds one of the given roles
//
// Anonymous principals get an Unauthorized error, known users without a matching role a Forbidden one.
func Require(p Principal, roles ...Role) error {
	if p.IsAnonymous() {
		return apperr.Unauthorized("authentication required")
	}
	if !slices.Contains(roles, p.Role) {
		return apperr.Forbidden("insufficient permissions")
	}
	return nil
}

type contextKey struct{}

// WithPrincipal stores the principal in the context
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the principal stored in the context, or the anonymous principal
func FromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(contextKey{}).(Principal)
	return p
}
