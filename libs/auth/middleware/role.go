package middleware

import (
	"net/http"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/auth/principal"
)

// RoleMiddleware rejects requests whose principal holds none of the given roles
//
// It must run after AuthMiddleware.
func RoleMiddleware(roles ...principal.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := principal.Require(principal.FromContext(r.Context()), roles...); err != nil {
				writeError(w, apperr.Status(err), apperr.Message(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
