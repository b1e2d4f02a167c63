package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/libs/auth/service"
)

// RoleResolver loads the current role of a user from the user store
//
// Roles can change after a token was issued, so the stored role wins over the token claim.
type RoleResolver interface {
	ResolveRole(ctx context.Context, userID int) (principal.Role, error)
}

// AuthMiddleware requires a valid access token and stores the resolved principal in the context
//
// "resolver" may be nil, in which case the role claim of the token is trusted.
func AuthMiddleware(validator *service.TokenValidator, resolver RoleResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			p, err := resolvePrincipal(r.Context(), validator, resolver, token)
			if err != nil {
				writeError(w, apperr.Status(err), apperr.Message(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(principal.WithPrincipal(r.Context(), p)))
		})
	}
}

// OptionalAuthMiddleware attaches the principal when a valid token is present and lets anonymous requests through
func OptionalAuthMiddleware(validator *service.TokenValidator, resolver RoleResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := extractToken(r); token != "" {
				if p, err := resolvePrincipal(r.Context(), validator, resolver, token); err == nil {
					r = r.WithContext(principal.WithPrincipal(r.Context(), p))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolvePrincipal(ctx context.Context, validator *service.TokenValidator, resolver RoleResolver, token string) (principal.Principal, error) {
	p, err := validator.ValidateAccessToken(token)
	if err != nil {
		return principal.Principal{}, apperr.Unauthorized("invalid or expired token")
	}
	if resolver == nil {
		return p, nil
	}

	role, err := resolver.ResolveRole(ctx, p.UserID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return principal.Principal{}, apperr.Unauthorized("user no longer exists")
		}
		return principal.Principal{}, err
	}
	p.Role = role
	return p, nil
}

// extractToken reads the bearer token from the Authorization header or the access_token cookie
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": message})
}
