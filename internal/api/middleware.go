// Package api implements the Orgboard REST API using chi.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/starford/orgboard/internal/auth"
)

// Auth modes.
const (
	AuthDisabled = "disabled"
	AuthToken    = "token"
	AuthJWT      = "jwt"
)

// AuthOptions configures AuthMiddleware.
type AuthOptions struct {
	Mode   string
	Token  string
	Tokens *auth.TokenManager
}

type claimsKey struct{}

// ClaimsFromContext returns the JWT claims stored by AuthMiddleware, if any.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return c, ok
}

// AuthMiddleware returns middleware that validates a Bearer credential.
//
//   - disabled: all requests pass through.
//   - token: requests must carry "Authorization: Bearer <token>".
//   - jwt: requests must carry a valid HS256 token; non-GET requests also
//     need the admin role claim.
//
// GET requests may pass the credential as ?access_token= for EventSource
// clients, which cannot set headers.
func AuthMiddleware(opts AuthOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch opts.Mode {
			case "", AuthDisabled:
				next.ServeHTTP(w, r)
				return

			case AuthToken:
				if bearer(r) != opts.Token || opts.Token == "" {
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
				next.ServeHTTP(w, r)

			case AuthJWT:
				tok := bearer(r)
				if tok == "" || opts.Tokens == nil {
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
				claims, err := opts.Tokens.ParseToken(tok)
				if err != nil {
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
				if r.Method != http.MethodGet && r.Method != http.MethodHead && !claims.IsAdmin() {
					writeJSON(w, http.StatusForbidden, errorBody("admin role required"))
					return
				}
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))

			default:
				writeJSON(w, http.StatusInternalServerError, errorBody("unknown auth mode"))
			}
		})
	}
}

func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("access_token")
	}
	return ""
}
