package auth

import (
	"encoding/json"
	"net/http"
	"slices"
)

// Middleware authenticates requests that carry a session token. Requests
// without a valid token pass through unauthenticated; RequireRole rejects them.
// When sessions is non-nil, tokens whose session was logged out or expired are ignored.
func Middleware(secret string, sessions *Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := ParseFromRequest(r, secret)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if sessions != nil {
				if p.SessionID == "" {
					next.ServeHTTP(w, r)
					return
				}
				if _, ok := sessions.Get(p.SessionID); !ok {
					next.ServeHTTP(w, r)
					return
				}
				sessions.Touch(p.SessionID)
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole allows only principals whose kind is one of roles. An empty
// roles list admits any authenticated principal.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			if !ok || p == nil {
				writeAuthError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if len(roles) > 0 && !slices.Contains(roles, p.Kind) {
				writeAuthError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
