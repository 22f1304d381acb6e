package web

import (
	"context"
	"net/http"
	"strings"

	"chat-relay/domain"
)

type contextKey string

const userContextKey contextKey = "user"

// requireAuth resolves the bearer token through the identity verifier and
// injects the bound user into the request context. The websocket endpoint
// does not use this: admission is the router's job.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header")
			return
		}

		user, err := s.authService.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

func userFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userContextKey).(domain.User)
	return user, ok
}

// bearerToken extracts the raw token from the Authorization header. A header
// without the Bearer scheme yields no token.
func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return token
}
