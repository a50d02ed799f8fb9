package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"mentorhub/internal/model"
	"mentorhub/internal/service"
)

type contextKey string

const IdentityKey contextKey = "identity"

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireUser validates the bearer JWT and stores the identity in the request context
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			WriteError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		identity, err := m.authSvc.Validate(token)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), IdentityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetIdentity extracts the caller identity from context
func GetIdentity(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(model.Identity)
	return identity, ok
}

// BearerToken returns the token from an "Authorization: Bearer" header
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// WriteError writes {"error": msg} as JSON. Handlers that run before the REST
// response helpers are reachable (auth, the WebSocket handshake) use it.
func WriteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
