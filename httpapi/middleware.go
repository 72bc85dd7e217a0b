package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey int

const actorContextKey contextKey = iota

// actorFromContext returns the actor extracted from the request's bearer
// token by jwtAuth, or "" when auth is disabled (no signing key
// configured) or the request carried no token.
func actorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorContextKey).(string)
	return actor
}

// jwtAuth gates mutating routes behind a bearer token: one signing key,
// no refresh tokens, no OAuth2/API-key fan-out. A request with no valid
// token is rejected before it reaches the handler. The token's `sub`
// claim is extracted and stashed in the request context as the acting
// identity, so handlers attribute event-sink entries to the caller
// instead of trusting a body-supplied actor field.
func jwtAuth(signingKey string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if signingKey == "" {
			// No key configured: the deployment has opted out of auth
			// (e.g. local/offline use via cargoxctl-fronted store only).
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenStr := strings.TrimPrefix(header, "Bearer ")
			if tokenStr == "" || tokenStr == header {
				writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "missing bearer token"})
				return
			}
			token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
				return []byte(signingKey), nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				log.Warn("rejected request with invalid token", zap.Error(err))
				writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "invalid bearer token"})
				return
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "invalid bearer token"})
				return
			}
			sub, _ := claims["sub"].(string)
			if sub == "" {
				writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "bearer token missing sub claim"})
				return
			}
			ctx := context.WithValue(r.Context(), actorContextKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
