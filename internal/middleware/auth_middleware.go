package middleware

import (
	"context"
	"net/http"
	"strings"

	"mini-social-server/pkg/jwt"
	"mini-social-server/pkg/response"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	ClaimsKey contextKey = "claims"
)

// TokenVerifier checks an access token and returns its claims.
type TokenVerifier interface {
	VerifyAccess(token string) (*jwt.Claims, error)
}

// VerifierFunc adapts a function to TokenVerifier.
type VerifierFunc func(token string) (*jwt.Claims, error)

func (f VerifierFunc) VerifyAccess(token string) (*jwt.Claims, error) {
	return f(token)
}

func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := verifier.VerifyAccess(parts[1])
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			recordUserID(r, claims.UserID)

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(r *http.Request) string {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

func GetClaims(r *http.Request) *jwt.Claims {
	claims, _ := r.Context().Value(ClaimsKey).(*jwt.Claims)
	return claims
}
