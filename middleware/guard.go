package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/inkstone/wbauth"
)

type userIDContextKey struct{}

// UserIDFromContext returns the subject stored by [RequireIdentity].
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey{}).(string)
	return userID, ok && userID != ""
}

// WithUserID stores userID the same way [RequireIdentity] does.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// IdentityVerifier is satisfied by *wbauth.Engine.
type IdentityVerifier interface {
	RequireIdentity(ctx context.Context, accessToken string) (string, error)
}

// RequireIdentity authenticates the bearer token of every request and stores the
// subject in the request context. Requests without a valid access token are passed to
// onReject, or answered with a bare 401 when onReject is nil.
func RequireIdentity(verifier IdentityVerifier, onReject func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	if onReject == nil {
		onReject = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				onReject(w, r, wbauth.ErrEngineNotReady)
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				onReject(w, r, wbauth.ErrUnauthenticated)
				return
			}

			userID, err := verifier.RequireIdentity(r.Context(), token)
			if err != nil {
				onReject(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// BearerToken returns the credential of an "Authorization: Bearer <token>" header.
// The scheme is matched case-sensitively.
func BearerToken(r *http.Request) (string, bool) {
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
	scheme, token, found := strings.Cut(value, " ")
	if !found || scheme != "Bearer" {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	return token, true
}
