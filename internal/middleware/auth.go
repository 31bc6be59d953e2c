package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// ViewerVerifier maps a bearer token to the viewer id it was issued for.
// auth.Verifier is the production implementation.
type ViewerVerifier interface {
	ViewerID(token string) (string, error)
}

// OptionalAuth identifies the viewer from an "Authorization: Bearer" header.
// A valid token stores the viewer id via SetUserID. Missing, malformed,
// expired or otherwise invalid tokens leave the request anonymous: the feed is
// public and only personalisation depends on the viewer.
// A nil verifier disables authentication entirely.
func OptionalAuth(verifier ViewerVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			viewerID, err := verifier.ViewerID(token)
			if err != nil {
				if logger != nil {
					logger.DebugContext(r.Context(), "ignoring invalid bearer token",
						slog.String("request_id", GetRequestID(r.Context())),
						slog.String("error", err.Error()),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := SetUserID(r.Context(), viewerID)
			UpdateResponseContext(w, ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from an Authorization header.
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
