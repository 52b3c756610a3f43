package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/askdb/askdb/internal/service"
)

type contextKeyAuth string

const (
	// ReviewerKey is the context key for the authenticated reviewer.
	ReviewerKey contextKeyAuth = "reviewer"
)

// RequireReviewer returns an HTTP middleware that requires a reviewer JWT in
// the Authorization header. When authSvc has no secret configured every
// request passes through unauthenticated.
//
// On success the Reviewer is attached to the request context. On failure a
// 401 JSON error response is returned.
func RequireReviewer(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authSvc == nil || !authSvc.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeAuthError(w, http.StatusUnauthorized, "Authentication required. Provide a Bearer token.")
				return
			}

			reviewer, err := authSvc.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), ReviewerKey, reviewer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetReviewer extracts the authenticated reviewer from the context.
// Returns nil if the request was not authenticated.
func GetReviewer(ctx context.Context) *service.Reviewer {
	if rv, ok := ctx.Value(ReviewerKey).(*service.Reviewer); ok {
		return rv
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Manually construct JSON to avoid import cycle with handler package
	w.Write([]byte(`{"error":{"code":` + httpStatusString(status) + `,"message":"` + message + `"}}`))
}

func httpStatusString(code int) string {
	switch code {
	case 401:
		return "401"
	case 403:
		return "403"
	default:
		return "500"
	}
}
