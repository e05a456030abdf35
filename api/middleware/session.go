package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/modacart/modacart-backend/pkg/logger"
)

type contextKey string

const sessionContextKey contextKey = "cart_session_id"

// Session resolves the cart session from the configured header, minting a
// fresh ID when the shopper arrives without one. The ID is always echoed
// back so the storefront can persist it.
func Session(headerName string, logg *logger.Logger) func(http.Handler) http.Handler {
	if strings.TrimSpace(headerName) == "" {
		headerName = "X-Cart-Session"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(headerName))
			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			w.Header().Set(headerName, sessionID)

			ctx := context.WithValue(r.Context(), sessionContextKey, sessionID)
			if logg != nil {
				ctx = logg.WithCartSession(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithSessionID returns a context carrying the cart session ID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionContextKey, sessionID)
}

// SessionIDFromContext returns the resolved cart session ID, if any.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionContextKey).(string); ok {
		return v
	}
	return ""
}
