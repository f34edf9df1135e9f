package middleware

import (
	"net/http"
	"strings"

	"github.com/phrazzld/sprint-insights/internal/api/shared"
)

const (
	// UserHeader carries the requesting user identifier.
	UserHeader = "X-User"

	// TraceHeader echoes the trace ID back to the client.
	TraceHeader = "X-Trace-ID"
)

// User copies the X-User header into the request context. Requests without
// the header pass through; handlers that need a user reject them.
func User(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := strings.TrimSpace(r.Header.Get(UserHeader)); user != "" {
			r = r.WithContext(shared.SetUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}
