package middleware_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/sprint-insights/internal/api/middleware"
	"github.com/phrazzld/sprint-insights/internal/api/shared"
	"github.com/phrazzld/sprint-insights/internal/platform/logger"
)

func TestTraceMiddleware(t *testing.T) {
	t.Parallel()

	var seen string
	handler := middleware.NewTraceMiddleware(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.GetTraceID(r.Context())
		assert.NotSame(t, slog.Default(), logger.FromContext(r.Context()))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Len(t, seen, 32)
	assert.Equal(t, seen, rec.Header().Get(middleware.TraceHeader))
}

func TestTraceMiddlewareUniquePerRequest(t *testing.T) {
	t.Parallel()

	ids := make(map[string]bool)
	handler := middleware.NewTraceMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids[shared.GetTraceID(r.Context())] = true
	}))

	for i := 0; i < 10; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	assert.Len(t, ids, 10)
}

func TestUserMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		header   string
		wantUser string
		wantOK   bool
	}{
		{name: "present", header: "alice", wantUser: "alice", wantOK: true},
		{name: "trimmed", header: "  bob ", wantUser: "bob", wantOK: true},
		{name: "blank", header: "   ", wantOK: false},
		{name: "missing", header: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotUser string
			var gotOK bool
			handler := middleware.User(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, gotOK = shared.GetUser(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set(middleware.UserHeader, tt.header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.wantOK, gotOK)
			assert.Equal(t, tt.wantUser, gotUser)
		})
	}
}
