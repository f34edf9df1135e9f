package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is the type of request context keys set by the API middleware.
type ContextKey string

const (
	// UserContextKey holds the requesting user identifier.
	UserContextKey ContextKey = "user"

	// TraceIDKey is the key for the trace ID in the request context
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the number of bytes used to generate the trace ID
	TraceIDLength = 16 // 32 hex characters
)

// SetTraceID adds a trace ID to the context.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID retrieves the trace ID from the context, or "" if none is set.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// SetUser stores the requesting user in the context.
func SetUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// GetUser returns the requesting user. ok is false when no non-blank user
// was set.
func GetUser(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(UserContextKey).(string)
	if !ok || strings.TrimSpace(user) == "" {
		return "", false
	}
	return user, true
}

// generateTraceID returns 32 hex characters. If crypto/rand fails it falls
// back to a random UUID without dashes.
func generateTraceID() string {
	b := make([]byte, TraceIDLength)
	if _, err := rand.Read(b); err != nil {
		slog.Error("failed to generate secure random trace ID",
			"error", err,
			"fallback", "uuid")
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return hex.EncodeToString(b)
}
