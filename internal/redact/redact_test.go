package redact_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/sprint-insights/internal/redact"
)

func TestString(t *testing.T) {
	t.Parallel()

	googleKey := "AIza" + strings.Repeat("x", 35)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "no sensitive data",
			input:    "task 1_10_alice added to queue",
			expected: "task 1_10_alice added to queue",
		},
		{
			name:     "postgres url",
			input:    "dial postgres://insights:s3cret@db:5432/insights failed",
			expected: "dial postgres://[REDACTED_CREDENTIAL]@db:5432/insights failed",
		},
		{
			name:     "redis url without user",
			input:    "connect redis://:hunter22@cache:6379/0",
			expected: "connect redis://[REDACTED_CREDENTIAL]@cache:6379/0",
		},
		{
			name:     "password parameter",
			input:    "password=hunter22 rejected",
			expected: "password=[REDACTED_CREDENTIAL] rejected",
		},
		{
			name:     "google api key",
			input:    "generate failed for key " + googleKey + ": quota",
			expected: "generate failed for key [REDACTED_KEY]: quota",
		},
		{
			name:     "api key parameter",
			input:    "request ?api_key=abcdef1234567890 denied",
			expected: "request ?api_key=[REDACTED_KEY] denied",
		},
		{
			name:     "sql",
			input:    "query failed: SELECT content FROM sprint_insights WHERE sprint_id = 10",
			expected: "query failed: [REDACTED_SQL]",
		},
		{
			name:     "email user",
			input:    "task for alice@example.com failed",
			expected: "task for [REDACTED_EMAIL] failed",
		},
		{
			name:     "stack trace",
			input:    "panic in engine: goroutine 7 [running]:\nmain.main()\n\t/app/main.go:10",
			expected: "panic in engine: [STACK_TRACE_REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, redact.String(tt.input))
		})
	}
}

func TestError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", redact.Error(nil))

	err := fmt.Errorf("open database: %w", errors.New("postgres://u:p@h/db unreachable"))
	assert.Equal(t, "open database: postgres://[REDACTED_CREDENTIAL]@h/db unreachable", redact.Error(err))
}

func TestStringLeavesProseAlone(t *testing.T) {
	t.Parallel()

	msg := "failed to update sprint insights for project 1: deadline exceeded"
	assert.Equal(t, msg, redact.String(msg))
}
