package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/sprint-insights/internal/generation"
)

// MockTextGenerator implements generation.TextGenerator for testing
type MockTextGenerator struct {
	// GenerateTextFn allows test cases to mock the GenerateText behavior
	GenerateTextFn func(ctx context.Context, prompt string) (string, error)

	// Default response values
	Text string
	Err  error

	// Call tracking for verification
	GenerateTextCalls struct {
		mu sync.Mutex

		Count   int
		Prompts []string
	}
}

var _ generation.TextGenerator = (*MockTextGenerator)(nil)

// GenerateText implements the generation.TextGenerator interface
func (m *MockTextGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	m.GenerateTextCalls.mu.Lock()
	m.GenerateTextCalls.Count++
	m.GenerateTextCalls.Prompts = append(m.GenerateTextCalls.Prompts, prompt)
	m.GenerateTextCalls.mu.Unlock()

	if m.GenerateTextFn != nil {
		return m.GenerateTextFn(ctx, prompt)
	}
	return m.Text, m.Err
}

// Prompts returns a copy of the prompts received so far.
func (m *MockTextGenerator) Prompts() []string {
	m.GenerateTextCalls.mu.Lock()
	defer m.GenerateTextCalls.mu.Unlock()
	return append([]string(nil), m.GenerateTextCalls.Prompts...)
}

// NewMockTextGeneratorWithText creates a MockTextGenerator that always returns text
func NewMockTextGeneratorWithText(text string) *MockTextGenerator {
	return &MockTextGenerator{Text: text}
}

// NewMockTextGeneratorWithError creates a MockTextGenerator that always fails with err
func NewMockTextGeneratorWithError(err error) *MockTextGenerator {
	return &MockTextGenerator{Err: err}
}
