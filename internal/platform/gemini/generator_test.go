package gemini

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/phrazzld/sprint-insights/internal/config"
	"github.com/phrazzld/sprint-insights/internal/generation"
	"github.com/phrazzld/sprint-insights/internal/platform/logger"
)

// fakeModels returns queued responses in order and records the prompts it saw.
type fakeModels struct {
	mu        sync.Mutex
	responses []fakeResponse
	prompts   []string
	models    []string
}

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) GenerateContent(
	_ context.Context,
	model string,
	contents []*genai.Content,
	_ *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.models = append(f.models, model)
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompts = append(f.prompts, contents[0].Parts[0].Text)
	}

	if len(f.responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next.resp, next.err
}

func (f *fakeModels) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: content, FinishReason: genai.FinishReasonStop}},
	}
}

func newTestGenerator(t *testing.T, models ContentGenerator, maxRetries int) (*Generator, *[]time.Duration) {
	t.Helper()

	g, err := NewGeneratorWithModels(logger.Discard(), config.LLMConfig{
		ModelName:         "gemini-test",
		MaxRetries:        maxRetries,
		RetryDelaySeconds: 1,
	}, models)
	require.NoError(t, err)

	var waits []time.Duration
	g.wait = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return g, &waits
}

func TestGenerateText_Success(t *testing.T) {
	models := &fakeModels{responses: []fakeResponse{{resp: textResponse("Velocity ", "is stable. ")}}}
	g, waits := newTestGenerator(t, models, 3)

	text, err := g.GenerateText(context.Background(), "summarize the backlog")
	require.NoError(t, err)

	assert.Equal(t, "Velocity is stable.", text)
	assert.Equal(t, []string{"summarize the backlog"}, models.prompts)
	assert.Equal(t, []string{"gemini-test"}, models.models)
	assert.Empty(t, *waits)
}

func TestGenerateText_RetriesTransientErrors(t *testing.T) {
	models := &fakeModels{responses: []fakeResponse{
		{err: errors.New("503 service unavailable")},
		{err: errors.New("connection reset")},
		{resp: textResponse("done")},
	}}
	g, waits := newTestGenerator(t, models, 3)

	text, err := g.GenerateText(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.Equal(t, 3, models.calls())

	require.Len(t, *waits, 2)
	// baseDelay 1s with jitter in [0.5, 1.0): first wait in [0.5s, 1s), second in [1s, 2s).
	assert.GreaterOrEqual(t, (*waits)[0], 500*time.Millisecond)
	assert.Less(t, (*waits)[0], time.Second)
	assert.GreaterOrEqual(t, (*waits)[1], time.Second)
	assert.Less(t, (*waits)[1], 2*time.Second)
}

func TestGenerateText_ExhaustsRetries(t *testing.T) {
	models := &fakeModels{responses: []fakeResponse{
		{err: errors.New("timeout")},
		{err: errors.New("timeout")},
		{err: errors.New("timeout")},
	}}
	g, waits := newTestGenerator(t, models, 2)

	_, err := g.GenerateText(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrTransientFailure)
	assert.Contains(t, err.Error(), "exceeded maximum retry attempts (2)")
	assert.Equal(t, 3, models.calls())
	assert.Len(t, *waits, 2)
}

func TestGenerateText_PermanentErrors(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		wantErr error
	}{
		{
			name:    "nil response",
			resp:    nil,
			wantErr: generation.ErrInvalidResponse,
		},
		{
			name:    "no candidates",
			resp:    &genai.GenerateContentResponse{},
			wantErr: generation.ErrInvalidResponse,
		},
		{
			name: "safety block",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
			},
			wantErr: generation.ErrContentBlocked,
		},
		{
			name: "nil content",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonStop}},
			},
			wantErr: generation.ErrInvalidResponse,
		},
		{
			name:    "blank text",
			resp:    textResponse("  ", "\n"),
			wantErr: generation.ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := &fakeModels{responses: []fakeResponse{{resp: tt.resp}}}
			g, waits := newTestGenerator(t, models, 3)

			_, err := g.GenerateText(context.Background(), "prompt")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 1, models.calls(), "permanent errors must not be retried")
			assert.Empty(t, *waits)
		})
	}
}

func TestGenerateText_CancelledDuringBackoff(t *testing.T) {
	models := &fakeModels{responses: []fakeResponse{{err: errors.New("unavailable")}}}
	g, _ := newTestGenerator(t, models, 3)

	ctx, cancel := context.WithCancel(context.Background())
	g.wait = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := g.GenerateText(ctx, "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrTransientFailure)
	assert.Equal(t, 1, models.calls())
}

func TestGenerateText_EmptyPrompt(t *testing.T) {
	models := &fakeModels{}
	g, _ := newTestGenerator(t, models, 3)

	_, err := g.GenerateText(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Equal(t, 0, models.calls())
}

func TestNewGeneratorWithModels_Validation(t *testing.T) {
	models := &fakeModels{}

	_, err := NewGeneratorWithModels(nil, config.LLMConfig{ModelName: "m"}, models)
	assert.Error(t, err)

	_, err = NewGeneratorWithModels(logger.Discard(), config.LLMConfig{ModelName: "m"}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewGeneratorWithModels(logger.Discard(), config.LLMConfig{}, models)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	g, err := NewGeneratorWithModels(logger.Discard(), config.LLMConfig{
		ModelName:         "m",
		MaxRetries:        -1,
		RetryDelaySeconds: 0,
	}, models)
	require.NoError(t, err)
	assert.Equal(t, defaultMaxRetries, g.maxRetries)
	assert.Equal(t, defaultRetryDelaySeconds*time.Second, g.baseDelay)
}

func TestNewGenerator_RequiresAPIKey(t *testing.T) {
	_, err := NewGenerator(context.Background(), logger.Discard(), config.LLMConfig{ModelName: "m"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}
